package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hanroad/hanroad/internal/profile"
	"github.com/hanroad/hanroad/store"
)

// PostgreSQL is the primary database for production use. Vector similarity
// search relies on the pgvector extension; the corpus and cache tables carry
// ivfflat indexes over their embedding columns. SQLite is for dev only.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	// Verify connection is working before returning
	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{
		db:      db,
		profile: profile,
	}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_catalog = current_database() AND table_name = 'golden_corpus' AND table_type = 'BASE TABLE')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate creates the schema when absent. Corpus embeddings live in a 384-d
// vector column, cache embeddings in a 1536-d column; the two spaces are
// never joined.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS golden_corpus (
			id SERIAL PRIMARY KEY,
			chinese TEXT NOT NULL UNIQUE,
			pinyin TEXT NOT NULL,
			english TEXT NOT NULL,
			level TEXT NOT NULL,
			category TEXT,
			scene TEXT,
			example_sentence TEXT,
			audio_url TEXT,
			source TEXT,
			embedding vector(%d),
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, d.profile.CorpusEmbeddingDimensions),
		`CREATE INDEX IF NOT EXISTS idx_corpus_level ON golden_corpus (level)`,
		`CREATE INDEX IF NOT EXISTS idx_corpus_embedding ON golden_corpus USING ivfflat (embedding vector_cosine_ops)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS cached_course (
			id SERIAL PRIMARY KEY,
			prompt_embedding vector(%d) NOT NULL,
			prompt_hash TEXT NOT NULL,
			user_level TEXT,
			generated_course JSONB NOT NULL,
			hit_count INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL,
			expires_ts BIGINT NOT NULL,
			last_hit_ts BIGINT,
			CONSTRAINT cached_course_expiry CHECK (expires_ts > created_ts)
		)`, d.profile.CacheEmbeddingDimensions),
		`CREATE INDEX IF NOT EXISTS idx_cache_hash ON cached_course (prompt_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_embedding ON cached_course USING ivfflat (prompt_embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS course (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			cover_image TEXT,
			description TEXT,
			total_words INTEGER NOT NULL DEFAULT 0,
			difficulty TEXT NOT NULL DEFAULT 'beginner',
			is_custom BOOLEAN NOT NULL DEFAULT FALSE,
			created_by TEXT,
			source_text TEXT,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_course_category ON course (category)`,
		`CREATE TABLE IF NOT EXISTS course_word (
			id SERIAL PRIMARY KEY,
			course_id INTEGER NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			entry_id INTEGER NOT NULL REFERENCES golden_corpus (id) ON DELETE CASCADE,
			word_order INTEGER NOT NULL,
			UNIQUE (course_id, entry_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_course (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			course_id INTEGER NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			progress INTEGER NOT NULL DEFAULT 0,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			last_learned_ts BIGINT,
			added_ts BIGINT NOT NULL,
			UNIQUE (user_id, course_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			entry_id INTEGER NOT NULL REFERENCES golden_corpus (id) ON DELETE CASCADE,
			review_count INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			mastered BOOLEAN NOT NULL DEFAULT FALSE,
			last_reviewed_ts BIGINT,
			next_review_ts BIGINT NOT NULL,
			UNIQUE (user_id, entry_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_next_review ON user_progress (user_id, next_review_ts)`,
		`CREATE TABLE IF NOT EXISTS practice_record (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			course_id INTEGER NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			mode TEXT NOT NULL,
			duration INTEGER,
			correct_count INTEGER NOT NULL DEFAULT 0,
			total_count INTEGER NOT NULL DEFAULT 0,
			accuracy INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_usage (
			user_id TEXT NOT NULL,
			usage_date TEXT NOT NULL,
			pronunciation_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, usage_date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		return s[:idx]
	}
	return s
}

// placeholder returns the positional parameter for index n (1-based).
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}

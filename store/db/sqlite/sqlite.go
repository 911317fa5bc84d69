package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hanroad/hanroad/internal/profile"
	"github.com/hanroad/hanroad/store"
)

// SQLite is the dev/demo database. There is no pgvector equivalent, so
// embeddings are stored as JSON text and similarity queries fall back to an
// exact in-process scan. That is acceptable below roughly 10^5 rows; use
// PostgreSQL in production.

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// SQLite handles concurrent writes poorly; serialize access.
	db.SetMaxOpenConns(1)

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
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'golden_corpus')").Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate creates the schema when absent.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS golden_corpus (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chinese TEXT NOT NULL UNIQUE,
			pinyin TEXT NOT NULL,
			english TEXT NOT NULL,
			level TEXT NOT NULL,
			category TEXT,
			scene TEXT,
			example_sentence TEXT,
			audio_url TEXT,
			source TEXT,
			embedding TEXT,
			verified INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_corpus_level ON golden_corpus (level)`,
		`CREATE TABLE IF NOT EXISTS cached_course (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt_embedding TEXT NOT NULL,
			prompt_hash TEXT NOT NULL,
			user_level TEXT,
			generated_course TEXT NOT NULL,
			hit_count INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL,
			expires_ts BIGINT NOT NULL,
			last_hit_ts BIGINT,
			CHECK (expires_ts > created_ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cache_hash ON cached_course (prompt_hash)`,
		`CREATE TABLE IF NOT EXISTS course (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			category TEXT NOT NULL,
			cover_image TEXT,
			description TEXT,
			total_words INTEGER NOT NULL DEFAULT 0,
			difficulty TEXT NOT NULL DEFAULT 'beginner',
			is_custom INTEGER NOT NULL DEFAULT 0,
			created_by TEXT,
			source_text TEXT,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS course_word (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_id INTEGER NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			entry_id INTEGER NOT NULL REFERENCES golden_corpus (id) ON DELETE CASCADE,
			word_order INTEGER NOT NULL,
			UNIQUE (course_id, entry_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_course (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			course_id INTEGER NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			progress INTEGER NOT NULL DEFAULT 0,
			is_completed INTEGER NOT NULL DEFAULT 0,
			last_learned_ts BIGINT,
			added_ts BIGINT NOT NULL,
			UNIQUE (user_id, course_id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			entry_id INTEGER NOT NULL REFERENCES golden_corpus (id) ON DELETE CASCADE,
			review_count INTEGER NOT NULL DEFAULT 0,
			correct_count INTEGER NOT NULL DEFAULT 0,
			mastered INTEGER NOT NULL DEFAULT 0,
			last_reviewed_ts BIGINT,
			next_review_ts BIGINT NOT NULL,
			UNIQUE (user_id, entry_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_progress_next_review ON user_progress (user_id, next_review_ts)`,
		`CREATE TABLE IF NOT EXISTS practice_record (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
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
			return errors.Wrap(err, "failed to execute migration")
		}
	}
	return nil
}

// placeholder returns a placeholder for SQLite (uses ?).
func placeholder(int) string {
	return "?"
}

// placeholders returns n placeholders for SQLite.
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = "?"
	}
	return strings.Join(list, ", ")
}

// marshalVector serializes an embedding as a JSON array.
func marshalVector(vec []float32) (string, error) {
	data, err := json.Marshal(vec)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal embedding")
	}
	return string(data), nil
}

// unmarshalVector parses a JSON array embedding.
func unmarshalVector(data string) ([]float32, error) {
	if data == "" {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(data), &vec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal embedding")
	}
	return vec, nil
}

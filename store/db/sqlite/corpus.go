package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hanroad/hanroad/plugin/ai/vector"
	"github.com/hanroad/hanroad/store"
)

// CreateCorpusEntry inserts a corpus entry. The embedding may be nil; the
// embedding runner fills it in later.
func (d *DB) CreateCorpusEntry(ctx context.Context, create *store.CorpusEntry) (*store.CorpusEntry, error) {
	now := time.Now().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now

	stmt := `
		INSERT INTO golden_corpus (chinese, pinyin, english, level, category, scene, example_sentence, audio_url, source, embedding, verified, created_ts, updated_ts)
		VALUES (` + placeholders(13) + `)
		RETURNING id
	`

	var embedding any
	if create.Embedding != nil {
		text, err := marshalVector(create.Embedding)
		if err != nil {
			return nil, err
		}
		embedding = text
	}

	err := d.db.QueryRowContext(ctx, stmt,
		create.Chinese,
		create.Pinyin,
		create.English,
		string(create.Level),
		create.Category,
		create.Scene,
		create.ExampleSentence,
		create.AudioURL,
		create.Source,
		embedding,
		create.Verified,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create corpus entry")
	}

	return create, nil
}

// ListCorpusEntries lists corpus entries. Embeddings are not hydrated.
func (d *DB) ListCorpusEntries(ctx context.Context, find *store.FindCorpusEntry) ([]*store.CorpusEntry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Chinese != nil {
		where, args = append(where, "chinese = "+placeholder(len(args)+1)), append(args, *find.Chinese)
	}
	if find.Level != nil {
		where, args = append(where, "level = "+placeholder(len(args)+1)), append(args, string(*find.Level))
	}

	query := `
		SELECT id, chinese, pinyin, english, level,
			COALESCE(category, ''), COALESCE(scene, ''), COALESCE(example_sentence, ''),
			COALESCE(audio_url, ''), COALESCE(source, ''),
			verified, created_ts, updated_ts
		FROM golden_corpus
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list corpus entries")
	}
	defer rows.Close()

	list := []*store.CorpusEntry{}
	for rows.Next() {
		entry, err := scanCorpusEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// UpdateCorpusEmbedding stores the embedding vector for a corpus entry.
func (d *DB) UpdateCorpusEmbedding(ctx context.Context, id int32, embedding []float32) error {
	text, err := marshalVector(embedding)
	if err != nil {
		return err
	}

	stmt := `UPDATE golden_corpus SET embedding = ` + placeholder(1) + `, updated_ts = ` + placeholder(2) + ` WHERE id = ` + placeholder(3)
	result, err := d.db.ExecContext(ctx, stmt, text, time.Now().Unix(), id)
	if err != nil {
		return errors.Wrap(err, "failed to update corpus embedding")
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return errors.Errorf("corpus entry %d not found", id)
	}
	return nil
}

// SearchCorpusByVector performs an exact brute-force similarity scan. SQLite
// has no vector index, so every embedded row is loaded and scored in process.
// Ties on distance break by ascending id, matching the PostgreSQL driver.
func (d *DB) SearchCorpusByVector(ctx context.Context, opts *store.CorpusSearchOptions) ([]*store.CorpusEntryWithScore, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, chinese, pinyin, english, level,
			COALESCE(category, ''), COALESCE(scene, ''), COALESCE(example_sentence, ''),
			COALESCE(audio_url, ''), COALESCE(source, ''),
			verified, created_ts, updated_ts, embedding
		FROM golden_corpus
		WHERE embedding IS NOT NULL
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search corpus")
	}
	defer rows.Close()

	idx := vector.NewMemoryIndex(len(opts.Vector))
	for rows.Next() {
		var entry store.CorpusEntry
		var embeddingText string
		err := rows.Scan(
			&entry.ID,
			&entry.Chinese,
			&entry.Pinyin,
			&entry.English,
			&entry.Level,
			&entry.Category,
			&entry.Scene,
			&entry.ExampleSentence,
			&entry.AudioURL,
			&entry.Source,
			&entry.Verified,
			&entry.CreatedTs,
			&entry.UpdatedTs,
			&embeddingText,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan corpus search result")
		}

		embedding, err := unmarshalVector(embeddingText)
		if err != nil {
			return nil, err
		}
		// Rows embedded under a different model dimensionality are skipped.
		if err := idx.Upsert(int64(entry.ID), embedding, &entry); err != nil {
			continue
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches, err := idx.Query(opts.Vector, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*store.CorpusEntryWithScore, 0, len(matches))
	for _, m := range matches {
		results = append(results, &store.CorpusEntryWithScore{
			Entry: m.Payload.(*store.CorpusEntry),
			Score: vector.Similarity(m.Distance),
		})
	}
	return results, nil
}

// FindCorpusEntriesWithoutEmbedding finds entries pending embedding.
func (d *DB) FindCorpusEntriesWithoutEmbedding(ctx context.Context, find *store.FindCorpusEntriesWithoutEmbedding) ([]*store.CorpusEntry, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, chinese, pinyin, english, level,
			COALESCE(category, ''), COALESCE(scene, ''), COALESCE(example_sentence, ''),
			COALESCE(audio_url, ''), COALESCE(source, ''),
			verified, created_ts, updated_ts
		FROM golden_corpus
		WHERE embedding IS NULL
		ORDER BY id
		LIMIT ` + placeholder(1)

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find corpus entries without embedding")
	}
	defer rows.Close()

	list := []*store.CorpusEntry{}
	for rows.Next() {
		entry, err := scanCorpusEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func scanCorpusEntry(rows *sql.Rows) (*store.CorpusEntry, error) {
	var entry store.CorpusEntry
	err := rows.Scan(
		&entry.ID,
		&entry.Chinese,
		&entry.Pinyin,
		&entry.English,
		&entry.Level,
		&entry.Category,
		&entry.Scene,
		&entry.ExampleSentence,
		&entry.AudioURL,
		&entry.Source,
		&entry.Verified,
		&entry.CreatedTs,
		&entry.UpdatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan corpus entry")
	}
	return &entry, nil
}

func clampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

package postgres

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hanroad/hanroad/store"
)

// CreateCachedCourse stores a freshly generated course.
func (d *DB) CreateCachedCourse(ctx context.Context, create *store.CachedCourse) (*store.CachedCourse, error) {
	payload, err := create.Payload.MarshalPayload()
	if err != nil {
		return nil, err
	}

	stmt := `
		INSERT INTO cached_course (prompt_embedding, prompt_hash, user_level, generated_course, hit_count, created_ts, expires_ts, last_hit_ts)
		VALUES (` + placeholders(8) + `)
		RETURNING id
	`

	var userLevel any
	if create.UserLevel != "" {
		userLevel = create.UserLevel
	}
	var lastHit any
	if create.LastHitTs != 0 {
		lastHit = create.LastHitTs
	}

	err = d.db.QueryRowContext(ctx, stmt,
		pgvector.NewVector(create.PromptEmbedding),
		create.PromptHash,
		userLevel,
		payload,
		create.HitCount,
		create.CreatedTs,
		create.ExpiresTs,
		lastHit,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cached course")
	}

	return create, nil
}

// GetCachedCourseByHash looks up an unexpired cached course by exact prompt
// hash. Expired rows are filtered out here rather than deleted (lazy expiry).
func (d *DB) GetCachedCourseByHash(ctx context.Context, find *store.FindCachedCourse) (*store.CachedCourse, error) {
	args := []any{find.PromptHash, find.UnexpiredAt}
	query := `
		SELECT id, prompt_hash, COALESCE(user_level, ''), generated_course, hit_count, created_ts, expires_ts, COALESCE(last_hit_ts, 0)
		FROM cached_course
		WHERE prompt_hash = ` + placeholder(1) + ` AND expires_ts > ` + placeholder(2)

	if find.UserLevel != "" {
		query += ` AND user_level = ` + placeholder(3)
		args = append(args, find.UserLevel)
	}
	query += ` ORDER BY created_ts DESC LIMIT 1`

	course, err := scanCachedCourse(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return course, nil
}

// NearestCachedCourse returns the single nearest unexpired cached course by
// cosine distance over the prompt embedding, or nil when the cache is empty.
func (d *DB) NearestCachedCourse(ctx context.Context, opts *store.NearestCachedCourseOptions) (*store.CachedCourseMatch, error) {
	vector := pgvector.NewVector(opts.Vector)
	args := []any{vector, opts.UnexpiredAt}
	query := `
		SELECT id, prompt_hash, COALESCE(user_level, ''), generated_course, hit_count, created_ts, expires_ts, COALESCE(last_hit_ts, 0),
			prompt_embedding <=> ` + placeholder(1) + ` AS distance
		FROM cached_course
		WHERE expires_ts > ` + placeholder(2)

	if opts.UserLevel != "" {
		query += ` AND user_level = ` + placeholder(3)
		args = append(args, opts.UserLevel)
	}
	query += ` ORDER BY distance, id LIMIT 1`

	row := d.db.QueryRowContext(ctx, query, args...)

	var course store.CachedCourse
	var userLevel string
	var payload []byte
	var distance float32
	err := row.Scan(
		&course.ID,
		&course.PromptHash,
		&userLevel,
		&payload,
		&course.HitCount,
		&course.CreatedTs,
		&course.ExpiresTs,
		&course.LastHitTs,
		&distance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find nearest cached course")
	}

	course.UserLevel = userLevel
	course.Payload, err = store.UnmarshalGeneratedCourse(payload)
	if err != nil {
		return nil, err
	}

	return &store.CachedCourseMatch{
		Course: &course,
		Score:  clampScore(1 - distance),
	}, nil
}

// TouchCachedCourse records a cache hit.
func (d *DB) TouchCachedCourse(ctx context.Context, id int32, hitTs int64) (*store.CachedCourse, error) {
	stmt := `
		UPDATE cached_course
		SET hit_count = hit_count + 1, last_hit_ts = ` + placeholder(1) + `
		WHERE id = ` + placeholder(2) + `
		RETURNING id, prompt_hash, COALESCE(user_level, ''), generated_course, hit_count, created_ts, expires_ts, COALESCE(last_hit_ts, 0)
	`

	course, err := scanCachedCourse(d.db.QueryRowContext(ctx, stmt, hitTs, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("cached course %d not found", id)
		}
		return nil, err
	}
	return course, nil
}

// DeleteExpiredCachedCourses removes rows past their expiry.
func (d *DB) DeleteExpiredCachedCourses(ctx context.Context, beforeTs int64) (int64, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM cached_course WHERE expires_ts <= `+placeholder(1), beforeTs)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired cached courses")
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted cached courses")
	}
	return rowsAffected, nil
}

func scanCachedCourse(row *sql.Row) (*store.CachedCourse, error) {
	var course store.CachedCourse
	var payload []byte
	err := row.Scan(
		&course.ID,
		&course.PromptHash,
		&course.UserLevel,
		&payload,
		&course.HitCount,
		&course.CreatedTs,
		&course.ExpiresTs,
		&course.LastHitTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "failed to scan cached course")
	}

	course.Payload, err = store.UnmarshalGeneratedCourse(payload)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

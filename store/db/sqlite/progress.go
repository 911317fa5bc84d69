package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hanroad/hanroad/store"
)

// UpsertUserProgress inserts or replaces a review record for (user, word).
func (d *DB) UpsertUserProgress(ctx context.Context, upsert *store.UserProgress) (*store.UserProgress, error) {
	stmt := `
		INSERT INTO user_progress (user_id, entry_id, review_count, correct_count, mastered, last_reviewed_ts, next_review_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (user_id, entry_id)
		DO UPDATE SET
			review_count = EXCLUDED.review_count,
			correct_count = EXCLUDED.correct_count,
			mastered = EXCLUDED.mastered,
			last_reviewed_ts = EXCLUDED.last_reviewed_ts,
			next_review_ts = EXCLUDED.next_review_ts
		RETURNING id
	`

	var lastReviewed any
	if upsert.LastReviewedTs != 0 {
		lastReviewed = upsert.LastReviewedTs
	}

	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.EntryID,
		upsert.ReviewCount,
		upsert.CorrectCount,
		upsert.Mastered,
		lastReviewed,
		upsert.NextReviewTs,
	).Scan(&upsert.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert user progress")
	}

	return upsert, nil
}

// ListUserProgress lists review records.
func (d *DB) ListUserProgress(ctx context.Context, find *store.FindUserProgress) ([]*store.UserProgress, error) {
	where, args := []string{"user_id = " + placeholder(1)}, []any{find.UserID}

	if find.EntryID != nil {
		where, args = append(where, "entry_id = "+placeholder(len(args)+1)), append(args, *find.EntryID)
	}
	if find.DueBefore != nil {
		where, args = append(where, "next_review_ts <= "+placeholder(len(args)+1)), append(args, *find.DueBefore)
		where = append(where, "mastered = FALSE")
	}

	query := `
		SELECT id, user_id, entry_id, review_count, correct_count, mastered, COALESCE(last_reviewed_ts, 0), next_review_ts
		FROM user_progress
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY next_review_ts
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user progress")
	}
	defer rows.Close()

	list := []*store.UserProgress{}
	for rows.Next() {
		var up store.UserProgress
		err := rows.Scan(&up.ID, &up.UserID, &up.EntryID, &up.ReviewCount, &up.CorrectCount, &up.Mastered, &up.LastReviewedTs, &up.NextReviewTs)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user progress")
		}
		list = append(list, &up)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CreatePracticeRecord stores a practice session.
func (d *DB) CreatePracticeRecord(ctx context.Context, create *store.PracticeRecord) (*store.PracticeRecord, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO practice_record (user_id, course_id, mode, duration, correct_count, total_count, accuracy, created_ts)
		VALUES (` + placeholders(8) + `)
		RETURNING id
	`
	err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.CourseID,
		create.Mode,
		create.Duration,
		create.CorrectCount,
		create.TotalCount,
		create.Accuracy,
		create.CreatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create practice record")
	}

	return create, nil
}

// ListPracticeRecords lists practice sessions for a user, newest first.
func (d *DB) ListPracticeRecords(ctx context.Context, userID string, limit int) ([]*store.PracticeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, course_id, mode, COALESCE(duration, 0), correct_count, total_count, accuracy, created_ts
		FROM practice_record
		WHERE user_id = ` + placeholder(1) + `
		ORDER BY created_ts DESC, id DESC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list practice records")
	}
	defer rows.Close()

	list := []*store.PracticeRecord{}
	for rows.Next() {
		var pr store.PracticeRecord
		err := rows.Scan(&pr.ID, &pr.UserID, &pr.CourseID, &pr.Mode, &pr.Duration, &pr.CorrectCount, &pr.TotalCount, &pr.Accuracy, &pr.CreatedTs)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan practice record")
		}
		list = append(list, &pr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// IncrementPronunciationUsage bumps the per-day counter and returns the new count.
func (d *DB) IncrementPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error) {
	stmt := `
		INSERT INTO user_usage (user_id, usage_date, pronunciation_count)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (user_id, usage_date)
		DO UPDATE SET pronunciation_count = user_usage.pronunciation_count + 1
		RETURNING pronunciation_count
	`

	var count int32
	if err := d.db.QueryRowContext(ctx, stmt, userID, usageDate, 1).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to increment pronunciation usage")
	}
	return count, nil
}

// GetPronunciationUsage returns the per-day counter, zero when absent.
func (d *DB) GetPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error) {
	query := `
		SELECT COALESCE(
			(SELECT pronunciation_count FROM user_usage WHERE user_id = ` + placeholder(1) + ` AND usage_date = ` + placeholder(2) + `), 0)
	`

	var count int32
	if err := d.db.QueryRowContext(ctx, query, userID, usageDate).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to get pronunciation usage")
	}
	return count, nil
}

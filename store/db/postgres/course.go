package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hanroad/hanroad/store"
)

// CreateCourse creates a course together with its word list in one transaction.
func (d *DB) CreateCourse(ctx context.Context, create *store.Course, words []*store.CourseWord) (*store.Course, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	create.CreatedTs = now
	create.UpdatedTs = now
	create.TotalWords = int32(len(words))

	stmt := `
		INSERT INTO course (title, slug, category, cover_image, description, total_words, difficulty, is_custom, created_by, source_text, created_ts, updated_ts)
		VALUES (` + placeholders(12) + `)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, stmt,
		create.Title,
		create.Slug,
		create.Category,
		create.CoverImage,
		create.Description,
		create.TotalWords,
		create.Difficulty,
		create.IsCustom,
		create.CreatedBy,
		create.SourceText,
		create.CreatedTs,
		create.UpdatedTs,
	).Scan(&create.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create course")
	}

	for _, word := range words {
		word.CourseID = create.ID
		_, err := tx.ExecContext(ctx,
			`INSERT INTO course_word (course_id, entry_id, word_order) VALUES (`+placeholders(3)+`)`,
			word.CourseID, word.EntryID, word.Order,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create course word")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit course creation")
	}
	return create, nil
}

// ListCourses lists courses.
func (d *DB) ListCourses(ctx context.Context, find *store.FindCourse) ([]*store.Course, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.Slug != nil {
		where, args = append(where, "slug = "+placeholder(len(args)+1)), append(args, *find.Slug)
	}
	if find.Category != nil {
		where, args = append(where, "category = "+placeholder(len(args)+1)), append(args, *find.Category)
	}

	query := `
		SELECT id, title, slug, category, COALESCE(cover_image, ''), COALESCE(description, ''),
			total_words, difficulty, is_custom, COALESCE(created_by, ''), COALESCE(source_text, ''),
			created_ts, updated_ts
		FROM course
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list courses")
	}
	defer rows.Close()

	list := []*store.Course{}
	for rows.Next() {
		var course store.Course
		err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Slug,
			&course.Category,
			&course.CoverImage,
			&course.Description,
			&course.TotalWords,
			&course.Difficulty,
			&course.IsCustom,
			&course.CreatedBy,
			&course.SourceText,
			&course.CreatedTs,
			&course.UpdatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan course")
		}
		list = append(list, &course)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// ListCourseWords lists the corpus entries of a course in word order.
func (d *DB) ListCourseWords(ctx context.Context, courseID int32) ([]*store.CorpusEntry, error) {
	query := `
		SELECT g.id, g.chinese, g.pinyin, g.english, g.level,
			COALESCE(g.category, ''), COALESCE(g.scene, ''), COALESCE(g.example_sentence, ''),
			COALESCE(g.audio_url, ''), COALESCE(g.source, ''),
			g.verified, g.created_ts, g.updated_ts
		FROM course_word cw
		INNER JOIN golden_corpus g ON g.id = cw.entry_id
		WHERE cw.course_id = ` + placeholder(1) + `
		ORDER BY cw.word_order
	`

	rows, err := d.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list course words")
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

// UpsertUserCourse enrolls a user in a course (idempotent).
func (d *DB) UpsertUserCourse(ctx context.Context, upsert *store.UserCourse) (*store.UserCourse, error) {
	if upsert.AddedTs == 0 {
		upsert.AddedTs = time.Now().Unix()
	}

	stmt := `
		INSERT INTO user_course (user_id, course_id, progress, is_completed, last_learned_ts, added_ts)
		VALUES (` + placeholders(6) + `)
		ON CONFLICT (user_id, course_id)
		DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, progress, is_completed, COALESCE(last_learned_ts, 0), added_ts
	`

	var lastLearned any
	if upsert.LastLearnedTs != 0 {
		lastLearned = upsert.LastLearnedTs
	}

	err := d.db.QueryRowContext(ctx, stmt,
		upsert.UserID,
		upsert.CourseID,
		upsert.Progress,
		upsert.IsCompleted,
		lastLearned,
		upsert.AddedTs,
	).Scan(&upsert.ID, &upsert.Progress, &upsert.IsCompleted, &upsert.LastLearnedTs, &upsert.AddedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert user course")
	}

	return upsert, nil
}

// ListUserCourses lists a user's enrollments.
func (d *DB) ListUserCourses(ctx context.Context, find *store.FindUserCourse) ([]*store.UserCourse, error) {
	where, args := []string{"user_id = " + placeholder(1)}, []any{find.UserID}

	if find.CourseID != nil {
		where, args = append(where, "course_id = "+placeholder(len(args)+1)), append(args, *find.CourseID)
	}

	query := `
		SELECT id, user_id, course_id, progress, is_completed, COALESCE(last_learned_ts, 0), added_ts
		FROM user_course
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY added_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user courses")
	}
	defer rows.Close()

	list := []*store.UserCourse{}
	for rows.Next() {
		var uc store.UserCourse
		err := rows.Scan(&uc.ID, &uc.UserID, &uc.CourseID, &uc.Progress, &uc.IsCompleted, &uc.LastLearnedTs, &uc.AddedTs)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan user course")
		}
		list = append(list, &uc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// UpdateUserCourse updates enrollment progress.
func (d *DB) UpdateUserCourse(ctx context.Context, update *store.UpdateUserCourse) (*store.UserCourse, error) {
	set, args := []string{}, []any{}

	if update.Progress != nil {
		set, args = append(set, "progress = "+placeholder(len(args)+1)), append(args, *update.Progress)
	}
	if update.IsCompleted != nil {
		set, args = append(set, "is_completed = "+placeholder(len(args)+1)), append(args, *update.IsCompleted)
	}
	if update.LastLearnedTs != nil {
		set, args = append(set, "last_learned_ts = "+placeholder(len(args)+1)), append(args, *update.LastLearnedTs)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.UserID, update.CourseID)
	stmt := `
		UPDATE user_course
		SET ` + strings.Join(set, ", ") + `
		WHERE user_id = ` + placeholder(len(args)-1) + ` AND course_id = ` + placeholder(len(args)) + `
		RETURNING id, user_id, course_id, progress, is_completed, COALESCE(last_learned_ts, 0), added_ts
	`

	var uc store.UserCourse
	err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&uc.ID, &uc.UserID, &uc.CourseID, &uc.Progress, &uc.IsCompleted, &uc.LastLearnedTs, &uc.AddedTs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("enrollment not found for course %d", update.CourseID)
		}
		return nil, errors.Wrap(err, "failed to update user course")
	}

	return &uc, nil
}

// Package review schedules vocabulary reviews on a fixed interval ladder.
//
// Each correct answer advances a word one rung (1, 3, 7, 14, 30 days); a
// wrong answer drops it back to the first rung. A word that clears the last
// rung is mastered and leaves the review queue.
package review

import (
	"context"
	"time"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

// Intervals is the review ladder, in days. CorrectCount on a progress record
// is the current streak of consecutive correct answers and indexes this ladder.
var Intervals = []int{1, 3, 7, 14, 30}

// ProgressStore is the slice of the store the service needs.
type ProgressStore interface {
	GetUserProgress(ctx context.Context, userID string, entryID int32) (*store.UserProgress, error)
	UpsertUserProgress(ctx context.Context, upsert *store.UserProgress) (*store.UserProgress, error)
	ListUserProgress(ctx context.Context, find *store.FindUserProgress) ([]*store.UserProgress, error)
}

// Service schedules reviews.
type Service struct {
	progress ProgressStore
	now      func() time.Time
}

func NewService(progress ProgressStore) *Service {
	return &Service{
		progress: progress,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DueWords returns unmastered words whose next review is due, soonest first.
func (s *Service) DueWords(ctx context.Context, userID string, limit int) ([]*store.UserProgress, error) {
	if userID == "" {
		return nil, apperr.InvalidQuery("user id must not be empty")
	}
	due := s.now().Unix()
	return s.progress.ListUserProgress(ctx, &store.FindUserProgress{
		UserID:    userID,
		DueBefore: &due,
		Limit:     limit,
	})
}

// RecordAnswer applies one answer to a word's schedule. A word with no prior
// record starts at the first rung.
func (s *Service) RecordAnswer(ctx context.Context, userID string, entryID int32, correct bool) (*store.UserProgress, error) {
	if userID == "" {
		return nil, apperr.InvalidQuery("user id must not be empty")
	}

	progress, err := s.progress.GetUserProgress(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = &store.UserProgress{UserID: userID, EntryID: entryID}
	}

	now := s.now()
	progress.ReviewCount++
	progress.LastReviewedTs = now.Unix()

	if correct {
		progress.CorrectCount++
		if int(progress.CorrectCount) >= len(Intervals) {
			progress.Mastered = true
		}
	} else {
		progress.CorrectCount = 0
		progress.Mastered = false
	}

	rung := int(progress.CorrectCount) - 1
	if rung < 0 {
		rung = 0
	}
	if rung >= len(Intervals) {
		rung = len(Intervals) - 1
	}
	progress.NextReviewTs = now.Add(time.Duration(Intervals[rung]) * 24 * time.Hour).Unix()

	return s.progress.UpsertUserProgress(ctx, progress)
}

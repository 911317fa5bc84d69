// Package usage enforces per-day usage quotas.
package usage

import (
	"context"
	"time"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

// DailyPronunciationLimit is the free-tier cap on pronunciation assessments
// per user per UTC day.
const DailyPronunciationLimit = 10

// UsageStore is the slice of the store the service needs.
type UsageStore interface {
	GetPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error)
	IncrementPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error)
}

// Service tracks quota consumption.
type Service struct {
	store UsageStore
	limit int32
	now   func() time.Time
}

func NewService(store UsageStore) *Service {
	return &Service{
		store: store,
		limit: DailyPronunciationLimit,
		now:   time.Now,
	}
}

// WithLimit overrides the daily cap.
func (s *Service) WithLimit(limit int32) *Service {
	s.limit = limit
	return s
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) usageDate() string {
	return s.now().UTC().Format("2006-01-02")
}

// ConsumePronunciation spends one pronunciation assessment and returns the
// remaining allowance. At the cap it returns a quota error without consuming.
func (s *Service) ConsumePronunciation(ctx context.Context, userID string) (int32, error) {
	if userID == "" {
		return 0, apperr.InvalidQuery("user id must not be empty")
	}

	date := s.usageDate()
	used, err := s.store.GetPronunciationUsage(ctx, userID, date)
	if err != nil {
		return 0, err
	}
	if used >= s.limit {
		return 0, apperr.QuotaExceeded("daily pronunciation limit reached")
	}

	count, err := s.store.IncrementPronunciationUsage(ctx, userID, date)
	if err != nil {
		return 0, err
	}
	remaining := s.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// RemainingPronunciation reports the allowance left today.
func (s *Service) RemainingPronunciation(ctx context.Context, userID string) (int32, error) {
	if userID == "" {
		return 0, apperr.InvalidQuery("user id must not be empty")
	}
	used, err := s.store.GetPronunciationUsage(ctx, userID, s.usageDate())
	if err != nil {
		return 0, err
	}
	remaining := s.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

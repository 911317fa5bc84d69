// Package achievements derives learning milestones from review progress and
// practice history. Everything is computed on read; no achievement state is
// stored.
package achievements

import (
	"context"
	"fmt"
	"time"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

// historyWindow caps how many practice sessions feed the streak calculation.
const historyWindow = 1000

const dayFormat = "2006-01-02"

// Milestone is a named target over mastered words or consecutive study days.
type Milestone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Target      int    `json:"target"`
	Achieved    bool   `json:"achieved"`
	Icon        string `json:"icon"`
}

var masteryMilestones = []Milestone{
	{ID: "first-10", Name: "First Steps", Description: "Master 10 words", Target: 10, Icon: "🌱"},
	{ID: "first-25", Name: "Getting Started", Description: "Master 25 words", Target: 25, Icon: "📚"},
	{ID: "first-50", Name: "Building Foundation", Description: "Master 50 words", Target: 50, Icon: "🏗️"},
	{ID: "first-100", Name: "Century Club", Description: "Master 100 words", Target: 100, Icon: "💯"},
	{ID: "first-250", Name: "Vocabulary Builder", Description: "Master 250 words", Target: 250, Icon: "📖"},
	{ID: "first-500", Name: "Word Master", Description: "Master 500 words", Target: 500, Icon: "👑"},
	{ID: "first-1000", Name: "Language Expert", Description: "Master 1000 words", Target: 1000, Icon: "🌟"},
}

var streakMilestones = []Milestone{
	{ID: "streak-3", Name: "3-Day Streak", Description: "Study for 3 days in a row", Target: 3, Icon: "🔥"},
	{ID: "streak-7", Name: "Week Warrior", Description: "Study for 7 days in a row", Target: 7, Icon: "💪"},
	{ID: "streak-14", Name: "Two Weeks Strong", Description: "Study for 14 days in a row", Target: 14, Icon: "⚡"},
	{ID: "streak-30", Name: "Monthly Champion", Description: "Study for 30 days in a row", Target: 30, Icon: "🏆"},
	{ID: "streak-100", Name: "Century Streak", Description: "Study for 100 days in a row", Target: 100, Icon: "🎯"},
}

// Summary is a user's achievement state.
type Summary struct {
	StreakDays    int         `json:"streakDays"`
	TotalMastered int         `json:"totalMastered"`
	Milestones    []Milestone `json:"milestones"`
	NextMilestone *Milestone  `json:"nextMilestone"`
	Encouragement string      `json:"encouragement"`
}

// ProgressStore is the slice of the store the service needs.
type ProgressStore interface {
	ListUserProgress(ctx context.Context, find *store.FindUserProgress) ([]*store.UserProgress, error)
	ListPracticeRecords(ctx context.Context, userID string, limit int) ([]*store.PracticeRecord, error)
}

// Service computes achievements.
type Service struct {
	store ProgressStore
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store ProgressStore, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize computes a user's mastered-word count, current study streak, and
// milestone standing. Activity days come from both review timestamps and
// practice sessions; either counts toward the streak.
func (s *Service) Summarize(ctx context.Context, userID string) (*Summary, error) {
	if userID == "" {
		return nil, apperr.InvalidQuery("user id must not be empty")
	}

	progress, err := s.store.ListUserProgress(ctx, &store.FindUserProgress{UserID: userID})
	if err != nil {
		return nil, err
	}
	practices, err := s.store.ListPracticeRecords(ctx, userID, historyWindow)
	if err != nil {
		return nil, err
	}

	mastered := 0
	activeDays := map[string]bool{}
	for _, p := range progress {
		if p.Mastered {
			mastered++
		}
		if p.LastReviewedTs > 0 {
			activeDays[dayOf(p.LastReviewedTs)] = true
		}
	}
	for _, r := range practices {
		activeDays[dayOf(r.CreatedTs)] = true
	}

	streak := streakDays(activeDays, s.now())

	all := make([]Milestone, 0, len(masteryMilestones)+len(streakMilestones))
	for _, m := range masteryMilestones {
		m.Achieved = mastered >= m.Target
		all = append(all, m)
	}
	for _, m := range streakMilestones {
		m.Achieved = streak >= m.Target
		all = append(all, m)
	}

	achieved := []Milestone{}
	var next *Milestone
	for i := range all {
		if all[i].Achieved {
			achieved = append(achieved, all[i])
		} else if next == nil {
			next = &all[i]
		}
	}

	return &Summary{
		StreakDays:    streak,
		TotalMastered: mastered,
		Milestones:    achieved,
		NextMilestone: next,
		Encouragement: encouragement(streak, mastered),
	}, nil
}

func dayOf(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(dayFormat)
}

// streakDays counts consecutive active days ending today, or yesterday when
// today has no activity yet.
func streakDays(activeDays map[string]bool, now time.Time) int {
	if len(activeDays) == 0 {
		return 0
	}

	day := now.UTC()
	if !activeDays[day.Format(dayFormat)] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for activeDays[day.Format(dayFormat)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func encouragement(streak, mastered int) string {
	switch {
	case streak >= 30:
		return fmt.Sprintf("Amazing! You've maintained a %d-day streak!", streak)
	case streak >= 7:
		return fmt.Sprintf("Great! You're on a %d-day streak!", streak)
	case mastered >= 100:
		return fmt.Sprintf("Excellent! You've mastered %d words!", mastered)
	case mastered >= 50:
		return fmt.Sprintf("Keep going! You've mastered %d words!", mastered)
	default:
		return "You're building a solid foundation!"
	}
}

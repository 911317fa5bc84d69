package store

import "context"

// UserProgress is a per-(user, word) spaced-review record.
type UserProgress struct {
	ID             int32
	UserID         string
	EntryID        int32
	ReviewCount    int32
	CorrectCount   int32
	Mastered       bool
	LastReviewedTs int64
	NextReviewTs   int64
}

// FindUserProgress is the find condition for review records.
type FindUserProgress struct {
	UserID  string
	EntryID *int32
	// DueBefore limits results to records whose next review is at or
	// before this unix timestamp.
	DueBefore *int64
	Limit     int
}

// PracticeRecord is a completed practice session.
type PracticeRecord struct {
	ID           int32
	UserID       string
	CourseID     int32
	Mode         string // translate/dictation/listening/speaking
	Duration     int32  // seconds
	CorrectCount int32
	TotalCount   int32
	Accuracy     int32 // 0-100
	CreatedTs    int64
}

// UserUsage tracks per-day usage counters for quota enforcement.
type UserUsage struct {
	UserID             string
	UsageDate          string // YYYY-MM-DD
	PronunciationCount int32
}

// UpsertUserProgress inserts or replaces a review record for (user, word).
func (s *Store) UpsertUserProgress(ctx context.Context, upsert *UserProgress) (*UserProgress, error) {
	return s.driver.UpsertUserProgress(ctx, upsert)
}

// GetUserProgress gets the review record for a single word, or nil.
func (s *Store) GetUserProgress(ctx context.Context, userID string, entryID int32) (*UserProgress, error) {
	list, err := s.driver.ListUserProgress(ctx, &FindUserProgress{UserID: userID, EntryID: &entryID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListUserProgress lists review records.
func (s *Store) ListUserProgress(ctx context.Context, find *FindUserProgress) ([]*UserProgress, error) {
	return s.driver.ListUserProgress(ctx, find)
}

// CreatePracticeRecord stores a practice session.
func (s *Store) CreatePracticeRecord(ctx context.Context, create *PracticeRecord) (*PracticeRecord, error) {
	return s.driver.CreatePracticeRecord(ctx, create)
}

// ListPracticeRecords lists practice sessions for a user.
func (s *Store) ListPracticeRecords(ctx context.Context, userID string, limit int) ([]*PracticeRecord, error) {
	return s.driver.ListPracticeRecords(ctx, userID, limit)
}

// IncrementPronunciationUsage bumps the per-day pronunciation counter and
// returns the new count.
func (s *Store) IncrementPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error) {
	return s.driver.IncrementPronunciationUsage(ctx, userID, usageDate)
}

// GetPronunciationUsage returns the per-day pronunciation counter.
func (s *Store) GetPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error) {
	return s.driver.GetPronunciationUsage(ctx, userID, usageDate)
}

package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// CorpusEntry model related methods.
	CreateCorpusEntry(ctx context.Context, create *CorpusEntry) (*CorpusEntry, error)
	ListCorpusEntries(ctx context.Context, find *FindCorpusEntry) ([]*CorpusEntry, error)
	UpdateCorpusEmbedding(ctx context.Context, id int32, embedding []float32) error
	SearchCorpusByVector(ctx context.Context, opts *CorpusSearchOptions) ([]*CorpusEntryWithScore, error)
	FindCorpusEntriesWithoutEmbedding(ctx context.Context, find *FindCorpusEntriesWithoutEmbedding) ([]*CorpusEntry, error)

	// CachedCourse model related methods.
	CreateCachedCourse(ctx context.Context, create *CachedCourse) (*CachedCourse, error)
	GetCachedCourseByHash(ctx context.Context, find *FindCachedCourse) (*CachedCourse, error)
	NearestCachedCourse(ctx context.Context, opts *NearestCachedCourseOptions) (*CachedCourseMatch, error)
	TouchCachedCourse(ctx context.Context, id int32, hitTs int64) (*CachedCourse, error)
	DeleteExpiredCachedCourses(ctx context.Context, beforeTs int64) (int64, error)

	// Course model related methods.
	CreateCourse(ctx context.Context, create *Course, words []*CourseWord) (*Course, error)
	ListCourses(ctx context.Context, find *FindCourse) ([]*Course, error)
	ListCourseWords(ctx context.Context, courseID int32) ([]*CorpusEntry, error)
	UpsertUserCourse(ctx context.Context, upsert *UserCourse) (*UserCourse, error)
	ListUserCourses(ctx context.Context, find *FindUserCourse) ([]*UserCourse, error)
	UpdateUserCourse(ctx context.Context, update *UpdateUserCourse) (*UserCourse, error)

	// UserProgress model related methods.
	UpsertUserProgress(ctx context.Context, upsert *UserProgress) (*UserProgress, error)
	ListUserProgress(ctx context.Context, find *FindUserProgress) ([]*UserProgress, error)

	// PracticeRecord model related methods.
	CreatePracticeRecord(ctx context.Context, create *PracticeRecord) (*PracticeRecord, error)
	ListPracticeRecords(ctx context.Context, userID string, limit int) ([]*PracticeRecord, error)

	// UserUsage model related methods.
	IncrementPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error)
	GetPronunciationUsage(ctx context.Context, userID, usageDate string) (int32, error)
}

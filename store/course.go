package store

import "context"

// Course represents a learning course in the catalog.
type Course struct {
	ID          int32
	Title       string
	Slug        string
	Category    string // "business", "hsk1".."hsk6", or "custom"
	CoverImage  string
	Description string
	TotalWords  int32
	Difficulty  string // beginner/intermediate/advanced
	IsCustom    bool
	CreatedBy   string // user id for custom courses
	SourceText  string
	CreatedTs   int64
	UpdatedTs   int64
}

// CourseWord links a course to a corpus entry with an ordering.
type CourseWord struct {
	ID       int32
	CourseID int32
	EntryID  int32
	Order    int32
}

// UserCourse records a user's enrollment in a course.
type UserCourse struct {
	ID            int32
	UserID        string
	CourseID      int32
	Progress      int32 // percentage 0-100
	IsCompleted   bool
	LastLearnedTs int64
	AddedTs       int64
}

// FindCourse is the find condition for courses.
type FindCourse struct {
	ID       *int32
	Slug     *string
	Category *string
	Limit    int
}

// FindUserCourse is the find condition for enrollments.
type FindUserCourse struct {
	UserID   string
	CourseID *int32
}

// UpdateUserCourse updates enrollment progress.
type UpdateUserCourse struct {
	UserID        string
	CourseID      int32
	Progress      *int32
	IsCompleted   *bool
	LastLearnedTs *int64
}

// CreateCourse creates a course together with its word list.
func (s *Store) CreateCourse(ctx context.Context, create *Course, words []*CourseWord) (*Course, error) {
	return s.driver.CreateCourse(ctx, create, words)
}

// ListCourses lists courses.
func (s *Store) ListCourses(ctx context.Context, find *FindCourse) ([]*Course, error) {
	return s.driver.ListCourses(ctx, find)
}

// GetCourse gets a single course, or nil if absent.
func (s *Store) GetCourse(ctx context.Context, find *FindCourse) (*Course, error) {
	list, err := s.driver.ListCourses(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListCourseWords lists the words of a course in order.
func (s *Store) ListCourseWords(ctx context.Context, courseID int32) ([]*CorpusEntry, error) {
	return s.driver.ListCourseWords(ctx, courseID)
}

// UpsertUserCourse enrolls a user in a course (idempotent).
func (s *Store) UpsertUserCourse(ctx context.Context, upsert *UserCourse) (*UserCourse, error) {
	return s.driver.UpsertUserCourse(ctx, upsert)
}

// ListUserCourses lists a user's enrollments.
func (s *Store) ListUserCourses(ctx context.Context, find *FindUserCourse) ([]*UserCourse, error) {
	return s.driver.ListUserCourses(ctx, find)
}

// UpdateUserCourse updates enrollment progress.
func (s *Store) UpdateUserCourse(ctx context.Context, update *UpdateUserCourse) (*UserCourse, error) {
	return s.driver.UpdateUserCourse(ctx, update)
}

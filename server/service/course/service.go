// Package course manages the course catalog, custom courses, and enrollment.
package course

import (
	"context"
	"strings"
	"unicode"

	"github.com/lithammer/shortuuid/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

// MaxCustomCourseWords caps the size of a user-built course.
const MaxCustomCourseWords = 50

// CourseStore is the slice of the store the service needs.
type CourseStore interface {
	GetCorpusEntry(ctx context.Context, find *store.FindCorpusEntry) (*store.CorpusEntry, error)
	CreateCourse(ctx context.Context, create *store.Course, words []*store.CourseWord) (*store.Course, error)
	GetCourse(ctx context.Context, find *store.FindCourse) (*store.Course, error)
	ListCourses(ctx context.Context, find *store.FindCourse) ([]*store.Course, error)
	ListCourseWords(ctx context.Context, courseID int32) ([]*store.CorpusEntry, error)
	UpsertUserCourse(ctx context.Context, upsert *store.UserCourse) (*store.UserCourse, error)
}

// Service manages courses.
type Service struct {
	store CourseStore
}

func NewService(store CourseStore) *Service {
	return &Service{store: store}
}

// CreateCustomCourseRequest is the input for a user-built course.
type CreateCustomCourseRequest struct {
	UserID      string
	Title       string
	Description string
	// SourceText is a free-form word list. Words are matched against the
	// corpus; unmatched words are reported back, not stored.
	SourceText string
}

// CreateCustomCourseResult carries the created course and any words that
// could not be matched.
type CreateCustomCourseResult struct {
	Course    *store.Course
	Entries   []*store.CorpusEntry
	Unmatched []string
}

// CreateCustomCourse builds a course from a raw word list. Every word must
// already exist in the corpus; words that do not are skipped and reported.
func (s *Service) CreateCustomCourse(ctx context.Context, req *CreateCustomCourseRequest) (*CreateCustomCourseResult, error) {
	if req.UserID == "" {
		return nil, apperr.InvalidQuery("user id must not be empty")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperr.InvalidQuery("course title must not be empty")
	}

	words := SplitWords(req.SourceText)
	if len(words) == 0 {
		return nil, apperr.InvalidQuery("source text contains no words")
	}
	if len(words) > MaxCustomCourseWords {
		return nil, apperr.InvalidQuery("custom courses are limited to 50 words")
	}

	entries := []*store.CorpusEntry{}
	unmatched := []string{}
	for _, word := range words {
		entry, err := s.store.GetCorpusEntry(ctx, &store.FindCorpusEntry{Chinese: &word})
		if err != nil {
			return nil, err
		}
		if entry == nil {
			unmatched = append(unmatched, word)
			continue
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, apperr.InvalidQuery("none of the words exist in the corpus")
	}

	courseWords := make([]*store.CourseWord, 0, len(entries))
	for i, entry := range entries {
		courseWords = append(courseWords, &store.CourseWord{EntryID: entry.ID, Order: int32(i)})
	}

	created, err := s.store.CreateCourse(ctx, &store.Course{
		Title:       strings.TrimSpace(req.Title),
		Slug:        shortuuid.New(),
		Category:    "custom",
		Description: req.Description,
		Difficulty:  "custom",
		IsCustom:    true,
		CreatedBy:   req.UserID,
		SourceText:  req.SourceText,
	}, courseWords)
	if err != nil {
		return nil, err
	}

	// The creator is enrolled in their own course right away.
	if _, err := s.store.UpsertUserCourse(ctx, &store.UserCourse{
		UserID:   req.UserID,
		CourseID: created.ID,
	}); err != nil {
		return nil, err
	}

	return &CreateCustomCourseResult{
		Course:    created,
		Entries:   entries,
		Unmatched: unmatched,
	}, nil
}

// GetCourseBySlug returns a course or a not-found error.
func (s *Service) GetCourseBySlug(ctx context.Context, slug string) (*store.Course, error) {
	course, err := s.store.GetCourse(ctx, &store.FindCourse{Slug: &slug})
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, apperr.NotFound("course not found")
	}
	return course, nil
}

// ListCourses lists catalog courses, optionally by category.
func (s *Service) ListCourses(ctx context.Context, category string, limit int) ([]*store.Course, error) {
	find := &store.FindCourse{Limit: limit}
	if category != "" {
		find.Category = &category
	}
	return s.store.ListCourses(ctx, find)
}

// ListWords returns a course's corpus entries in order.
func (s *Service) ListWords(ctx context.Context, courseID int32) ([]*store.CorpusEntry, error) {
	return s.store.ListCourseWords(ctx, courseID)
}

// Enroll adds a course to a user's list. Enrolling twice is a no-op.
func (s *Service) Enroll(ctx context.Context, userID, slug string) (*store.UserCourse, error) {
	if userID == "" {
		return nil, apperr.InvalidQuery("user id must not be empty")
	}
	course, err := s.GetCourseBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.store.UpsertUserCourse(ctx, &store.UserCourse{
		UserID:   userID,
		CourseID: course.ID,
	})
}

// SplitWords tokenizes a free-form word list. Words are separated by
// whitespace or by ASCII/CJK list punctuation; duplicates keep their first
// position.
func SplitWords(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', ';', '，', '；', '、', '。', '.':
			return true
		}
		return unicode.IsSpace(r)
	})

	seen := map[string]bool{}
	words := []string{}
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		words = append(words, f)
	}
	return words
}

package course

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

type fakeCourseStore struct {
	corpus  map[string]*store.CorpusEntry
	courses []*store.Course
	words   map[int32][]*store.CourseWord
	enrolls []*store.UserCourse
}

func newFakeCourseStore() *fakeCourseStore {
	return &fakeCourseStore{
		corpus: map[string]*store.CorpusEntry{},
		words:  map[int32][]*store.CourseWord{},
	}
}

func (f *fakeCourseStore) GetCorpusEntry(_ context.Context, find *store.FindCorpusEntry) (*store.CorpusEntry, error) {
	if find.Chinese != nil {
		return f.corpus[*find.Chinese], nil
	}
	return nil, nil
}

func (f *fakeCourseStore) CreateCourse(_ context.Context, create *store.Course, words []*store.CourseWord) (*store.Course, error) {
	create.ID = int32(len(f.courses) + 1)
	create.TotalWords = int32(len(words))
	f.courses = append(f.courses, create)
	f.words[create.ID] = words
	return create, nil
}

func (f *fakeCourseStore) GetCourse(_ context.Context, find *store.FindCourse) (*store.Course, error) {
	for _, c := range f.courses {
		if find.Slug != nil && c.Slug == *find.Slug {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCourseStore) ListCourses(_ context.Context, find *store.FindCourse) ([]*store.Course, error) {
	list := []*store.Course{}
	for _, c := range f.courses {
		if find.Category != nil && c.Category != *find.Category {
			continue
		}
		list = append(list, c)
	}
	return list, nil
}

func (f *fakeCourseStore) ListCourseWords(context.Context, int32) ([]*store.CorpusEntry, error) {
	return nil, nil
}

func (f *fakeCourseStore) UpsertUserCourse(_ context.Context, upsert *store.UserCourse) (*store.UserCourse, error) {
	for _, uc := range f.enrolls {
		if uc.UserID == upsert.UserID && uc.CourseID == upsert.CourseID {
			return uc, nil
		}
	}
	upsert.ID = int32(len(f.enrolls) + 1)
	f.enrolls = append(f.enrolls, upsert)
	return upsert, nil
}

func seedCorpus(f *fakeCourseStore, words ...string) {
	for i, w := range words {
		f.corpus[w] = &store.CorpusEntry{ID: int32(i + 1), Chinese: w}
	}
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"你好", "再见", "谢谢"}, SplitWords("你好，再见、谢谢"))
	assert.Equal(t, []string{"你好", "再见"}, SplitWords("你好 再见\n你好"))
	assert.Empty(t, SplitWords("  ，。\n "))
}

func TestCreateCustomCourse(t *testing.T) {
	ctx := context.Background()

	t.Run("creates course from matched words", func(t *testing.T) {
		fake := newFakeCourseStore()
		seedCorpus(fake, "你好", "再见")
		svc := NewService(fake)

		result, err := svc.CreateCustomCourse(ctx, &CreateCustomCourseRequest{
			UserID:     "user-1",
			Title:      "My Words",
			SourceText: "你好，再见，不存在",
		})
		require.NoError(t, err)
		assert.Equal(t, "My Words", result.Course.Title)
		assert.True(t, result.Course.IsCustom)
		assert.Equal(t, "user-1", result.Course.CreatedBy)
		assert.NotEmpty(t, result.Course.Slug)
		assert.Len(t, result.Entries, 2)
		assert.Equal(t, []string{"不存在"}, result.Unmatched)
		assert.Equal(t, int32(2), result.Course.TotalWords)

		words := fake.words[result.Course.ID]
		require.Len(t, words, 2)
		assert.Equal(t, int32(0), words[0].Order)
		assert.Equal(t, int32(1), words[1].Order)

		require.Len(t, fake.enrolls, 1, "creator is enrolled automatically")
		assert.Equal(t, "user-1", fake.enrolls[0].UserID)
		assert.Equal(t, result.Course.ID, fake.enrolls[0].CourseID)
	})

	t.Run("rejects when no word matches", func(t *testing.T) {
		svc := NewService(newFakeCourseStore())

		_, err := svc.CreateCustomCourse(ctx, &CreateCustomCourseRequest{
			UserID:     "user-1",
			Title:      "My Words",
			SourceText: "不存在",
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeInvalidQuery))
	})

	t.Run("rejects oversized word lists", func(t *testing.T) {
		fake := newFakeCourseStore()
		svc := NewService(fake)

		text := ""
		for i := 0; i < MaxCustomCourseWords+1; i++ {
			text += "词" + strconv.Itoa(i) + " "
		}

		_, err := svc.CreateCustomCourse(ctx, &CreateCustomCourseRequest{
			UserID:     "user-1",
			Title:      "Too Big",
			SourceText: text,
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeInvalidQuery))
	})

	t.Run("rejects blank title", func(t *testing.T) {
		svc := NewService(newFakeCourseStore())

		_, err := svc.CreateCustomCourse(ctx, &CreateCustomCourseRequest{
			UserID:     "user-1",
			Title:      "  ",
			SourceText: "你好",
		})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeInvalidQuery))
	})
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("enrolls by slug", func(t *testing.T) {
		fake := newFakeCourseStore()
		fake.courses = append(fake.courses, &store.Course{ID: 1, Slug: "hsk1-basics"})
		svc := NewService(fake)

		uc, err := svc.Enroll(ctx, "user-1", "hsk1-basics")
		require.NoError(t, err)
		assert.Equal(t, int32(1), uc.CourseID)

		again, err := svc.Enroll(ctx, "user-1", "hsk1-basics")
		require.NoError(t, err)
		assert.Equal(t, uc.ID, again.ID)
		assert.Len(t, fake.enrolls, 1)
	})

	t.Run("unknown slug yields not found", func(t *testing.T) {
		svc := NewService(newFakeCourseStore())

		_, err := svc.Enroll(ctx, "user-1", "missing")
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeNotFound))
	})
}

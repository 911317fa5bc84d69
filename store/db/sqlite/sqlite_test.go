package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanroad/hanroad/internal/profile"
	"github.com/hanroad/hanroad/store"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	db := driver.(*DB)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func createEntry(t *testing.T, db *DB, chinese string, embedding []float32) *store.CorpusEntry {
	t.Helper()
	entry, err := db.CreateCorpusEntry(context.Background(), &store.CorpusEntry{
		Chinese:   chinese,
		Pinyin:    "pinyin",
		English:   "english",
		Level:     store.LevelHSK1,
		Embedding: embedding,
	})
	require.NoError(t, err)
	return entry
}

func TestCorpusVectorSearch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	// Unit vectors at increasing angles from the query.
	createEntry(t, db, "word-exact", []float32{1, 0})
	createEntry(t, db, "word-near", []float32{0.9, 0.4359})
	createEntry(t, db, "word-far", []float32{0, 1})
	createEntry(t, db, "word-unembedded", nil)

	results, err := db.SearchCorpusByVector(ctx, &store.CorpusSearchOptions{
		Vector: []float32{1, 0},
		Limit:  10,
	})
	require.NoError(t, err)
	require.Len(t, results, 3, "entries without embeddings are skipped")

	assert.Equal(t, "word-exact", results[0].Entry.Chinese)
	assert.Equal(t, "word-near", results[1].Entry.Chinese)
	assert.Equal(t, "word-far", results[2].Entry.Chinese)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
	assert.Greater(t, results[1].Score, results[2].Score)

	limited, err := db.SearchCorpusByVector(ctx, &store.CorpusSearchOptions{
		Vector: []float32{1, 0},
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "word-exact", limited[0].Entry.Chinese)
}

func TestCorpusEmbeddingBackfill(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	entry := createEntry(t, db, "pending", nil)
	createEntry(t, db, "done", []float32{1, 0})

	pending, err := db.FindCorpusEntriesWithoutEmbedding(ctx, &store.FindCorpusEntriesWithoutEmbedding{Limit: 10})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.ID, pending[0].ID)

	require.NoError(t, db.UpdateCorpusEmbedding(ctx, entry.ID, []float32{0, 1}))

	pending, err = db.FindCorpusEntriesWithoutEmbedding(ctx, &store.FindCorpusEntriesWithoutEmbedding{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func cachePayload() *store.GeneratedCourse {
	return &store.GeneratedCourse{
		Title: "Test Course",
		Words: []store.GeneratedWord{{Chinese: "你好", Pinyin: "nǐ hǎo", English: "hello"}},
	}
}

func TestCachedCourseLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	now := time.Now().Unix()

	created, err := db.CreateCachedCourse(ctx, &store.CachedCourse{
		PromptEmbedding: []float32{1, 0},
		PromptHash:      "hash-a",
		UserLevel:       "HSK1",
		Payload:         cachePayload(),
		CreatedTs:       now,
		ExpiresTs:       now + 3600,
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	t.Run("hash lookup", func(t *testing.T) {
		found, err := db.GetCachedCourseByHash(ctx, &store.FindCachedCourse{
			PromptHash:  "hash-a",
			UserLevel:   "HSK1",
			UnexpiredAt: now,
		})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Test Course", found.Payload.Title)

		missing, err := db.GetCachedCourseByHash(ctx, &store.FindCachedCourse{
			PromptHash:  "hash-b",
			UnexpiredAt: now,
		})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("expired rows are invisible", func(t *testing.T) {
		found, err := db.GetCachedCourseByHash(ctx, &store.FindCachedCourse{
			PromptHash:  "hash-a",
			UnexpiredAt: now + 7200,
		})
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("nearest neighbor", func(t *testing.T) {
		_, err := db.CreateCachedCourse(ctx, &store.CachedCourse{
			PromptEmbedding: []float32{0, 1},
			PromptHash:      "hash-c",
			UserLevel:       "HSK1",
			Payload:         cachePayload(),
			CreatedTs:       now,
			ExpiresTs:       now + 3600,
		})
		require.NoError(t, err)

		match, err := db.NearestCachedCourse(ctx, &store.NearestCachedCourseOptions{
			Vector:      []float32{0.99, 0.14},
			UserLevel:   "HSK1",
			UnexpiredAt: now,
		})
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, created.ID, match.Course.ID)
		assert.Greater(t, match.Score, float32(0.95))
	})

	t.Run("touch increments hit count", func(t *testing.T) {
		touched, err := db.TouchCachedCourse(ctx, created.ID, now+10)
		require.NoError(t, err)
		assert.Equal(t, int32(1), touched.HitCount)
		assert.Equal(t, now+10, touched.LastHitTs)
	})

	t.Run("delete expired", func(t *testing.T) {
		deleted, err := db.DeleteExpiredCachedCourses(ctx, now+7200)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)
	})
}

func TestCourseAndEnrollment(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	e1 := createEntry(t, db, "你好", nil)
	e2 := createEntry(t, db, "再见", nil)

	created, err := db.CreateCourse(ctx, &store.Course{
		Title:      "Basics",
		Slug:       "basics",
		Category:   "hsk1",
		Difficulty: "beginner",
	}, []*store.CourseWord{
		{EntryID: e1.ID, Order: 0},
		{EntryID: e2.ID, Order: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), created.TotalWords)

	words, err := db.ListCourseWords(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "你好", words[0].Chinese)
	assert.Equal(t, "再见", words[1].Chinese)

	uc, err := db.UpsertUserCourse(ctx, &store.UserCourse{UserID: "user-1", CourseID: created.ID})
	require.NoError(t, err)
	again, err := db.UpsertUserCourse(ctx, &store.UserCourse{UserID: "user-1", CourseID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, uc.ID, again.ID)

	list, err := db.ListUserCourses(ctx, &store.FindUserCourse{UserID: "user-1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPronunciationUsage(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	count, err := db.GetPronunciationUsage(ctx, "user-1", "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int32(0), count)

	for i := int32(1); i <= 3; i++ {
		count, err = db.IncrementPronunciationUsage(ctx, "user-1", "2025-06-01")
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err = db.GetPronunciationUsage(ctx, "user-1", "2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, int32(0), count)
}

package coursegen

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

type fakeEmbedder struct {
	vector    []float32
	err       error
	callCount int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.callCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for range texts {
		vec, err := f.Embed(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, vec)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vector) }

type fakeCacheStore struct {
	hashHit    *store.CachedCourse
	hashErr    error
	nearest    *store.CachedCourseMatch
	nearestErr error
	touchErr   error
	createErr  error

	created         []*store.CachedCourse
	touched         []int32
	lastUnexpiredAt int64
}

func (f *fakeCacheStore) GetCachedCourseByHash(_ context.Context, find *store.FindCachedCourse) (*store.CachedCourse, error) {
	f.lastUnexpiredAt = find.UnexpiredAt
	if f.hashErr != nil {
		return nil, f.hashErr
	}
	if f.hashHit != nil && f.hashHit.PromptHash == find.PromptHash {
		return f.hashHit, nil
	}
	return nil, nil
}

func (f *fakeCacheStore) NearestCachedCourse(_ context.Context, opts *store.NearestCachedCourseOptions) (*store.CachedCourseMatch, error) {
	f.lastUnexpiredAt = opts.UnexpiredAt
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}
	return f.nearest, nil
}

func (f *fakeCacheStore) TouchCachedCourse(_ context.Context, id int32, hitTs int64) (*store.CachedCourse, error) {
	if f.touchErr != nil {
		return nil, f.touchErr
	}
	f.touched = append(f.touched, id)
	var source *store.CachedCourse
	if f.hashHit != nil && f.hashHit.ID == id {
		source = f.hashHit
	} else if f.nearest != nil && f.nearest.Course.ID == id {
		source = f.nearest.Course
	}
	if source == nil {
		return nil, errors.Errorf("cached course %d not found", id)
	}
	touched := *source
	touched.HitCount++
	touched.LastHitTs = hitTs
	return &touched, nil
}

func (f *fakeCacheStore) CreateCachedCourse(_ context.Context, create *store.CachedCourse) (*store.CachedCourse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	create.ID = int32(len(f.created) + 1)
	f.created = append(f.created, create)
	return create, nil
}

func testPayload() *store.GeneratedCourse {
	return &store.GeneratedCourse{
		Title: "Ordering Food",
		Words: []store.GeneratedWord{
			{Chinese: "点菜", Pinyin: "diǎn cài", English: "to order food"},
		},
	}
}

func staticCompute(payload *store.GeneratedCourse, err error) (ComputeFunc, *int) {
	count := 0
	return func(context.Context) (*store.GeneratedCourse, error) {
		count++
		return payload, err
	}, &count
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("exact hit skips embedding and compute", func(t *testing.T) {
		hash := HashPrompt("ordering food")
		cache := &fakeCacheStore{hashHit: &store.CachedCourse{
			ID: 7, PromptHash: hash, Payload: testPayload(), HitCount: 3,
		}}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, computeCount := staticCompute(nil, errors.New("must not run"))
		svc := NewService(cache, embedder, nil, WithClock(clock))

		course, outcome, err := svc.GetOrCompute(ctx, " ordering\nfood ", "", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeExactHit, outcome)
		assert.Equal(t, int32(4), course.HitCount)
		assert.Equal(t, now.Unix(), course.LastHitTs)
		assert.Equal(t, 0, embedder.callCount)
		assert.Equal(t, 0, *computeCount)
		assert.Equal(t, []int32{7}, cache.touched)
	})

	t.Run("expired rows are invisible", func(t *testing.T) {
		cache := &fakeCacheStore{}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, _ := staticCompute(testPayload(), nil)
		svc := NewService(cache, embedder, nil, WithClock(clock))

		_, _, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, now.Unix(), cache.lastUnexpiredAt)
	})

	t.Run("fuzzy hit at threshold", func(t *testing.T) {
		cache := &fakeCacheStore{nearest: &store.CachedCourseMatch{
			Course: &store.CachedCourse{ID: 9, PromptHash: HashPrompt("other"), Payload: testPayload()},
			Score:  0.95,
		}}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, computeCount := staticCompute(nil, errors.New("must not run"))
		svc := NewService(cache, embedder, nil, WithClock(clock))

		course, outcome, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFuzzyHit, outcome)
		assert.Equal(t, int32(9), course.ID)
		assert.Equal(t, 0, *computeCount)
	})

	t.Run("below threshold computes", func(t *testing.T) {
		cache := &fakeCacheStore{nearest: &store.CachedCourseMatch{
			Course: &store.CachedCourse{ID: 9, PromptHash: HashPrompt("other"), Payload: testPayload()},
			Score:  0.94,
		}}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, computeCount := staticCompute(testPayload(), nil)
		svc := NewService(cache, embedder, nil, WithClock(clock))

		_, outcome, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeMiss, outcome)
		assert.Equal(t, 1, *computeCount)
		assert.Empty(t, cache.touched)
	})

	t.Run("miss stores with ttl", func(t *testing.T) {
		cache := &fakeCacheStore{}
		embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
		compute, _ := staticCompute(testPayload(), nil)
		svc := NewService(cache, embedder, nil, WithClock(clock), WithTTL(24*time.Hour))

		course, outcome, err := svc.GetOrCompute(ctx, "Ordering Food", "HSK2", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeMiss, outcome)
		require.Len(t, cache.created, 1)
		stored := cache.created[0]
		assert.Equal(t, HashPrompt("Ordering Food"), stored.PromptHash)
		assert.Equal(t, "HSK2", stored.UserLevel)
		assert.Equal(t, []float32{0.1, 0.2}, stored.PromptEmbedding)
		assert.Equal(t, now.Unix(), stored.CreatedTs)
		assert.Equal(t, now.Add(24*time.Hour).Unix(), stored.ExpiresTs)
		assert.Equal(t, course, stored)
	})

	t.Run("lookup failures degrade to compute", func(t *testing.T) {
		cache := &fakeCacheStore{
			hashErr:    errors.New("db down"),
			nearestErr: errors.New("db down"),
		}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, computeCount := staticCompute(testPayload(), nil)
		svc := NewService(cache, embedder, nil, WithClock(clock))

		course, outcome, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeMiss, outcome)
		assert.Equal(t, 1, *computeCount)
		assert.NotNil(t, course.Payload)
	})

	t.Run("embedding failure skips fuzzy path and cache write", func(t *testing.T) {
		cache := &fakeCacheStore{}
		embedder := &fakeEmbedder{err: apperr.ProviderUnavailable("timeout")}
		compute, computeCount := staticCompute(testPayload(), nil)
		svc := NewService(cache, embedder, nil, WithClock(clock))

		course, outcome, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeMiss, outcome)
		assert.Equal(t, 1, *computeCount)
		assert.Empty(t, cache.created)
		assert.NotNil(t, course.Payload)
	})

	t.Run("cache write failure still returns course", func(t *testing.T) {
		cache := &fakeCacheStore{createErr: errors.New("disk full")}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, _ := staticCompute(testPayload(), nil)
		svc := NewService(cache, embedder, nil, WithClock(clock))

		course, _, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, "Ordering Food", course.Payload.Title)
	})

	t.Run("touch failure returns original row", func(t *testing.T) {
		hash := HashPrompt("ordering food")
		cache := &fakeCacheStore{
			hashHit:  &store.CachedCourse{ID: 7, PromptHash: hash, Payload: testPayload(), HitCount: 3},
			touchErr: errors.New("db down"),
		}
		embedder := &fakeEmbedder{vector: []float32{0.1}}
		compute, _ := staticCompute(nil, errors.New("must not run"))
		svc := NewService(cache, embedder, nil, WithClock(clock))

		course, outcome, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.NoError(t, err)
		assert.Equal(t, OutcomeExactHit, outcome)
		assert.Equal(t, int32(3), course.HitCount)
	})

	t.Run("empty prompt rejected", func(t *testing.T) {
		svc := NewService(&fakeCacheStore{}, &fakeEmbedder{vector: []float32{0.1}}, nil, WithClock(clock))
		compute, computeCount := staticCompute(testPayload(), nil)

		_, _, err := svc.GetOrCompute(ctx, "   ", "", compute)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeInvalidQuery))
		assert.Equal(t, 0, *computeCount)
	})

	t.Run("compute error passes through", func(t *testing.T) {
		svc := NewService(&fakeCacheStore{}, &fakeEmbedder{vector: []float32{0.1}}, nil, WithClock(clock))
		compute, _ := staticCompute(nil, apperr.ProviderUnavailable("model down"))

		_, _, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeProviderUnavailable))
	})

	t.Run("invalid computed payload rejected", func(t *testing.T) {
		svc := NewService(&fakeCacheStore{}, &fakeEmbedder{vector: []float32{0.1}}, nil, WithClock(clock))
		compute, _ := staticCompute(&store.GeneratedCourse{Title: "empty"}, nil)

		_, _, err := svc.GetOrCompute(ctx, "ordering food", "", compute)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeProviderResponse))
	})
}

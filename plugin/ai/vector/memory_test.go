package vector

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// Magnitude does not matter.
	assert.InDelta(t, 0.0, CosineDistance([]float32{2, 0}, []float32{5, 0}), 1e-6)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity(0), 1e-6)
	assert.InDelta(t, 0.5, Similarity(0.5), 1e-6)
	assert.InDelta(t, 0.0, Similarity(1), 1e-6)

	// Out-of-range distances clamp instead of producing scores outside [0, 1].
	assert.Equal(t, float32(0), Similarity(2))
	assert.Equal(t, float32(1), Similarity(-0.25))
}

func TestMemoryIndex(t *testing.T) {
	t.Run("query orders by distance then id", func(t *testing.T) {
		idx := NewMemoryIndex(2)
		require.NoError(t, idx.Upsert(3, []float32{0, 1}, "far"))
		require.NoError(t, idx.Upsert(2, []float32{1, 0}, "exact-b"))
		require.NoError(t, idx.Upsert(1, []float32{1, 0}, "exact-a"))

		matches, err := idx.Query([]float32{1, 0}, 10)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, int64(1), matches[0].ID)
		assert.Equal(t, int64(2), matches[1].ID)
		assert.Equal(t, int64(3), matches[2].ID)
	})

	t.Run("k truncates", func(t *testing.T) {
		idx := NewMemoryIndex(2)
		require.NoError(t, idx.Upsert(1, []float32{1, 0}, nil))
		require.NoError(t, idx.Upsert(2, []float32{0, 1}, nil))

		matches, err := idx.Query([]float32{1, 0}, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, int64(1), matches[0].ID)

		matches, err = idx.Query([]float32{1, 0}, 0)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("dimension mismatch leaves index unchanged", func(t *testing.T) {
		idx := NewMemoryIndex(3)

		err := idx.Upsert(1, []float32{1, 0}, nil)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeDimensionMismatch))
		assert.Equal(t, 0, idx.Len())

		_, err = idx.Query([]float32{1, 0}, 5)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeDimensionMismatch))
	})

	t.Run("upsert replaces", func(t *testing.T) {
		idx := NewMemoryIndex(2)
		require.NoError(t, idx.Upsert(1, []float32{1, 0}, "old"))
		require.NoError(t, idx.Upsert(1, []float32{0, 1}, "new"))
		assert.Equal(t, 1, idx.Len())

		matches, err := idx.Query([]float32{0, 1}, 1)
		require.NoError(t, err)
		assert.Equal(t, "new", matches[0].Payload)
	})

	t.Run("stored vectors are copies", func(t *testing.T) {
		idx := NewMemoryIndex(2)
		vec := []float32{1, 0}
		require.NoError(t, idx.Upsert(1, vec, nil))
		vec[0] = 0
		vec[1] = 1

		matches, err := idx.Query([]float32{1, 0}, 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, float64(matches[0].Distance), 1e-6)
	})

	t.Run("concurrent access", func(t *testing.T) {
		idx := NewMemoryIndex(2)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func(id int64) {
				defer wg.Done()
				_ = idx.Upsert(id, []float32{1, 0}, nil)
			}(int64(i))
			go func() {
				defer wg.Done()
				_, _ = idx.Query([]float32{1, 0}, 5)
			}()
		}
		wg.Wait()
		assert.Equal(t, 20, idx.Len())
	})
}

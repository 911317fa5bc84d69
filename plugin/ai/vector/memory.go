package vector

import (
	"sort"
	"sync"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

// MemoryIndex is a thread-safe exact nearest-neighbor index. Every vector
// in the index shares one fixed dimensionality chosen at construction.
type MemoryIndex struct {
	mu      sync.RWMutex
	dims    int
	entries map[int64]memoryEntry
}

type memoryEntry struct {
	vec     []float32
	payload any
}

// NewMemoryIndex creates an index for vectors of the given dimensionality.
func NewMemoryIndex(dims int) *MemoryIndex {
	return &MemoryIndex{
		dims:    dims,
		entries: make(map[int64]memoryEntry),
	}
}

// Upsert inserts or replaces the vector stored under id.
// A vector of the wrong dimensionality fails and leaves the index unchanged.
func (m *MemoryIndex) Upsert(id int64, vec []float32, payload any) error {
	if len(vec) != m.dims {
		return apperr.DimensionMismatch(m.dims, len(vec))
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{vec: stored, payload: payload}
	return nil
}

// Query returns up to k matches ordered by ascending cosine distance,
// ties broken by ascending id.
func (m *MemoryIndex) Query(vec []float32, k int) ([]Match, error) {
	if len(vec) != m.dims {
		return nil, apperr.DimensionMismatch(m.dims, len(vec))
	}
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.entries))
	for id, e := range m.entries {
		matches = append(matches, Match{
			ID:       id,
			Payload:  e.payload,
			Distance: CosineDistance(vec, e.vec),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Len returns the number of stored vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Ensure MemoryIndex implements Index
var _ Index = (*MemoryIndex)(nil)

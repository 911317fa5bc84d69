// Package vector provides the vector index abstraction used by semantic
// search and the generated-course cache. The in-memory index is an exact
// brute-force scan, which is the default for small corpora; the Postgres
// driver provides the approximate ivfflat-backed equivalent behind the
// store contract.
package vector

import "math"

// Match is a single nearest-neighbor result.
type Match struct {
	ID       int64
	Payload  any
	Distance float32 // cosine distance, ascending is more similar
}

// Index stores fixed-dimension vectors with an associated payload and
// answers k-nearest-neighbor queries by cosine distance.
type Index interface {
	// Upsert inserts or replaces the vector stored under id.
	Upsert(id int64, vec []float32, payload any) error

	// Query returns up to k matches ordered by ascending distance.
	// Equal distances are ordered by ascending id for determinism.
	Query(vec []float32, k int) ([]Match, error)

	// Len returns the number of stored vectors.
	Len() int
}

// CosineDistance returns 1 minus the cosine similarity of a and b.
// Vectors with zero norm have maximal distance.
func CosineDistance(a, b []float32) float32 {
	return 1 - cosine(a, b)
}

// Similarity converts a cosine distance into a similarity score clamped to [0, 1].
func Similarity(distance float32) float32 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

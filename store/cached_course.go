package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// GeneratedWord is a single word inside a generated course payload.
type GeneratedWord struct {
	Chinese string `json:"chinese"`
	Pinyin  string `json:"pinyin"`
	English string `json:"english"`
}

// GeneratedCourse is the typed payload of a cached course generation.
// It is validated at the boundary where generator output enters the system.
type GeneratedCourse struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Words       []GeneratedWord `json:"words"`
}

// Validate checks the payload invariants.
func (g *GeneratedCourse) Validate() error {
	if g == nil {
		return errors.New("generated course is nil")
	}
	if g.Title == "" {
		return errors.New("generated course title is empty")
	}
	if len(g.Words) == 0 {
		return errors.New("generated course has no words")
	}
	for i, w := range g.Words {
		if w.Chinese == "" {
			return errors.Errorf("generated word %d has no chinese text", i)
		}
	}
	return nil
}

// MarshalPayload serializes the payload for storage.
func (g *GeneratedCourse) MarshalPayload() ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal generated course")
	}
	return data, nil
}

// UnmarshalGeneratedCourse parses and validates a stored payload.
func UnmarshalGeneratedCourse(data []byte) (*GeneratedCourse, error) {
	course := &GeneratedCourse{}
	if err := json.Unmarshal(data, course); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal generated course")
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}
	return course, nil
}

// CachedCourse represents a memoized course generation keyed by semantic proximity.
type CachedCourse struct {
	ID int32

	// PromptEmbedding is a 1536-dimensional vector in the cache embedding
	// space. It is never compared against corpus embeddings.
	PromptEmbedding []float32
	// PromptHash is the SHA-256 hex digest of the normalized prompt.
	// Identical hashes imply identical prompts and short-circuit the
	// embedding search.
	PromptHash string
	// UserLevel optionally scopes the cached course to a proficiency tier.
	UserLevel string

	Payload *GeneratedCourse

	HitCount  int32
	CreatedTs int64
	ExpiresTs int64
	LastHitTs int64
}

// FindCachedCourse is the find condition for the exact-hash fast path.
type FindCachedCourse struct {
	PromptHash string
	UserLevel  string
	// UnexpiredAt filters out rows whose expiry is at or before this unix
	// timestamp. Expired rows are treated as absent (lazy expiry).
	UnexpiredAt int64
}

// NearestCachedCourseOptions is the find condition for the fuzzy path.
type NearestCachedCourseOptions struct {
	Vector      []float32
	UserLevel   string
	UnexpiredAt int64
}

// CachedCourseMatch is a fuzzy lookup result with its similarity score.
type CachedCourseMatch struct {
	Course *CachedCourse
	// Score is the similarity in [0, 1], higher is more similar.
	Score float32
}

// CreateCachedCourse stores a freshly generated course.
func (s *Store) CreateCachedCourse(ctx context.Context, create *CachedCourse) (*CachedCourse, error) {
	return s.driver.CreateCachedCourse(ctx, create)
}

// GetCachedCourseByHash looks up an unexpired cached course by exact prompt hash.
// Returns nil when no unexpired row matches.
func (s *Store) GetCachedCourseByHash(ctx context.Context, find *FindCachedCourse) (*CachedCourse, error) {
	return s.driver.GetCachedCourseByHash(ctx, find)
}

// NearestCachedCourse returns the single nearest unexpired cached course, or
// nil when the cache is empty.
func (s *Store) NearestCachedCourse(ctx context.Context, opts *NearestCachedCourseOptions) (*CachedCourseMatch, error) {
	return s.driver.NearestCachedCourse(ctx, opts)
}

// TouchCachedCourse records a cache hit: hit count increments and the
// last-hit timestamp is updated.
func (s *Store) TouchCachedCourse(ctx context.Context, id int32, hitTs int64) (*CachedCourse, error) {
	return s.driver.TouchCachedCourse(ctx, id, hitTs)
}

// DeleteExpiredCachedCourses removes rows past their expiry. Housekeeping
// only; the read paths never rely on it.
func (s *Store) DeleteExpiredCachedCourses(ctx context.Context, beforeTs int64) (int64, error) {
	return s.driver.DeleteExpiredCachedCourses(ctx, beforeTs)
}

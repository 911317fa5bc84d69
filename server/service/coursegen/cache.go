// Package coursegen generates vocabulary courses from free-form prompts and
// memoizes the results by semantic proximity.
//
// Lookup order: exact SHA-256 hash of the normalized prompt, then nearest
// neighbor in the cache embedding space, then the compute path. Cache
// infrastructure failures on the lookup side degrade to a miss so generation
// stays available when the cache does not.
package coursegen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/internal/observability"
	"github.com/hanroad/hanroad/plugin/ai"
	"github.com/hanroad/hanroad/store"
)

// Outcome reports which cache path served a request.
type Outcome string

const (
	OutcomeExactHit Outcome = "exact_hit"
	OutcomeFuzzyHit Outcome = "fuzzy_hit"
	OutcomeMiss     Outcome = "miss"
)

// DefaultSimilarityThreshold accepts only near-duplicate prompts.
const DefaultSimilarityThreshold = 0.95

// DefaultTTL is one week.
const DefaultTTL = 168 * time.Hour

// ComputeFunc produces a course when the cache cannot serve the prompt.
type ComputeFunc func(ctx context.Context) (*store.GeneratedCourse, error)

// CacheStore is the slice of the store the cache layer needs.
type CacheStore interface {
	GetCachedCourseByHash(ctx context.Context, find *store.FindCachedCourse) (*store.CachedCourse, error)
	NearestCachedCourse(ctx context.Context, opts *store.NearestCachedCourseOptions) (*store.CachedCourseMatch, error)
	TouchCachedCourse(ctx context.Context, id int32, hitTs int64) (*store.CachedCourse, error)
	CreateCachedCourse(ctx context.Context, create *store.CachedCourse) (*store.CachedCourse, error)
}

// Service is the fuzzy course cache.
type Service struct {
	cache    CacheStore
	embedder ai.EmbeddingService
	logger   *slog.Logger

	threshold float32
	ttl       time.Duration
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSimilarityThreshold overrides the fuzzy acceptance threshold.
func WithSimilarityThreshold(threshold float32) Option {
	return func(s *Service) { s.threshold = threshold }
}

// WithTTL overrides the cache entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) { s.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cache CacheStore, embedder ai.EmbeddingService, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cache:     cache,
		embedder:  embedder,
		logger:    logger,
		threshold: DefaultSimilarityThreshold,
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashPrompt returns the SHA-256 hex digest of a normalized prompt.
func HashPrompt(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute serves a prompt from the cache when possible and runs compute
// otherwise. Concurrent misses for the same prompt may each run compute; the
// cache converges on whichever insert lands, which is acceptable because
// payloads for the same prompt are interchangeable.
func (s *Service) GetOrCompute(ctx context.Context, prompt, userLevel string, compute ComputeFunc) (*store.CachedCourse, Outcome, error) {
	reqCtx, ok := observability.FromContext(ctx)
	if !ok {
		reqCtx = observability.NewRequestContext(s.logger, "course_generate", "")
	}

	normalized := ai.NormalizeText(prompt)
	if normalized == "" {
		return nil, "", apperr.InvalidQuery("prompt must not be empty")
	}

	hash := HashPrompt(normalized)
	now := s.now()

	// Exact path. Lookup failures degrade to a miss.
	cached, err := s.cache.GetCachedCourseByHash(ctx, &store.FindCachedCourse{
		PromptHash:  hash,
		UserLevel:   userLevel,
		UnexpiredAt: now.Unix(),
	})
	if err != nil {
		reqCtx.Warn("cache hash lookup failed", slog.String("error", err.Error()))
	} else if cached != nil {
		return s.recordHit(ctx, reqCtx, cached, now, OutcomeExactHit), OutcomeExactHit, nil
	}

	// Fuzzy path. Embedding failures also degrade to a miss; the prompt is
	// then cached without an embedding sibling row, which only costs future
	// fuzzy hits.
	var promptVec []float32
	if vec, err := s.embedder.Embed(ctx, normalized); err != nil {
		reqCtx.Warn("prompt embedding failed, skipping fuzzy lookup", slog.String("error", err.Error()))
	} else {
		promptVec = vec
		match, err := s.cache.NearestCachedCourse(ctx, &store.NearestCachedCourseOptions{
			Vector:      promptVec,
			UserLevel:   userLevel,
			UnexpiredAt: now.Unix(),
		})
		if err != nil {
			reqCtx.Warn("cache fuzzy lookup failed", slog.String("error", err.Error()))
		} else if match != nil && match.Score >= s.threshold {
			reqCtx.Info("fuzzy cache hit",
				slog.Float64("similarity", float64(match.Score)),
				slog.Int("cached_course_id", int(match.Course.ID)),
			)
			return s.recordHit(ctx, reqCtx, match.Course, now, OutcomeFuzzyHit), OutcomeFuzzyHit, nil
		}
	}

	payload, err := compute(ctx)
	if err != nil {
		return nil, "", err
	}
	if err := payload.Validate(); err != nil {
		return nil, "", apperr.Wrap(err, apperr.ErrCodeProviderResponse, "generated course failed validation")
	}

	entry := &store.CachedCourse{
		PromptEmbedding: promptVec,
		PromptHash:      hash,
		UserLevel:       userLevel,
		Payload:         payload,
		CreatedTs:       now.Unix(),
		ExpiresTs:       now.Add(s.ttl).Unix(),
	}

	// Cache writes are best effort and complete even if the caller has
	// disconnected; the computed course is returned either way.
	if promptVec == nil {
		reqCtx.Warn("skipping cache write, prompt embedding unavailable")
	} else if created, err := s.cache.CreateCachedCourse(context.WithoutCancel(ctx), entry); err != nil {
		reqCtx.Warn("cache write failed", slog.String("error", err.Error()))
	} else {
		entry = created
	}

	reqCtx.Info("course computed",
		slog.String("outcome", string(OutcomeMiss)),
		slog.Int64("duration_ms", reqCtx.DurationMs()),
	)
	return entry, OutcomeMiss, nil
}

// recordHit bumps hit counters, tolerating failures.
func (s *Service) recordHit(ctx context.Context, reqCtx *observability.RequestContext, course *store.CachedCourse, now time.Time, outcome Outcome) *store.CachedCourse {
	touched, err := s.cache.TouchCachedCourse(ctx, course.ID, now.Unix())
	if err != nil {
		reqCtx.Warn("cache touch failed", slog.String("error", err.Error()))
		return course
	}
	reqCtx.Info("cache hit",
		slog.String("outcome", string(outcome)),
		slog.Int("hit_count", int(touched.HitCount)),
	)
	return touched
}

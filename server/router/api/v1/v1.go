// Package v1 exposes the JSON API.
package v1

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/internal/profile"
	"github.com/hanroad/hanroad/plugin/ai"
	"github.com/hanroad/hanroad/server/middleware"
	"github.com/hanroad/hanroad/server/service/achievements"
	"github.com/hanroad/hanroad/server/service/course"
	"github.com/hanroad/hanroad/server/service/coursegen"
	"github.com/hanroad/hanroad/server/service/review"
	"github.com/hanroad/hanroad/server/service/search"
	"github.com/hanroad/hanroad/server/service/usage"
	"github.com/hanroad/hanroad/store"
)

type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	SearchService      *search.Service
	CacheService       *coursegen.Service
	Generator          coursegen.Generator
	CourseService      *course.Service
	ReviewService      *review.Service
	UsageService       *usage.Service
	AchievementService *achievements.Service

	searchLimiter   *middleware.RateLimiter
	generateLimiter *middleware.RateLimiter

	logger *slog.Logger
}

func NewAPIV1Service(profile *profile.Profile, st *store.Store, logger *slog.Logger) (*APIV1Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	service := &APIV1Service{
		Profile:            profile,
		Store:              st,
		CourseService:      course.NewService(st),
		ReviewService:      review.NewService(st),
		UsageService:       usage.NewService(st),
		AchievementService: achievements.NewService(st),
		searchLimiter:      middleware.NewRateLimiter(5, 10),
		generateLimiter:    middleware.NewRateLimiter(0.5, 3),
		logger:             logger,
	}

	if profile.IsEmbeddingEnabled() {
		aiConfig := ai.NewConfigFromProfile(profile)
		if err := aiConfig.Validate(); err != nil {
			return nil, err
		}

		corpusEmbedder, err := ai.NewEmbeddingService(&aiConfig.Corpus)
		if err != nil {
			return nil, err
		}
		cacheEmbedder, err := ai.NewEmbeddingService(&aiConfig.Cache)
		if err != nil {
			return nil, err
		}

		service.SearchService = search.NewService(corpusEmbedder, st, logger)
		service.CacheService = coursegen.NewService(st, cacheEmbedder, logger,
			coursegen.WithSimilarityThreshold(float32(profile.CacheSimilarityThreshold)),
			coursegen.WithTTL(profile.CacheTTL()),
		)

		generator, err := coursegen.NewOpenAIGenerator(
			profile.EmbeddingAPIKey, profile.EmbeddingBaseURL, "")
		if err != nil {
			logger.Warn("course generator unavailable", "error", err)
		} else {
			service.Generator = generator
		}
	}

	return service, nil
}

// RegisterRoutes wires the API under /api/v1. The embedding-backed routes are
// rate limited per client.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.GET("/search", s.handleSearch, s.searchLimiter.Middleware())

	g.GET("/courses", s.handleListCourses)
	g.GET("/courses/:slug", s.handleGetCourse)
	g.POST("/courses", s.handleCreateCustomCourse)
	g.POST("/courses/:slug/enroll", s.handleEnroll)
	g.POST("/courses/generate", s.handleGenerateCourse, s.generateLimiter.Middleware())

	g.GET("/review", s.handleDueWords)
	g.POST("/review", s.handleRecordAnswer)
	g.POST("/practice", s.handleRecordPractice)
	g.POST("/usage/pronunciation", s.handlePronunciationUsage)
	g.GET("/achievements", s.handleAchievements)
}

// StartLimiterCleanup prunes idle per-client limiter buckets until ctx is
// canceled. Without it the per-IP maps grow without bound on public routes.
func (s *APIV1Service) StartLimiterCleanup(ctx context.Context) {
	go s.searchLimiter.CleanupLoop(ctx.Done(), 10*time.Minute)
	go s.generateLimiter.CleanupLoop(ctx.Done(), 10*time.Minute)
}

// currentUserID identifies the caller. Authentication proper sits in front of
// this service; it forwards the identity in a header.
func currentUserID(c echo.Context) string {
	if id := c.Request().Header.Get("X-User-ID"); id != "" {
		return id
	}
	return c.QueryParam("userId")
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps service errors to HTTP statuses. Provider and store faults
// surface as 503 with a generic message so internals never leak to clients.
func (s *APIV1Service) writeError(c echo.Context, err error) error {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	code := apperr.GetCodeFromError(err, apperr.ErrCodeInternal)

	switch code {
	case apperr.ErrCodeInvalidQuery:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Code: string(code)})
	case apperr.ErrCodeNotFound:
		return c.JSON(http.StatusNotFound, errorResponse{Error: "not found", Code: string(code)})
	case apperr.ErrCodeQuotaExceeded:
		return c.JSON(http.StatusTooManyRequests, errorResponse{Error: "quota exceeded", Code: string(code)})
	case apperr.ErrCodeProviderUnavailable, apperr.ErrCodeProviderResponse, apperr.ErrCodeSearchUnavailable:
		logger.Error("service temporarily unavailable", "error", err, "code", code)
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable", Code: string(code)})
	default:
		logger.Error("internal error", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error", Code: string(apperr.ErrCodeInternal)})
	}
}

package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/internal/observability"
	"github.com/hanroad/hanroad/server/service/course"
	"github.com/hanroad/hanroad/store"
)

type courseItem struct {
	ID          int32  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Category    string `json:"category"`
	CoverImage  string `json:"coverImage,omitempty"`
	Description string `json:"description,omitempty"`
	TotalWords  int32  `json:"totalWords"`
	Difficulty  string `json:"difficulty"`
	IsCustom    bool   `json:"isCustom"`
}

func toCourseItem(c *store.Course) courseItem {
	return courseItem{
		ID:          c.ID,
		Title:       c.Title,
		Slug:        c.Slug,
		Category:    c.Category,
		CoverImage:  c.CoverImage,
		Description: c.Description,
		TotalWords:  c.TotalWords,
		Difficulty:  c.Difficulty,
		IsCustom:    c.IsCustom,
	}
}

type wordItem struct {
	ID              int32  `json:"id"`
	Chinese         string `json:"chinese"`
	Pinyin          string `json:"pinyin"`
	English         string `json:"english"`
	ExampleSentence string `json:"exampleSentence,omitempty"`
	AudioURL        string `json:"audioUrl,omitempty"`
}

func toWordItems(entries []*store.CorpusEntry) []wordItem {
	items := make([]wordItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, wordItem{
			ID:              e.ID,
			Chinese:         e.Chinese,
			Pinyin:          e.Pinyin,
			English:         e.English,
			ExampleSentence: e.ExampleSentence,
			AudioURL:        e.AudioURL,
		})
	}
	return items
}

// handleListCourses serves GET /api/v1/courses?category=...
func (s *APIV1Service) handleListCourses(c echo.Context) error {
	courses, err := s.CourseService.ListCourses(c.Request().Context(), c.QueryParam("category"), 0)
	if err != nil {
		return s.writeError(c, err)
	}
	items := make([]courseItem, 0, len(courses))
	for _, course := range courses {
		items = append(items, toCourseItem(course))
	}
	return c.JSON(http.StatusOK, map[string]any{"courses": items})
}

// handleGetCourse serves GET /api/v1/courses/:slug with the word list.
func (s *APIV1Service) handleGetCourse(c echo.Context) error {
	ctx := c.Request().Context()
	found, err := s.CourseService.GetCourseBySlug(ctx, c.Param("slug"))
	if err != nil {
		return s.writeError(c, err)
	}
	words, err := s.CourseService.ListWords(ctx, found.ID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"course": toCourseItem(found),
		"words":  toWordItems(words),
	})
}

type createCustomCourseRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceText  string `json:"sourceText"`
}

// handleCreateCustomCourse serves POST /api/v1/courses.
func (s *APIV1Service) handleCreateCustomCourse(c echo.Context) error {
	userID := currentUserID(c)
	if userID == "" {
		return s.writeError(c, apperr.InvalidQuery("user id is required"))
	}

	var req createCustomCourseRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperr.InvalidQuery("malformed request body"))
	}

	result, err := s.CourseService.CreateCustomCourse(c.Request().Context(), &course.CreateCustomCourseRequest{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		SourceText:  req.SourceText,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"course":    toCourseItem(result.Course),
		"words":     toWordItems(result.Entries),
		"unmatched": result.Unmatched,
	})
}

// handleEnroll serves POST /api/v1/courses/:slug/enroll.
func (s *APIV1Service) handleEnroll(c echo.Context) error {
	userID := currentUserID(c)
	if userID == "" {
		return s.writeError(c, apperr.InvalidQuery("user id is required"))
	}

	uc, err := s.CourseService.Enroll(c.Request().Context(), userID, c.Param("slug"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"courseId": uc.CourseID,
		"progress": uc.Progress,
	})
}

type generateCourseRequest struct {
	Prompt    string `json:"prompt"`
	UserLevel string `json:"userLevel"`
}

// handleGenerateCourse serves POST /api/v1/courses/generate. Results are
// memoized by prompt proximity, so repeated or near-duplicate prompts skip
// the model entirely.
func (s *APIV1Service) handleGenerateCourse(c echo.Context) error {
	if s.CacheService == nil || s.Generator == nil {
		return s.writeError(c, apperr.ProviderUnavailable("course generation is not configured"))
	}

	var req generateCourseRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperr.InvalidQuery("malformed request body"))
	}

	reqCtx := observability.NewRequestContext(s.logger, "course_generate", currentUserID(c))
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	cached, outcome, err := s.CacheService.GetOrCompute(ctx, req.Prompt, req.UserLevel,
		func(ctx context.Context) (*store.GeneratedCourse, error) {
			return s.Generator.GenerateCourse(ctx, req.Prompt, req.UserLevel)
		})
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"title":       cached.Payload.Title,
		"description": cached.Payload.Description,
		"words":       cached.Payload.Words,
		"cache":       string(outcome),
	})
}

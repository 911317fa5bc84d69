package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

// handleDueWords serves GET /api/v1/review.
func (s *APIV1Service) handleDueWords(c echo.Context) error {
	userID := currentUserID(c)

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return s.writeError(c, apperr.InvalidQuery("limit must be an integer"))
		}
		limit = parsed
	}

	due, err := s.ReviewService.DueWords(c.Request().Context(), userID, limit)
	if err != nil {
		return s.writeError(c, err)
	}

	items := make([]map[string]any, 0, len(due))
	for _, p := range due {
		items = append(items, map[string]any{
			"entryId":      p.EntryID,
			"reviewCount":  p.ReviewCount,
			"nextReviewTs": p.NextReviewTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"due": items})
}

type recordAnswerRequest struct {
	EntryID int32 `json:"entryId"`
	Correct bool  `json:"correct"`
}

// handleRecordAnswer serves POST /api/v1/review.
func (s *APIV1Service) handleRecordAnswer(c echo.Context) error {
	userID := currentUserID(c)

	var req recordAnswerRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperr.InvalidQuery("malformed request body"))
	}
	if req.EntryID <= 0 {
		return s.writeError(c, apperr.InvalidQuery("entryId is required"))
	}

	progress, err := s.ReviewService.RecordAnswer(c.Request().Context(), userID, req.EntryID, req.Correct)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"entryId":      progress.EntryID,
		"mastered":     progress.Mastered,
		"nextReviewTs": progress.NextReviewTs,
	})
}

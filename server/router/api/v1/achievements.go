package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

// handleAchievements serves GET /api/v1/achievements.
func (s *APIV1Service) handleAchievements(c echo.Context) error {
	userID := currentUserID(c)
	if userID == "" {
		return s.writeError(c, apperr.InvalidQuery("user id is required"))
	}

	summary, err := s.AchievementService.Summarize(c.Request().Context(), userID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

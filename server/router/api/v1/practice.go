package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/store"
)

type practiceAnswer struct {
	EntryID int32 `json:"entryId"`
	Correct bool  `json:"correct"`
}

type recordPracticeRequest struct {
	CourseID     int32  `json:"courseId"`
	Mode         string `json:"mode"`
	Duration     int32  `json:"duration"`
	CorrectCount int32  `json:"correctCount"`
	TotalCount   int32  `json:"totalCount"`
	// Answers feed the review schedule per word. Optional; a session recorded
	// without answers only updates the practice log.
	Answers []practiceAnswer `json:"answers"`
}

// handleRecordPractice serves POST /api/v1/practice.
func (s *APIV1Service) handleRecordPractice(c echo.Context) error {
	userID := currentUserID(c)
	if userID == "" {
		return s.writeError(c, apperr.InvalidQuery("user id is required"))
	}

	var req recordPracticeRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperr.InvalidQuery("malformed request body"))
	}
	if req.CourseID <= 0 || req.Mode == "" {
		return s.writeError(c, apperr.InvalidQuery("courseId and mode are required"))
	}
	if req.TotalCount < 0 || req.CorrectCount < 0 || req.CorrectCount > req.TotalCount {
		return s.writeError(c, apperr.InvalidQuery("invalid answer counts"))
	}

	accuracy := int32(0)
	if req.TotalCount > 0 {
		accuracy = req.CorrectCount * 100 / req.TotalCount
	}

	record, err := s.Store.CreatePracticeRecord(c.Request().Context(), &store.PracticeRecord{
		UserID:       userID,
		CourseID:     req.CourseID,
		Mode:         req.Mode,
		Duration:     req.Duration,
		CorrectCount: req.CorrectCount,
		TotalCount:   req.TotalCount,
		Accuracy:     accuracy,
	})
	if err != nil {
		return s.writeError(c, err)
	}

	for _, answer := range req.Answers {
		if answer.EntryID <= 0 {
			continue
		}
		if _, err := s.ReviewService.RecordAnswer(c.Request().Context(), userID, answer.EntryID, answer.Correct); err != nil {
			return s.writeError(c, err)
		}
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"id":       record.ID,
		"accuracy": record.Accuracy,
	})
}

// handlePronunciationUsage serves POST /api/v1/usage/pronunciation. It spends
// one assessment from the caller's daily quota.
func (s *APIV1Service) handlePronunciationUsage(c echo.Context) error {
	userID := currentUserID(c)
	if userID == "" {
		return s.writeError(c, apperr.InvalidQuery("user id is required"))
	}

	remaining, err := s.UsageService.ConsumePronunciation(c.Request().Context(), userID)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"allowed":   true,
		"remaining": remaining,
	})
}

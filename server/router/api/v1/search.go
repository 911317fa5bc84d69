package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/internal/observability"
)

type searchResultItem struct {
	ID              int32   `json:"id"`
	Chinese         string  `json:"chinese"`
	Pinyin          string  `json:"pinyin"`
	English         string  `json:"english"`
	Level           string  `json:"level"`
	ExampleSentence string  `json:"exampleSentence,omitempty"`
	AudioURL        string  `json:"audioUrl,omitempty"`
	Similarity      float32 `json:"similarity"`
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
}

// handleSearch serves GET /api/v1/search?q=...&limit=...
func (s *APIV1Service) handleSearch(c echo.Context) error {
	if s.SearchService == nil {
		return s.writeError(c, apperr.SearchUnavailable(nil))
	}

	query := c.QueryParam("q")
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return s.writeError(c, apperr.InvalidQuery("limit must be an integer"))
		}
		limit = parsed
	}

	reqCtx := observability.NewRequestContext(s.logger, "search", currentUserID(c))
	ctx := observability.WithRequestContext(c.Request().Context(), reqCtx)

	results, err := s.SearchService.Search(ctx, query, limit)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := searchResponse{Results: make([]searchResultItem, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, searchResultItem{
			ID:              r.Entry.ID,
			Chinese:         r.Entry.Chinese,
			Pinyin:          r.Entry.Pinyin,
			English:         r.Entry.English,
			Level:           string(r.Entry.Level),
			ExampleSentence: r.Entry.ExampleSentence,
			AudioURL:        r.Entry.AudioURL,
			Similarity:      r.Score,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanroad/hanroad/server/service/search"
	"github.com/hanroad/hanroad/store"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		vec, err := s.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return len(s.vector) }

type stubSearcher struct {
	results []*store.CorpusEntryWithScore
	err     error
}

func (s *stubSearcher) SearchCorpusByVector(context.Context, *store.CorpusSearchOptions) ([]*store.CorpusEntryWithScore, error) {
	return s.results, s.err
}

func newSearchService(t *testing.T, embedder *stubEmbedder, searcher *stubSearcher) *APIV1Service {
	t.Helper()
	return &APIV1Service{
		SearchService: search.NewService(embedder, searcher, nil),
	}
}

func doSearchRequest(t *testing.T, svc *APIV1Service, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, svc.handleSearch(c))
	return rec
}

func TestHandleSearch(t *testing.T) {
	t.Run("returns ranked results", func(t *testing.T) {
		svc := newSearchService(t,
			&stubEmbedder{vector: []float32{0.1}},
			&stubSearcher{results: []*store.CorpusEntryWithScore{
				{Entry: &store.CorpusEntry{ID: 1, Chinese: "你好", Pinyin: "nǐ hǎo", English: "hello", Level: store.LevelHSK1}, Score: 0.93},
			}},
		)

		rec := doSearchRequest(t, svc, "/api/v1/search?q=hello")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp searchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "你好", resp.Results[0].Chinese)
		assert.InDelta(t, 0.93, resp.Results[0].Similarity, 0.001)
	})

	t.Run("blank query yields 400", func(t *testing.T) {
		svc := newSearchService(t, &stubEmbedder{vector: []float32{0.1}}, &stubSearcher{})

		rec := doSearchRequest(t, svc, "/api/v1/search?q=%20%20")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "INVALID_QUERY", resp.Code)
	})

	t.Run("bad limit yields 400", func(t *testing.T) {
		svc := newSearchService(t, &stubEmbedder{vector: []float32{0.1}}, &stubSearcher{})

		rec := doSearchRequest(t, svc, "/api/v1/search?q=hello&limit=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store fault yields 503 without internals", func(t *testing.T) {
		svc := newSearchService(t,
			&stubEmbedder{vector: []float32{0.1}},
			&stubSearcher{err: errors.New("dial tcp 10.0.0.5:5432: connection refused")},
		)

		rec := doSearchRequest(t, svc, "/api/v1/search?q=hello")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "SEARCH_UNAVAILABLE", resp.Code)
		assert.NotContains(t, resp.Error, "10.0.0.5", "error body must not leak addresses")
	})

	t.Run("search disabled yields 503", func(t *testing.T) {
		svc := &APIV1Service{}

		rec := doSearchRequest(t, svc, "/api/v1/search?q=hello")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

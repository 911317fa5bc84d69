package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"newlines become spaces", "hello\nworld", "hello world"},
		{"crlf", "hello\r\nworld", "hello world"},
		{"bare cr", "hello\rworld", "hello world"},
		{"surrounding whitespace trimmed", "  hello  ", "hello"},
		{"mixed", " \n hello\r\nworld \n", "hello world"},
		{"only whitespace", " \r\n ", ""},
		{"cjk preserved", "你好\n世界", "你好 世界"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestNewEmbeddingService(t *testing.T) {
	valid := EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		APIKey:     "sk-test",
	}

	t.Run("valid config", func(t *testing.T) {
		svc, err := NewEmbeddingService(&valid)
		require.NoError(t, err)
		assert.Equal(t, 1536, svc.Dimensions())
	})

	t.Run("siliconflow is openai compatible", func(t *testing.T) {
		cfg := valid
		cfg.Provider = "siliconflow"
		_, err := NewEmbeddingService(&cfg)
		require.NoError(t, err)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		cfg := valid
		cfg.Provider = "ollama"
		_, err := NewEmbeddingService(&cfg)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeProviderUnavailable))
	})

	t.Run("missing api key fails before any call", func(t *testing.T) {
		cfg := valid
		cfg.APIKey = ""
		_, err := NewEmbeddingService(&cfg)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeProviderUnavailable))
	})

	t.Run("missing dimensions", func(t *testing.T) {
		cfg := valid
		cfg.Dimensions = 0
		_, err := NewEmbeddingService(&cfg)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeProviderUnavailable))
	})
}

func TestEmbedBatchValidation(t *testing.T) {
	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		APIKey:     "sk-test",
	})
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("empty input rejected", func(t *testing.T) {
		_, err := svc.EmbedBatch(ctx, nil)
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeInvalidQuery))
	})

	t.Run("blank text rejected before any provider call", func(t *testing.T) {
		_, err := svc.EmbedBatch(ctx, []string{"hello", "   "})
		require.Error(t, err)
		assert.True(t, apperr.IsCode(err, apperr.ErrCodeInvalidQuery))
	})
}

func TestEmbedBatchRequestsConfiguredDimensions(t *testing.T) {
	var gotDimensions int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Dimensions int `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotDimensions = req.Dimensions

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float32{0.1, 0.2, 0.3, 0.4}},
			},
			"model": "text-embedding-3-small",
		})
	}))
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(&EmbeddingConfig{
		Provider:   "openai",
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		APIKey:     "sk-test",
		BaseURL:    server.URL + "/v1",
	})
	require.NoError(t, err)

	vectors, err := svc.EmbedBatch(context.Background(), []string{"你好"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Len(t, vectors[0], 4)
	assert.Equal(t, 4, gotDimensions, "reduced output must be requested, not just checked")
}

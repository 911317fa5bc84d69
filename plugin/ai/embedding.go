package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	apperr "github.com/hanroad/hanroad/internal/errors"
)

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts. The result is
	// order-preserving and has the same length as the input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int
}

type embeddingService struct {
	config EmbeddingConfig

	// The backing client is built lazily on first use and reused for the
	// rest of the process lifetime.
	initOnce sync.Once
	client   *openai.Client
}

// NewEmbeddingService creates a new EmbeddingService.
// A missing credential is a hard configuration error here, before any call is made.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	switch cfg.Provider {
	case "openai", "siliconflow":
		// SiliconFlow is compatible with the OpenAI embeddings API.
	default:
		return nil, apperr.ProviderUnavailable(fmt.Sprintf("unsupported embedding provider: %s", cfg.Provider))
	}

	if cfg.APIKey == "" {
		return nil, apperr.ProviderUnavailable("embedding API key is not configured")
	}
	if cfg.Dimensions <= 0 {
		return nil, apperr.ProviderUnavailable("embedding dimensions are not configured")
	}

	return &embeddingService{config: *cfg}, nil
}

// NormalizeText prepares text for submission to the embedding backend.
// Embedding backends are sensitive to raw newlines, so they are replaced
// with spaces before the surrounding whitespace is trimmed.
func NormalizeText(text string) string {
	replaced := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(replaced)
}

func (s *embeddingService) getClient() *openai.Client {
	s.initOnce.Do(func() {
		clientConfig := openai.DefaultConfig(s.config.APIKey)
		if s.config.BaseURL != "" {
			clientConfig.BaseURL = s.config.BaseURL
		}
		s.client = openai.NewClientWithConfig(clientConfig)
	})
	return s.client
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperr.InvalidQuery("no texts provided for embedding")
	}

	normalized := make([]string, len(texts))
	for i, text := range texts {
		normalized[i] = NormalizeText(text)
		if normalized[i] == "" {
			return nil, apperr.InvalidQuery(fmt.Sprintf("text at index %d is empty", i))
		}
	}

	// Requesting the configured dimensionality lets models with a larger
	// native size return reduced vectors instead of tripping the check below.
	req := openai.EmbeddingRequest{
		Input:      normalized,
		Model:      openai.EmbeddingModel(s.config.Model),
		Dimensions: s.config.Dimensions,
	}

	resp, err := s.getClient().CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyProviderError(err)
	}

	if len(resp.Data) != len(normalized) {
		return nil, apperr.ProviderResponse(
			fmt.Sprintf("embedding response has %d entries, want %d", len(resp.Data), len(normalized)), nil)
	}

	// The response order matches the request order positionally.
	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != s.config.Dimensions {
			return nil, apperr.DimensionMismatch(s.config.Dimensions, len(data.Embedding))
		}
		vectors[i] = data.Embedding
	}

	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.config.Dimensions
}

// classifyProviderError maps a go-openai error to the service error taxonomy.
// An API-level error response means the backend answered but rejected the
// request; anything else is treated as the backend being unreachable.
func classifyProviderError(err error) error {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		return apperr.ProviderResponse(fmt.Sprintf("embedding backend rejected request (status %d)", apiErr.HTTPStatusCode), err)
	}
	return apperr.Wrap(err, apperr.ErrCodeProviderUnavailable, "embedding backend is unreachable")
}

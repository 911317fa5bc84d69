// Package search implements semantic vocabulary search over the corpus.
//
// A query is normalized, embedded in the corpus embedding space, then matched
// against stored entry embeddings by cosine distance. Results carry a
// similarity score in [0, 1].
package search

import (
	"context"
	"log/slog"

	apperr "github.com/hanroad/hanroad/internal/errors"
	"github.com/hanroad/hanroad/internal/observability"
	"github.com/hanroad/hanroad/plugin/ai"
	"github.com/hanroad/hanroad/store"
)

const (
	// DefaultLimit is used when the caller does not specify a limit.
	DefaultLimit = 10
	// MaxLimit caps the number of results per query.
	MaxLimit = 50
	// MaxQueryLength caps the query length in runes.
	MaxQueryLength = 512
)

// CorpusSearcher is the slice of the store the service needs.
type CorpusSearcher interface {
	SearchCorpusByVector(ctx context.Context, opts *store.CorpusSearchOptions) ([]*store.CorpusEntryWithScore, error)
}

// Result is a single ranked search hit.
type Result struct {
	Entry *store.CorpusEntry `json:"entry"`
	Score float32            `json:"score"`
}

// Service performs semantic search against the corpus.
type Service struct {
	embedder ai.EmbeddingService
	searcher CorpusSearcher
	logger   *slog.Logger
}

func NewService(embedder ai.EmbeddingService, searcher CorpusSearcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		embedder: embedder,
		searcher: searcher,
		logger:   logger,
	}
}

// Search embeds the query and returns the nearest corpus entries, most
// similar first. The query is validated before any provider call so a blank
// query never spends an embedding request.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	reqCtx, ok := observability.FromContext(ctx)
	if !ok {
		reqCtx = observability.NewRequestContext(s.logger, "search", "")
	}

	normalized := ai.NormalizeText(query)
	if normalized == "" {
		return nil, apperr.InvalidQuery("query must not be empty")
	}
	if len([]rune(normalized)) > MaxQueryLength {
		return nil, apperr.InvalidQuery("query too long")
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	// Both the embedding backend and the datastore are upstream faults from
	// the caller's point of view; they surface under a single code.
	vec, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		reqCtx.Error("query embedding failed", err,
			slog.Int(observability.LogFieldQueryLen, len([]rune(normalized))))
		return nil, apperr.SearchUnavailable(err)
	}

	matches, err := s.searcher.SearchCorpusByVector(ctx, &store.CorpusSearchOptions{
		Vector: vec,
		Limit:  limit,
	})
	if err != nil {
		reqCtx.Error("corpus vector search failed", err)
		return nil, apperr.SearchUnavailable(err)
	}

	results := make([]*Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, &Result{Entry: m.Entry, Score: m.Score})
	}

	reqCtx.Info("search completed",
		slog.Int(observability.LogFieldQueryLen, len([]rune(normalized))),
		slog.Int("result_count", len(results)),
		slog.Int64("duration_ms", reqCtx.DurationMs()),
	)
	return results, nil
}

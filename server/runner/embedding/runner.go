// Package embedding backfills corpus entries that have no embedding yet.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanroad/hanroad/plugin/ai"
	"github.com/hanroad/hanroad/store"
)

// CorpusStore is the slice of the store the runner needs.
type CorpusStore interface {
	FindCorpusEntriesWithoutEmbedding(ctx context.Context, find *store.FindCorpusEntriesWithoutEmbedding) ([]*store.CorpusEntry, error)
	UpdateCorpusEmbedding(ctx context.Context, id int32, embedding []float32) error
}

type Runner struct {
	store            CorpusStore
	embeddingService ai.EmbeddingService
	interval         time.Duration
	batchSize        int
	concurrency      int
}

// NewRunner creates a corpus embedding backfill runner. Batches stay small to
// keep provider requests under token limits; a few batches run concurrently.
func NewRunner(store CorpusStore, embeddingService ai.EmbeddingService) *Runner {
	return &Runner{
		store:            store,
		embeddingService: embeddingService,
		interval:         2 * time.Minute,
		batchSize:        16,
		concurrency:      2,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	r.processPendingEntries(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processPendingEntries(ctx)
		case <-ctx.Done():
			slog.Info("embedding runner stopped")
			return
		}
	}
}

// RunOnce processes pending entries once (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.processPendingEntries(ctx)
}

func (r *Runner) processPendingEntries(ctx context.Context) {
	entries, err := r.store.FindCorpusEntriesWithoutEmbedding(ctx, &store.FindCorpusEntriesWithoutEmbedding{
		Limit: r.batchSize * 20,
	})
	if err != nil {
		slog.Error("failed to find corpus entries without embedding", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	slog.Info("processing corpus entries for embedding", "count", len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := 0; i < len(entries); i += r.batchSize {
		end := i + r.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[i:end]
		progress := fmt.Sprintf("%d/%d", end, len(entries))

		g.Go(func() error {
			if err := r.processBatch(gctx, batch); err != nil {
				slog.Error("failed to process embedding batch", "error", err, "progress", progress)
				return nil
			}
			slog.Info("embedding batch processed", "count", len(batch), "progress", progress)
			return nil
		})
	}

	_ = g.Wait()
}

func (r *Runner) processBatch(ctx context.Context, entries []*store.CorpusEntry) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = EmbeddingText(e)
	}

	vectors, err := r.embeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if err := r.store.UpdateCorpusEmbedding(ctx, entry.ID, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// EmbeddingText builds the text an entry is embedded from. Chinese, English,
// and the example sentence all carry signal for cross-language queries.
func EmbeddingText(e *store.CorpusEntry) string {
	parts := []string{e.Chinese, e.Pinyin, e.English}
	if e.ExampleSentence != "" {
		parts = append(parts, e.ExampleSentence)
	}
	return ai.NormalizeText(strings.Join(parts, " "))
}

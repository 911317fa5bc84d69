package store

import "context"

// Level is the proficiency tier of a corpus entry.
type Level string

const (
	LevelHSK1     Level = "HSK1"
	LevelHSK2     Level = "HSK2"
	LevelHSK3     Level = "HSK3"
	LevelHSK4     Level = "HSK4"
	LevelHSK5     Level = "HSK5"
	LevelHSK6     Level = "HSK6"
	LevelBusiness Level = "Business"
)

// IsValid reports whether l is one of the known proficiency tiers.
func (l Level) IsValid() bool {
	switch l {
	case LevelHSK1, LevelHSK2, LevelHSK3, LevelHSK4, LevelHSK5, LevelHSK6, LevelBusiness:
		return true
	}
	return false
}

// CorpusEntry represents a verified vocabulary/phrase unit in the golden corpus.
type CorpusEntry struct {
	ID int32

	// Chinese is the unique source-language text.
	Chinese string
	Pinyin  string
	English string
	Level   Level

	Category        string
	Scene           string
	ExampleSentence string
	AudioURL        string
	Source          string

	// Embedding is a 384-dimensional vector in the corpus embedding space.
	// It is nil until the embedding runner has processed the entry.
	Embedding []float32
	Verified  bool

	CreatedTs int64
	UpdatedTs int64
}

// FindCorpusEntry is the find condition for corpus entries.
type FindCorpusEntry struct {
	ID      *int32
	Chinese *string
	Level   *Level
	Limit   int
}

// CorpusSearchOptions represents the options for corpus vector search.
type CorpusSearchOptions struct {
	// Vector is the query vector in the corpus embedding space.
	Vector []float32
	// Limit is the number of results to return, default 10.
	Limit int
}

// CorpusEntryWithScore represents a vector search result with similarity score.
type CorpusEntryWithScore struct {
	Entry *CorpusEntry
	// Score is the similarity in [0, 1], higher is more similar.
	Score float32
}

// FindCorpusEntriesWithoutEmbedding is the find condition for entries pending embedding.
type FindCorpusEntriesWithoutEmbedding struct {
	Limit int
}

// CreateCorpusEntry creates a corpus entry.
func (s *Store) CreateCorpusEntry(ctx context.Context, create *CorpusEntry) (*CorpusEntry, error) {
	return s.driver.CreateCorpusEntry(ctx, create)
}

// ListCorpusEntries lists corpus entries.
func (s *Store) ListCorpusEntries(ctx context.Context, find *FindCorpusEntry) ([]*CorpusEntry, error) {
	return s.driver.ListCorpusEntries(ctx, find)
}

// GetCorpusEntry gets a single corpus entry, or nil if absent.
func (s *Store) GetCorpusEntry(ctx context.Context, find *FindCorpusEntry) (*CorpusEntry, error) {
	list, err := s.driver.ListCorpusEntries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateCorpusEmbedding stores the embedding vector for a corpus entry.
func (s *Store) UpdateCorpusEmbedding(ctx context.Context, id int32, embedding []float32) error {
	return s.driver.UpdateCorpusEmbedding(ctx, id, embedding)
}

// SearchCorpusByVector performs vector similarity search over the corpus.
func (s *Store) SearchCorpusByVector(ctx context.Context, opts *CorpusSearchOptions) ([]*CorpusEntryWithScore, error) {
	return s.driver.SearchCorpusByVector(ctx, opts)
}

// FindCorpusEntriesWithoutEmbedding finds entries that have no embedding yet.
func (s *Store) FindCorpusEntriesWithoutEmbedding(ctx context.Context, find *FindCorpusEntriesWithoutEmbedding) ([]*CorpusEntry, error) {
	return s.driver.FindCorpusEntriesWithoutEmbedding(ctx, find)
}

package ai

import (
	"errors"

	"github.com/hanroad/hanroad/internal/profile"
)

// Config represents embedding configuration for both vector spaces.
type Config struct {
	Enabled bool

	// Corpus is the embedding space of the vocabulary corpus (384-d by default).
	Corpus EmbeddingConfig
	// Cache is the embedding space of the generated-course cache (1536-d by default).
	// The two spaces use different models and must never be compared.
	Cache EmbeddingConfig
}

// EmbeddingConfig represents a single vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, siliconflow
	Model      string // e.g. all-MiniLM-L6-v2, text-embedding-3-small
	Dimensions int
	APIKey     string
	BaseURL    string
}

// NewConfigFromProfile creates embedding config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsEmbeddingEnabled(),
	}

	if !cfg.Enabled {
		return cfg
	}

	cfg.Corpus = EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.CorpusEmbeddingModel,
		Dimensions: p.CorpusEmbeddingDimensions,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
	}
	cfg.Cache = EmbeddingConfig{
		Provider:   p.EmbeddingProvider,
		Model:      p.CacheEmbeddingModel,
		Dimensions: p.CacheEmbeddingDimensions,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
	}

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	for _, ec := range []EmbeddingConfig{c.Corpus, c.Cache} {
		if ec.Provider == "" {
			return errors.New("embedding provider is required")
		}
		if ec.APIKey == "" {
			return errors.New("embedding API key is required")
		}
		if ec.Model == "" {
			return errors.New("embedding model is required")
		}
		if ec.Dimensions <= 0 {
			return errors.New("embedding dimensions must be positive")
		}
	}

	return nil
}

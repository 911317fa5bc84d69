package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where hanroad stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your hanroad instance.
	InstanceURL string

	// Embedding Configuration
	EmbeddingProvider string // HANROAD_EMBEDDING_PROVIDER (default: openai)
	EmbeddingAPIKey   string // HANROAD_EMBEDDING_API_KEY
	EmbeddingBaseURL  string // HANROAD_EMBEDDING_BASE_URL (default: https://api.openai.com/v1)

	// CorpusEmbeddingModel is the model for the vocabulary corpus space.
	CorpusEmbeddingModel string // HANROAD_CORPUS_EMBEDDING_MODEL (default: all-MiniLM-L6-v2)
	// CorpusEmbeddingDimensions is the fixed dimensionality of the corpus space.
	CorpusEmbeddingDimensions int // HANROAD_CORPUS_EMBEDDING_DIMENSIONS (default: 384)
	// CacheEmbeddingModel is the model for the course cache space.
	CacheEmbeddingModel string // HANROAD_CACHE_EMBEDDING_MODEL (default: text-embedding-3-small)
	// CacheEmbeddingDimensions is the fixed dimensionality of the cache space.
	CacheEmbeddingDimensions int // HANROAD_CACHE_EMBEDDING_DIMENSIONS (default: 1536)

	// CacheTTLHours is the fixed TTL for cached generated courses.
	CacheTTLHours int // HANROAD_CACHE_TTL_HOURS (default: 168)
	// CacheSimilarityThreshold is the fuzzy-hit acceptance threshold.
	CacheSimilarityThreshold float64 // HANROAD_CACHE_SIMILARITY_THRESHOLD (default: 0.95)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsEmbeddingEnabled returns true if an embedding backend is configured.
// The semantic search and course generation paths require this.
func (p *Profile) IsEmbeddingEnabled() bool {
	return p.EmbeddingAPIKey != ""
}

// CacheTTL returns the course cache lifetime as a duration.
func (p *Profile) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLHours) * time.Hour
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvOrDefault returns the environment variable value parsed as int, or the default.
func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getFloatEnvOrDefault returns the environment variable value parsed as float64, or the default.
func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads embedding and cache configuration from HANROAD_* environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("HANROAD_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingAPIKey = os.Getenv("HANROAD_EMBEDDING_API_KEY")
	p.EmbeddingBaseURL = getEnvOrDefault("HANROAD_EMBEDDING_BASE_URL", "https://api.openai.com/v1")

	p.CorpusEmbeddingModel = getEnvOrDefault("HANROAD_CORPUS_EMBEDDING_MODEL", "all-MiniLM-L6-v2")
	p.CorpusEmbeddingDimensions = getIntEnvOrDefault("HANROAD_CORPUS_EMBEDDING_DIMENSIONS", 384)
	p.CacheEmbeddingModel = getEnvOrDefault("HANROAD_CACHE_EMBEDDING_MODEL", "text-embedding-3-small")
	p.CacheEmbeddingDimensions = getIntEnvOrDefault("HANROAD_CACHE_EMBEDDING_DIMENSIONS", 1536)

	p.CacheTTLHours = getIntEnvOrDefault("HANROAD_CACHE_TTL_HOURS", 168)
	p.CacheSimilarityThreshold = getFloatEnvOrDefault("HANROAD_CACHE_SIMILARITY_THRESHOLD", 0.95)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported db driver: %s", p.Driver)
	}

	if p.CorpusEmbeddingDimensions <= 0 || p.CacheEmbeddingDimensions <= 0 {
		return errors.New("embedding dimensions must be positive")
	}
	if p.CacheSimilarityThreshold <= 0 || p.CacheSimilarityThreshold > 1 {
		return errors.New("cache similarity threshold must be in (0, 1]")
	}
	if p.CacheTTLHours <= 0 {
		p.CacheTTLHours = 168
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("hanroad_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}

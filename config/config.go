package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/shelfvec/ai"
	"github.com/poiesic/shelfvec/catalog"
	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/ingestion"
	"github.com/poiesic/shelfvec/storage"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

const (
	BackendQdrant = "qdrant"
	BackendBadger = "badger"
)

type Config struct {
	Embedding EmbeddingConfig   `yaml:"embedding"`
	Store     StoreConfig       `yaml:"store"`
	Import    ImportConfig      `yaml:"import"`
	S3        *catalog.S3Config `yaml:"s3,omitempty"`
}

type EmbeddingConfig struct {
	Provider       ai.Provider   `yaml:"provider"`
	Host           string        `yaml:"host"`
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RateLimit      float64       `yaml:"rate_limit"`

	// CacheDir enables the on-disk embedding cache when set.
	CacheDir string `yaml:"cache_dir"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`

	// Path is the database directory of the badger backend. Empty means
	// in-memory.
	Path string `yaml:"path"`

	VectorSize     int           `yaml:"vector_size"`
	Distance       core.Distance `yaml:"distance"`
	TagCollection  string        `yaml:"tag_collection"`
	DescCollection string        `yaml:"desc_collection"`
	UpsertTimeout  time.Duration `yaml:"upsert_timeout"`
	ScrollPageSize int           `yaml:"scroll_page_size"`
}

type ImportConfig struct {
	Input         string `yaml:"input"`
	BatchSize     int    `yaml:"batch_size"`
	Concurrency   int    `yaml:"concurrency"`
	ClearExisting bool   `yaml:"clear_existing"`
	SummaryFile   string `yaml:"summary_file"`
	MetricsFile   string `yaml:"metrics_file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:       aiDefaults.Provider,
			Host:           aiDefaults.EmbeddingHost,
			Model:          aiDefaults.EmbeddingModel,
			APIKey:         aiDefaults.APIKey,
			MaxAttempts:    aiDefaults.MaxAttempts,
			RetryDelay:     aiDefaults.RetryDelay,
			RequestTimeout: aiDefaults.RequestTimeout,
		},
		Store: StoreConfig{
			Backend:        BackendQdrant,
			URL:            "http://localhost:6333",
			VectorSize:     1024,
			Distance:       core.DistanceCosine,
			TagCollection:  ingestion.DefaultTagCollection,
			DescCollection: ingestion.DefaultDescCollection,
			UpsertTimeout:  60 * time.Second,
			ScrollPageSize: 256,
		},
		Import: ImportConfig{
			Input:       "books.json",
			BatchSize:   ingestion.DefaultBatchSize,
			Concurrency: ingestion.DefaultConcurrency,
		},
	}
}

// LoadFile overlays the YAML file at path onto Default and validates the
// result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expandEnv() {
	c.Embedding.Host = expandEnv(c.Embedding.Host)
	c.Embedding.Model = expandEnv(c.Embedding.Model)
	c.Embedding.APIKey = expandEnv(c.Embedding.APIKey)
	c.Embedding.CacheDir = expandEnv(c.Embedding.CacheDir)
	c.Store.URL = expandEnv(c.Store.URL)
	c.Store.APIKey = expandEnv(c.Store.APIKey)
	c.Store.Path = expandEnv(c.Store.Path)
	c.Import.Input = expandEnv(c.Import.Input)
	c.Import.SummaryFile = expandEnv(c.Import.SummaryFile)
	c.Import.MetricsFile = expandEnv(c.Import.MetricsFile)
	if c.S3 != nil {
		c.S3.Endpoint = expandEnv(c.S3.Endpoint)
		c.S3.AccessKey = expandEnv(c.S3.AccessKey)
		c.S3.SecretKey = expandEnv(c.S3.SecretKey)
	}
}

func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch c.Store.Backend {
	case BackendQdrant:
		if c.Store.URL == "" {
			return fmt.Errorf("%w: store.url is required for the qdrant backend", ErrInvalidConfig)
		}
	case BackendBadger:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if err := c.CollectionConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Store.TagCollection == "" || c.Store.DescCollection == "" {
		return fmt.Errorf("%w: both collection names are required", ErrInvalidConfig)
	}
	if c.Store.TagCollection == c.Store.DescCollection {
		return fmt.Errorf("%w: tag and description collections must differ", ErrInvalidConfig)
	}

	if c.Import.BatchSize <= 0 {
		return fmt.Errorf("%w: import.batch_size must be positive", ErrInvalidConfig)
	}
	if c.Import.Concurrency <= 0 {
		return fmt.Errorf("%w: import.concurrency must be positive", ErrInvalidConfig)
	}
	return nil
}

// AIConfig converts the embedding section.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.Embedding.Provider),
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithMaxAttempts(c.Embedding.MaxAttempts),
		ai.WithRetryDelay(c.Embedding.RetryDelay),
		ai.WithRequestTimeout(c.Embedding.RequestTimeout),
		ai.WithRateLimit(c.Embedding.RateLimit),
	)
}

// CollectionConfig returns the shape both collections are created with.
func (c *Config) CollectionConfig() storage.CollectionConfig {
	return storage.CollectionConfig{
		VectorSize: c.Store.VectorSize,
		Distance:   c.Store.Distance,
	}
}

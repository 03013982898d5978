// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shelfvec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/shelfvec/ai"
	"github.com/poiesic/shelfvec/ai/ollama"
	"github.com/poiesic/shelfvec/ai/openai"
	"github.com/poiesic/shelfvec/catalog"
	"github.com/poiesic/shelfvec/config"
	"github.com/poiesic/shelfvec/ingestion"
	"github.com/poiesic/shelfvec/metrics"
	"github.com/poiesic/shelfvec/storage"
	"github.com/poiesic/shelfvec/storage/badger"
	"github.com/poiesic/shelfvec/storage/qdrant"
)

// Importer owns the embedder, vector store, catalog loader and metrics
// recorder built from a config.Config.
type Importer struct {
	config       *config.Config
	embedder     ai.Embedder
	retrying     *ai.RetryingEmbedder
	store        storage.CollectionStore
	ownStore     bool
	cacheBackend *badger.Backend
	loader       *catalog.Loader
	recorder     *metrics.Recorder
	logger       *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*importerOptions)

type importerOptions struct {
	embedder ai.Embedder
	store    storage.CollectionStore
	logger   *slog.Logger
}

// WithEmbedder replaces the provider client named in the config. The retry
// policy and cache still wrap it.
func WithEmbedder(embedder ai.Embedder) ImporterOption {
	return func(o *importerOptions) {
		o.embedder = embedder
	}
}

// WithStore replaces the store backend named in the config. The Importer
// does not close a store supplied this way.
func WithStore(store storage.CollectionStore) ImporterOption {
	return func(o *importerOptions) {
		o.store = store
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ImporterOption {
	return func(o *importerOptions) {
		o.logger = logger
	}
}

// NewImporter validates cfg and builds every component it names.
func NewImporter(cfg *config.Config, opts ...ImporterOption) (*Importer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &importerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	im := &Importer{
		config:   cfg,
		loader:   newLoader(cfg),
		recorder: metrics.NewRecorder(),
		logger:   options.logger,
	}

	inner := options.embedder
	if inner == nil {
		var err error
		inner, err = newProviderEmbedder(cfg.AIConfig())
		if err != nil {
			return nil, err
		}
	}

	retrying, err := ai.NewRetryingEmbedder(inner, cfg.AIConfig())
	if err != nil {
		return nil, err
	}
	im.retrying = retrying
	im.embedder = retrying

	if cfg.Embedding.CacheDir != "" {
		backend, err := badger.OpenBackend(cfg.Embedding.CacheDir, false)
		if err != nil {
			return nil, fmt.Errorf("open embedding cache: %w", err)
		}
		cached, err := ai.NewCachingEmbedder(retrying, badger.NewEmbeddingCache(backend), cfg.Embedding.Model)
		if err != nil {
			backend.Close()
			return nil, err
		}
		im.cacheBackend = backend
		im.embedder = cached
	}

	if options.store != nil {
		im.store = options.store
	} else {
		store, err := newStore(cfg)
		if err != nil {
			im.Close()
			return nil, err
		}
		im.store = store
		im.ownStore = true
	}

	return im, nil
}

func newProviderEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	switch cfg.Provider {
	case ai.ProviderOpenAI:
		return openai.NewEmbedder(cfg)
	default:
		return ollama.NewClient(cfg)
	}
}

func newStore(cfg *config.Config) (storage.CollectionStore, error) {
	switch cfg.Store.Backend {
	case config.BackendBadger:
		if cfg.Store.Path == "" {
			return badger.NewMemoryStore(cfg.CollectionConfig())
		}
		return badger.OpenStore(cfg.Store.Path, cfg.CollectionConfig())
	default:
		return qdrant.NewStore(qdrant.Config{
			URL:            cfg.Store.URL,
			APIKey:         cfg.Store.APIKey,
			Collection:     cfg.CollectionConfig(),
			UpsertTimeout:  cfg.Store.UpsertTimeout,
			ScrollPageSize: cfg.Store.ScrollPageSize,
		})
	}
}

func newLoader(cfg *config.Config) *catalog.Loader {
	if cfg.S3 == nil {
		return catalog.NewLoader()
	}
	return catalog.NewLoader(catalog.WithS3(*cfg.S3))
}

// NewPipeline creates an import pipeline configured from the import and
// store sections. opts are applied after the configured ones.
func (im *Importer) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithBatchSize(im.config.Import.BatchSize),
		ingestion.WithConcurrency(im.config.Import.Concurrency),
		ingestion.WithClearExisting(im.config.Import.ClearExisting),
		ingestion.WithCollections(im.config.Store.TagCollection, im.config.Store.DescCollection),
		ingestion.WithLoader(im.loader),
		ingestion.WithMetrics(im.recorder),
		ingestion.WithCallCounter(im.retrying),
		ingestion.WithLogger(im.logger),
	}
	return ingestion.NewPipeline(im.embedder, im.store, append(base, opts...)...)
}

// Import runs one pipeline over source, then writes the summary and metrics
// files named in the config. The summary is returned even when the run
// fails.
func (im *Importer) Import(ctx context.Context, source string, opts ...ingestion.Option) (*ingestion.Summary, error) {
	pipeline, err := im.NewPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	summary, runErr := pipeline.Run(ctx, source)

	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	if path := im.config.Import.SummaryFile; path != "" {
		if err := summary.WriteFile(path); err != nil {
			im.logger.Error("error writing summary file", "path", path, "err", err)
			errs = append(errs, fmt.Errorf("write summary: %w", err))
		}
	}
	if path := im.config.Import.MetricsFile; path != "" {
		if err := im.recorder.WriteTextfile(path); err != nil {
			im.logger.Error("error writing metrics file", "path", path, "err", err)
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return summary, errors.Join(errs...)
}

// Config returns the configuration the Importer was built from.
func (im *Importer) Config() *config.Config {
	return im.config
}

// Embedder returns the fully wrapped embedder.
func (im *Importer) Embedder() ai.Embedder {
	return im.embedder
}

// Store returns the collection store.
func (im *Importer) Store() storage.CollectionStore {
	return im.store
}

// Metrics returns the metrics recorder shared by every pipeline.
func (im *Importer) Metrics() *metrics.Recorder {
	return im.recorder
}

// Close releases the embedding cache and the store, unless the store was
// supplied with WithStore.
func (im *Importer) Close() error {
	var errs []error
	if im.store != nil && im.ownStore {
		if err := im.store.Close(); err != nil {
			im.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if im.cacheBackend != nil {
		if err := im.cacheBackend.Close(); err != nil {
			im.logger.Error("error closing embedding cache", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

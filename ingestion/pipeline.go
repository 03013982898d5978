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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/shelfvec/ai"
	"github.com/poiesic/shelfvec/catalog"
	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize      = 10
	DefaultConcurrency    = 3
	DefaultTagCollection  = "tags_vecs"
	DefaultDescCollection = "desc_vecs"
)

// CatalogLoader reads the input record set.
type CatalogLoader interface {
	Load(ctx context.Context, source string) (*catalog.Catalog, error)
}

// CallCounter reports embedding provider usage. ai.RetryingEmbedder
// implements it.
type CallCounter interface {
	Calls() int64
	Failures() int64
}

// Pipeline imports a book catalog into the tag and description collections.
// A Pipeline runs one import at a time.
type Pipeline struct {
	embedder       ai.Embedder
	store          storage.CollectionStore
	loader         CatalogLoader
	pool           *ants.Pool
	concurrency    int
	batchSize      int
	clearExisting  bool
	deepVerify     bool
	tagCollection  string
	descCollection string
	progress       io.Writer
	metrics        MetricsObserver
	counter        CallCounter
	baseCalls      int64
	baseFailures   int64
	state          atomic.Int32
	running        sync.Mutex
	baseLogger     *slog.Logger
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithConcurrency sets the number of batches processed in parallel.
// Default is 3.
func WithConcurrency(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		p.concurrency = size
		return nil
	}
}

// WithBatchSize sets the number of records per batch. Default is 10.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithClearExisting removes every point from both collections before import.
func WithClearExisting(clear bool) Option {
	return func(p *Pipeline) error {
		p.clearExisting = clear
		return nil
	}
}

// WithDeepVerify compares the identifier sets of both collections during
// verification when the store can list them.
func WithDeepVerify(deep bool) Option {
	return func(p *Pipeline) error {
		p.deepVerify = deep
		return nil
	}
}

// WithCollections sets the tag and description collection names.
func WithCollections(tag, desc string) Option {
	return func(p *Pipeline) error {
		if tag == "" || desc == "" || tag == desc {
			return fmt.Errorf("%w: tag %q, desc %q", storage.ErrInvalidCollection, tag, desc)
		}
		p.tagCollection = tag
		p.descCollection = desc
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithProgress sets where progress lines and the final report are written.
// Default discards them.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.progress = w
		return nil
	}
}

// WithMetrics sets the metrics observer.
func WithMetrics(m MetricsObserver) Option {
	return func(p *Pipeline) error {
		if m == nil {
			m = NoopMetrics{}
		}
		p.metrics = m
		return nil
	}
}

// WithLoader sets the catalog loader. Default is catalog.NewLoader().
func WithLoader(loader CatalogLoader) Option {
	return func(p *Pipeline) error {
		if loader == nil {
			return errors.New("catalog loader cannot be nil")
		}
		p.loader = loader
		return nil
	}
}

// WithCallCounter sets the source of the embedding call count reported in
// progress and the summary. Only calls made during a run are attributed to
// it. Without a counter, every embedding request made by the pipeline is
// counted, cache hits included.
func WithCallCounter(counter CallCounter) Option {
	return func(p *Pipeline) error {
		p.counter = counter
		return nil
	}
}

// NewPipeline creates a new import pipeline.
func NewPipeline(embedder ai.Embedder, store storage.CollectionStore, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	pool, err := ants.NewPool(DefaultConcurrency)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		embedder:       embedder,
		store:          store,
		loader:         catalog.NewLoader(),
		pool:           pool,
		concurrency:    DefaultConcurrency,
		batchSize:      DefaultBatchSize,
		tagCollection:  DefaultTagCollection,
		descCollection: DefaultDescCollection,
		progress:       io.Discard,
		metrics:        NoopMetrics{},
		logger:         slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.baseLogger = p.logger
	p.logger = p.logger.With("component", "pipeline")

	return p, nil
}

// State returns the phase of the current or last run.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) enter(state State) {
	p.state.Store(int32(state))
	p.logger.Debug("state", "state", state.String())
}

// Run executes one import of source. The returned Summary is never nil; it
// describes failed runs too. The error is non-nil only when the run ends
// in StateFailed and wraps one of ErrServiceUnavailable,
// ErrCollectionSetupFailed, ErrInputUnreadable or the context error.
func (p *Pipeline) Run(ctx context.Context, source string) (*Summary, error) {
	p.running.Lock()
	defer p.running.Unlock()

	if p.counter != nil {
		p.baseCalls = p.counter.Calls()
		p.baseFailures = p.counter.Failures()
	}

	start := time.Now()
	summary := &Summary{
		Source: source,
		Stats:  RunStats{StartTime: start.UTC()},
		Config: SummaryConfig{
			BatchSize:      p.batchSize,
			Concurrency:    p.concurrency,
			ClearExisting:  p.clearExisting,
			TagCollection:  p.tagCollection,
			DescCollection: p.descCollection,
		},
	}

	processor, err := NewBatchProcessor(p.embedder, p.baseLogger)
	if err != nil {
		return p.fail(summary, processor, err)
	}
	writer, err := NewDualWriter(p.store, p.tagCollection, p.descCollection, p.metrics, p.baseLogger)
	if err != nil {
		return p.fail(summary, processor, err)
	}

	p.enter(StateServiceCheck)
	if err := p.checkServices(ctx); err != nil {
		return p.fail(summary, processor, err)
	}

	p.enter(StateCollectionSetup)
	if err := p.setupCollections(ctx); err != nil {
		return p.fail(summary, processor, err)
	}

	p.enter(StateLoading)
	books, err := p.load(ctx, source, summary)
	if err != nil {
		return p.fail(summary, processor, err)
	}

	p.enter(StateImporting)
	if err := p.importBooks(ctx, books, processor, writer, summary); err != nil {
		return p.fail(summary, processor, err)
	}

	p.enter(StateVerifying)
	reports, warnings := p.verify(ctx, summary.Stats.Succeeded)
	summary.Collections = reports
	summary.Warnings = append(summary.Warnings, warnings...)

	p.enter(StateDone)
	p.finish(summary, processor, StateDone, nil)
	p.logger.Info("import complete",
		"total", summary.Stats.Total,
		"succeeded", summary.Stats.Succeeded,
		"failed", summary.Stats.Failed,
		"elapsed", time.Since(start))
	return summary, nil
}

func (p *Pipeline) fail(summary *Summary, processor *BatchProcessor, err error) (*Summary, error) {
	p.logger.Error("import failed", "state", p.State().String(), "err", err)
	p.enter(StateFailed)
	p.finish(summary, processor, StateFailed, err)
	return summary, err
}

func (p *Pipeline) finish(summary *Summary, processor *BatchProcessor, state State, err error) {
	summary.Stats.EmbeddingCalls = p.embeddingCalls(processor)
	summary.finish(state, err)

	var failures int64
	if p.counter != nil {
		failures = p.counter.Failures() - p.baseFailures
	}
	p.metrics.RecordRun(summary.State, summary.Elapsed(), summary.Stats.EmbeddingCalls, failures)
	summary.Report(p.progress)
}

func (p *Pipeline) embeddingCalls(processor *BatchProcessor) int64 {
	if p.counter != nil {
		return p.counter.Calls() - p.baseCalls
	}
	if processor == nil {
		return 0
	}
	return processor.Calls()
}

// checkServices confirms the store answers and the embedding model is served.
func (p *Pipeline) checkServices(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.store.Ping(gctx); err != nil {
			return fmt.Errorf("vector store: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		checker, ok := p.embedder.(ai.ModelChecker)
		if !ok {
			return nil
		}
		if err := checker.CheckModel(gctx); err != nil {
			return fmt.Errorf("embedding service: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	return nil
}

// setupCollections ensures both collections exist and optionally clears them.
func (p *Pipeline) setupCollections(ctx context.Context) error {
	for _, name := range []string{p.tagCollection, p.descCollection} {
		created, err := p.store.Ensure(ctx, name)
		if err != nil {
			return p.setupErr(ctx, "ensure", name, err)
		}
		p.logger.Info("collection ready", "collection", name, "created", created)
	}

	if !p.clearExisting {
		return nil
	}
	for _, name := range []string{p.tagCollection, p.descCollection} {
		if err := p.store.Clear(ctx, name); err != nil {
			return p.setupErr(ctx, "clear", name, err)
		}
		p.logger.Info("collection cleared", "collection", name)
	}
	return nil
}

func (p *Pipeline) setupErr(ctx context.Context, op, name string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %s %s: %w", ErrCollectionSetupFailed, op, name, err)
}

func (p *Pipeline) load(ctx context.Context, source string, summary *Summary) ([]core.BookRecord, error) {
	cat, err := p.loader.Load(ctx, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}
	summary.InputDigest = cat.Digest
	summary.Warnings = append(summary.Warnings, cat.Warnings...)
	summary.Stats.Total = len(cat.Books)
	return cat.Books, nil
}

// importBooks splits books into batches and runs them on the worker pool.
// Outcomes are merged into summary.Stats by this goroutine only.
func (p *Pipeline) importBooks(ctx context.Context, books []core.BookRecord, processor *BatchProcessor, writer *DualWriter, summary *Summary) error {
	total := len(books)
	batches := (total + p.batchSize - 1) / p.batchSize

	tracker := NewProgressTracker(p.progress, total)
	tracker.Start()
	defer tracker.Finish()

	if total == 0 {
		return ctx.Err()
	}

	outcomes := make(chan *BatchOutcome, batches)
	var wg sync.WaitGroup

	// Dispatch
	go func() {
		defer close(outcomes)
		defer wg.Wait()

		for i := 0; i < batches; i++ {
			if ctx.Err() != nil {
				p.logger.Warn("import cancelled, skipping remaining batches", "remaining", batches-i)
				return
			}

			offset := i * p.batchSize
			end := min(offset+p.batchSize, total)
			index := i

			wg.Add(1)
			err := p.pool.Submit(func() {
				defer wg.Done()
				outcomes <- p.runBatch(ctx, index, books[offset:end], offset, processor, writer)
			})
			if err != nil {
				wg.Done()
				p.logger.Error("error submitting batch", "batch", index, "err", err)
				outcomes <- &BatchOutcome{
					Index:    index,
					Offset:   offset,
					Size:     end - offset,
					Failed:   end - offset,
					WriteErr: err,
				}
			}
		}
	}()

	stats := &summary.Stats
	for outcome := range outcomes {
		stats.add(outcome)
		p.metrics.RecordBatch(outcome.Size, outcome.Succeeded, outcome.Failed, outcome.Duration)
		tracker.Update(stats.Processed, p.embeddingCalls(processor))
	}

	return ctx.Err()
}

// runBatch embeds and writes one batch. It never returns an error; failures
// are carried in the outcome.
func (p *Pipeline) runBatch(ctx context.Context, index int, books []core.BookRecord, offset int, processor *BatchProcessor, writer *DualWriter) *BatchOutcome {
	start := time.Now()
	result := processor.Process(ctx, books, offset)

	outcome := &BatchOutcome{
		Index:     index,
		Offset:    offset,
		Size:      result.Size,
		Succeeded: result.Succeeded(),
		Failed:    len(result.Failures),
		Failures:  result.Failures,
	}

	if err := writer.Write(ctx, result.TagPoints, result.DescPoints); err != nil {
		p.logger.Error("batch write failed", "batch", index, "offset", offset, "size", result.Size, "err", err)
		outcome.WriteErr = err
		outcome.Succeeded = 0
		outcome.Failed = result.Size
	}

	outcome.Duration = time.Since(start)
	p.logger.Debug("batch processed", "batch", index, "succeeded", outcome.Succeeded, "failed", outcome.Failed, "elapsed", outcome.Duration)
	return outcome
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

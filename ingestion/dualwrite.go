package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
)

// DualWriter writes a batch's point pairs to the tag collection and then
// the description collection.
//
// There is no rollback: when the description write fails, the tag points
// stay written. Identifiers are deterministic, so re-running the import
// converges both collections.
type DualWriter struct {
	store          storage.CollectionStore
	tagCollection  string
	descCollection string
	metrics        MetricsObserver
	logger         *slog.Logger
}

// NewDualWriter creates a writer for the two named collections.
func NewDualWriter(store storage.CollectionStore, tagCollection, descCollection string, metrics MetricsObserver, logger *slog.Logger) (*DualWriter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if tagCollection == "" || descCollection == "" || tagCollection == descCollection {
		return nil, fmt.Errorf("%w: tag %q, desc %q", storage.ErrInvalidCollection, tagCollection, descCollection)
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DualWriter{
		store:          store,
		tagCollection:  tagCollection,
		descCollection: descCollection,
		metrics:        metrics,
		logger:         logger.With("component", "dual-writer"),
	}, nil
}

// Write upserts tagPoints then descPoints. The description write is skipped
// when the tag write fails. The returned error wraps ErrUpsertFailed.
func (w *DualWriter) Write(ctx context.Context, tagPoints, descPoints []core.PointRecord) error {
	if len(tagPoints) != len(descPoints) {
		return fmt.Errorf("%w: %d tag points but %d description points", ErrUpsertFailed, len(tagPoints), len(descPoints))
	}
	if len(tagPoints) == 0 {
		return nil
	}

	if err := w.upsert(ctx, w.tagCollection, tagPoints); err != nil {
		return err
	}
	if err := w.upsert(ctx, w.descCollection, descPoints); err != nil {
		w.logger.Warn("description write failed after tag write succeeded",
			"points", len(tagPoints), "collection", w.tagCollection)
		return err
	}
	return nil
}

func (w *DualWriter) upsert(ctx context.Context, collection string, points []core.PointRecord) error {
	err := w.store.Upsert(ctx, collection, points)
	w.metrics.RecordUpsert(collection, len(points), err)
	if err != nil {
		if errors.Is(err, ErrUpsertFailed) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrUpsertFailed, collection, err)
	}
	return nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/poiesic/shelfvec/core"
)

// CollectionConfig is the shape every collection managed by a store is
// created with.
type CollectionConfig struct {
	VectorSize int           `json:"vector_size"`
	Distance   core.Distance `json:"distance"`
}

// Validate checks that the configuration can create a collection.
func (c CollectionConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive, got %d", ErrInvalidCollection, c.VectorSize)
	}
	if !c.Distance.Valid() {
		return fmt.Errorf("%w: unknown distance %q", ErrInvalidCollection, c.Distance)
	}
	return nil
}

// CollectionStore manages named vector collections.
// Implementations must be safe for concurrent use.
type CollectionStore interface {
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Ensure makes sure the named collection exists, creating it with the
	// store's CollectionConfig if absent. created reports whether this call
	// created it. Concurrent calls for one name must not fail because
	// another caller won the race.
	Ensure(ctx context.Context, name string) (created bool, err error)

	// Clear deletes every point in the collection. Enumeration is paged
	// until exhausted.
	Clear(ctx context.Context, name string) error

	// Upsert writes or overwrites points by identifier. A non-nil error
	// means the whole batch must be treated as failed.
	Upsert(ctx context.Context, name string, points []core.PointRecord) error

	// Stats returns the collection's configuration and current counts.
	Stats(ctx context.Context, name string) (*core.CollectionState, error)

	// Close releases resources held by the store.
	Close() error
}

// PointLister is implemented by stores that can enumerate point identifiers.
// Used to compare the identifier sets of paired collections.
type PointLister interface {
	PointIDs(ctx context.Context, name string) ([]core.PointID, error)
}

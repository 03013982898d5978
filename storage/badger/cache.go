package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/shelfvec/ai"
	"github.com/poiesic/shelfvec/storage"
)

// EmbeddingCache implements ai.Cache on a Backend.
type EmbeddingCache struct {
	backend *Backend
}

var _ ai.Cache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a cache sharing the given backend.
func NewEmbeddingCache(backend *Backend) *EmbeddingCache {
	return &EmbeddingCache{backend: backend}
}

// GetVector returns the cached vector for key.
func (c *EmbeddingCache) GetVector(ctx context.Context, key []byte) ([]float32, bool, error) {
	var vector []float32
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			vector, _, err = storage.UnmarshalVector(val)
			return err
		})
	}, false)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return vector, true, nil
}

// PutVector stores vector under key.
func (c *EmbeddingCache) PutVector(ctx context.Context, key []byte, vector []float32) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		return tx.Set(makeEmbeddingKey(key), storage.MarshalVector(vector))
	}, true)
}

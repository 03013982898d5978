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

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/shelfvec/core"
	"github.com/poiesic/shelfvec/storage"
)

const maxEnsureAttempts = 5

// Store implements storage.CollectionStore on an embedded BadgerDB.
// Each collection keeps its configuration under one key and its points
// under a per-collection prefix.
type Store struct {
	backend    *Backend
	collection storage.CollectionConfig
	ownBackend bool
	logger     *slog.Logger
}

var (
	_ storage.CollectionStore = (*Store)(nil)
	_ storage.PointLister     = (*Store)(nil)
)

// NewStore creates a collection store over an existing backend. Closing the
// store leaves the backend open.
func NewStore(backend *Backend, collection storage.CollectionConfig) (*Store, error) {
	if backend == nil {
		return nil, errors.New("badger: backend is required")
	}
	if err := collection.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		backend:    backend,
		collection: collection,
		logger:     slog.Default().With("component", "badger-store"),
	}, nil
}

// OpenStore opens a backend at path and creates a store that owns it.
func OpenStore(path string, collection storage.CollectionConfig) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	s, err := NewStore(backend, collection)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.ownBackend = true
	return s, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidCollection, name)
	}
	return nil
}

// Ping reports whether the backend is open.
func (s *Store) Ping(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Ensure creates the collection's configuration record if absent. Write
// conflicts from concurrent creators are retried; the loser sees the
// winner's record and reports created=false.
func (s *Store) Ensure(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	meta, err := json.Marshal(s.collection)
	if err != nil {
		return false, err
	}

	for attempt := 0; attempt < maxEnsureAttempts; attempt++ {
		created := false
		err := s.backend.WithTx(func(tx *badger.Txn) error {
			key := makeCollectionKey(name)
			_, err := tx.Get(key)
			if err == nil {
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			created = true
			return tx.Set(key, meta)
		}, true)

		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, err
		}
		if created {
			s.logger.Info("collection created", "collection", name,
				"size", s.collection.VectorSize, "distance", s.collection.Distance)
		}
		return created, nil
	}
	return false, fmt.Errorf("ensure %s: %w", name, badger.ErrConflict)
}

func (s *Store) loadConfig(tx *badger.Txn, name string) (storage.CollectionConfig, error) {
	var cfg storage.CollectionConfig
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return cfg, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return cfg, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &cfg)
	})
	return cfg, err
}

// scanKeys calls fn with every point key of the collection, in key order.
func (s *Store) scanKeys(ctx context.Context, name string, fn func(key []byte) error) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := s.loadConfig(tx, name); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makePointPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(iter.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Clear deletes every point of the collection. The configuration record
// is kept.
func (s *Store) Clear(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	var keys [][]byte
	err := s.scanKeys(ctx, name, func(key []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enumerate %s: %w", name, err)
	}
	if len(keys) == 0 {
		s.logger.Info("collection already empty", "collection", name)
		return nil
	}

	if err := s.backend.deleteKeys(keys); err != nil {
		return fmt.Errorf("delete from %s: %w", name, err)
	}
	s.logger.Info("collection cleared", "collection", name, "deleted", len(keys))
	return nil
}

// Upsert writes all points in a single transaction. Validation failures and
// oversized batches leave the collection untouched.
func (s *Store) Upsert(ctx context.Context, name string, points []core.PointRecord) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		cfg, err := s.loadConfig(tx, name)
		if err != nil {
			return err
		}
		for i := range points {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := core.ValidatePoint(&points[i], cfg.VectorSize); err != nil {
				return err
			}
			value, err := storage.MarshalPoint(&points[i])
			if err != nil {
				return err
			}
			if err := tx.Set(makePointKey(name, points[i].ID), value); err != nil {
				return err
			}
		}
		return nil
	}, true)
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %s: %w: %d points of dimension %d do not fit one transaction, lower import.batch_size",
			storage.ErrUpsertRejected, name, storage.ErrBatchTooLarge, len(points), len(points[0].Vector))
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", storage.ErrUpsertRejected, name, err)
	}
	return nil
}

// Stats counts the collection's points.
func (s *Store) Stats(ctx context.Context, name string) (*core.CollectionState, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	var cfg storage.CollectionConfig
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		cfg, err = s.loadConfig(tx, name)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	var count uint64
	err = s.scanKeys(ctx, name, func([]byte) error {
		count++
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &core.CollectionState{
		Name:         name,
		VectorSize:   cfg.VectorSize,
		Distance:     cfg.Distance,
		PointsCount:  count,
		VectorsCount: count,
		Status:       "green",
	}, nil
}

// PointIDs returns every point id in the collection.
func (s *Store) PointIDs(ctx context.Context, name string) ([]core.PointID, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	var ids []core.PointID
	err := s.scanKeys(ctx, name, func(key []byte) error {
		if id, ok := pointIDFromKey(key); ok {
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// GetPoint reads a single point. Returns nil, nil when it does not exist.
func (s *Store) GetPoint(ctx context.Context, name string, id core.PointID) (*core.PointRecord, error) {
	var point *core.PointRecord
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePointKey(name, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			point, err = storage.UnmarshalPoint(id, val)
			return err
		})
	}, false)
	return point, err
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if s.ownBackend {
		return s.backend.Close()
	}
	return nil
}

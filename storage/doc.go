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

// Package storage provides the vector collection abstraction for shelfvec.
//
// This package defines the CollectionStore interface that decouples the
// ingestion pipeline from the vector database it writes to. Two backends are
// provided:
//
//   - storage/qdrant: a Qdrant REST client (the production target)
//   - storage/badger: an embedded BadgerDB store, on disk or in memory
//
// # Semantics
//
// Every backend must provide the same guarantees:
//
//   - Ensure is idempotent and safe to call concurrently for one name.
//   - Clear removes every point, however many pages the enumeration takes.
//     An empty collection is trivially cleared.
//   - Upsert is all-or-nothing from the caller's view. An empty slice is a
//     no-op success. Points are overwritten by identifier.
//   - Stats reports the configured dimensionality and the current counts.
//
// # Usage
//
//	store, err := qdrant.NewStore(qdrant.Config{
//	    URL:        "http://localhost:6333",
//	    Collection: storage.CollectionConfig{VectorSize: 1024, Distance: core.DistanceCosine},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if _, err := store.Ensure(ctx, "tags_vecs"); err != nil {
//	    log.Fatal(err)
//	}
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore(storage.CollectionConfig{VectorSize: 8, Distance: core.DistanceCosine})
//
// # Context Support
//
// All store methods accept context.Context for cancellation
// and timeout support.
package storage

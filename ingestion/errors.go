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

import "errors"

var (
	// ErrServiceUnavailable is returned when the embedding service or the
	// vector store cannot be reached, or the model is not available.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrCollectionSetupFailed is returned when a collection cannot be
	// created or cleared.
	ErrCollectionSetupFailed = errors.New("collection setup failed")

	// ErrInputUnreadable is returned when the catalog is missing or malformed.
	ErrInputUnreadable = errors.New("input unreadable")

	// ErrUpsertFailed marks a batch whose dual write did not complete.
	ErrUpsertFailed = errors.New("upsert failed")

	// ErrVerificationUnavailable marks a collection whose stats could not
	// be read after import.
	ErrVerificationUnavailable = errors.New("verification unavailable")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStoreRequired is returned when a collection store is not provided.
	ErrStoreRequired = errors.New("collection store required")
)

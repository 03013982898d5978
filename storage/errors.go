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

package storage

import (
	"errors"

	"github.com/poiesic/shelfvec/core"
)

var (
	// ErrCollectionNotFound indicates that the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// collection's configured dimensionality.
	ErrDimensionMismatch = core.ErrDimensionMismatch

	// ErrUpsertRejected indicates that the store refused a batch write.
	ErrUpsertRejected = errors.New("upsert rejected")

	// ErrBatchTooLarge indicates that a batch exceeds what the store can
	// write in one transaction.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidCollection indicates an empty or malformed collection name
	// or configuration.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrTruncatedData indicates that stored data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)

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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidBook indicates a BookRecord failed validation.
	ErrInvalidBook = errors.New("invalid book record")

	// ErrInvalidPoint indicates a PointRecord failed validation.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrEmptyVector indicates a point carries no vector.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrDimensionMismatch indicates a vector's length differs from the
	// collection's configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrNilPointID indicates a point has the zero identifier.
	ErrNilPointID = errors.New("point id cannot be nil")
)

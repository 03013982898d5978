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

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultLanguage is assumed for records that do not declare one.
const DefaultLanguage = "中文"

// Point type discriminators stored in every payload.
const (
	PointTypeBook     = "book"
	PointTypeBookDesc = "book_desc"
)

// BookRecord is a single catalog entry as read from the input file.
// Records are never modified after loading.
type BookRecord struct {
	BookID      string   `json:"book_id,omitempty"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Language    string   `json:"language"`
	CoverURL    string   `json:"cover_url"`
}

// ApplyDefaults fills fields the catalog is allowed to omit.
func (b *BookRecord) ApplyDefaults() {
	if b.Language == "" {
		b.Language = DefaultLanguage
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
}

// Key returns the natural key used for identity derivation.
// Records without a book_id fall back to "bk_<index>", where index is the
// record's position in the catalog.
func (b *BookRecord) Key(index int) string {
	if b.BookID != "" {
		return b.BookID
	}
	return "bk_" + strconv.Itoa(index)
}

// TagText builds the text embedded into the tag collection.
func (b *BookRecord) TagText() string {
	if len(b.Tags) > 0 {
		return "Category: " + strings.Join(b.Tags, ", ")
	}
	return "Title: " + b.Title
}

// PointID identifies a point in a vector collection. It is rendered in the
// canonical 8-4-4-4-12 hex form.
type PointID = uuid.UUID

// Payload is the JSON metadata attached to a point.
type Payload map[string]any

// PointRecord is one vector written to a collection.
type PointRecord struct {
	ID      PointID   `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// NewTagPoint builds the tag collection point carrying the full record metadata.
func NewTagPoint(id PointID, key string, book *BookRecord, vector []float32) PointRecord {
	tags := book.Tags
	if tags == nil {
		tags = []string{}
	}
	return PointRecord{
		ID:     id,
		Vector: vector,
		Payload: Payload{
			"book_id":     key,
			"title":       book.Title,
			"author":      book.Author,
			"description": book.Description,
			"tags":        tags,
			"language":    book.Language,
			"cover_url":   book.CoverURL,
			"type":        PointTypeBook,
		},
	}
}

// NewDescPoint builds the description collection point. Its payload only
// links back to the book; the full metadata lives in the tag collection.
func NewDescPoint(id PointID, key string, vector []float32) PointRecord {
	return PointRecord{
		ID:     id,
		Vector: vector,
		Payload: Payload{
			"book_id": key,
			"type":    PointTypeBookDesc,
		},
	}
}

// Distance is the similarity metric a collection is configured with.
type Distance string

const (
	DistanceCosine    Distance = "Cosine"
	DistanceEuclid    Distance = "Euclid"
	DistanceDot       Distance = "Dot"
	DistanceManhattan Distance = "Manhattan"
)

// Valid reports whether d is a known metric.
func (d Distance) Valid() bool {
	switch d {
	case DistanceCosine, DistanceEuclid, DistanceDot, DistanceManhattan:
		return true
	}
	return false
}

// CollectionState describes a collection's configuration and size.
type CollectionState struct {
	Name         string   `json:"name"`
	VectorSize   int      `json:"vector_size"`
	Distance     Distance `json:"distance"`
	PointsCount  uint64   `json:"points_count"`
	VectorsCount uint64   `json:"vectors_count"`
	Status       string   `json:"status,omitempty"`
}

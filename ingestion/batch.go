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
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/shelfvec/ai"
	"github.com/poiesic/shelfvec/core"
)

// RecordFailure describes a record dropped from its batch.
type RecordFailure struct {
	Index int    `json:"index"`
	Key   string `json:"book_id"`
	Err   error  `json:"-"`
}

// BatchResult is the output of BatchProcessor.Process. TagPoints and
// DescPoints are index-aligned and follow input order.
type BatchResult struct {
	Offset     int
	Size       int
	TagPoints  []core.PointRecord
	DescPoints []core.PointRecord
	Failures   []RecordFailure
}

// Succeeded returns the number of records that produced both points.
func (r *BatchResult) Succeeded() int {
	return len(r.TagPoints)
}

// BatchProcessor turns book records into point pairs.
type BatchProcessor struct {
	embedder ai.Embedder
	calls    atomic.Int64
	logger   *slog.Logger
}

// NewBatchProcessor creates a processor using embedder for both texts.
func NewBatchProcessor(embedder ai.Embedder, logger *slog.Logger) (*BatchProcessor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		embedder: embedder,
		logger:   logger.With("component", "batch-processor"),
	}, nil
}

// Process embeds every record of books. offset is the position of books[0]
// in the whole input and feeds the fallback key of records without a
// book_id. A record whose tag or description embedding fails is dropped and
// reported in Failures; the rest of the batch is unaffected.
func (bp *BatchProcessor) Process(ctx context.Context, books []core.BookRecord, offset int) *BatchResult {
	result := &BatchResult{
		Offset:     offset,
		Size:       len(books),
		TagPoints:  make([]core.PointRecord, 0, len(books)),
		DescPoints: make([]core.PointRecord, 0, len(books)),
	}

	for i := range books {
		book := &books[i]
		index := offset + i
		key := book.Key(index)
		id := core.PointIDFromKey(key)

		// Both texts are always requested so the call count does not depend
		// on which one failed.
		tagVector, tagErr := bp.embed(ctx, book.TagText())
		descVector, descErr := bp.embed(ctx, book.Description)

		if err := firstErr(tagErr, descErr); err != nil {
			bp.logger.Warn("record dropped", "index", index, "book_id", key, "title", book.Title, "err", err)
			result.Failures = append(result.Failures, RecordFailure{Index: index, Key: key, Err: err})
			continue
		}

		result.TagPoints = append(result.TagPoints, core.NewTagPoint(id, key, book, tagVector))
		result.DescPoints = append(result.DescPoints, core.NewDescPoint(id, key, descVector))
	}

	return result
}

func (bp *BatchProcessor) embed(ctx context.Context, text string) ([]float32, error) {
	bp.calls.Add(1)
	return bp.embedder.EmbedText(ctx, text)
}

// Calls returns the number of embedding requests made through this processor.
func (bp *BatchProcessor) Calls() int64 {
	return bp.calls.Load()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

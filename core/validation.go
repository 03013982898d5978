package core

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateBook validates a BookRecord before it enters a batch.
//
// Validation rules:
//   - record must not be nil
//   - tags must not contain empty strings
//
// An empty title, description or book_id is allowed: the key falls back to
// the record's position and the provider decides what an empty text embeds to.
func ValidateBook(book *BookRecord) error {
	if book == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidBook)
	}
	for i, tag := range book.Tags {
		if tag == "" {
			return fmt.Errorf("%w: tag %d is empty", ErrInvalidBook, i)
		}
	}
	return nil
}

// ValidatePoint checks a point against the collection dimensionality.
// A dim of zero skips the length check.
func ValidatePoint(point *PointRecord, dim int) error {
	if point == nil {
		return fmt.Errorf("%w: point is nil", ErrInvalidPoint)
	}
	if point.ID == uuid.Nil {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrNilPointID)
	}
	if len(point.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrEmptyVector)
	}
	if dim > 0 && len(point.Vector) != dim {
		return fmt.Errorf("%w: %w: got %d, want %d", ErrInvalidPoint, ErrDimensionMismatch, len(point.Vector), dim)
	}
	return nil
}

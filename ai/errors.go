package ai

import "errors"

var (
	// ErrEmbeddingUnavailable is returned when an embedding could not be
	// produced after all attempts were exhausted.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrModelNotFound is returned when the embedding service does not
	// advertise the configured model.
	ErrModelNotFound = errors.New("embedding model not found")

	// ErrEmptyEmbedding is returned when the service answers with no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when a decorator is built around a nil embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCacheRequired is returned when a caching embedder is built without a cache.
	ErrCacheRequired = errors.New("cache required")
)

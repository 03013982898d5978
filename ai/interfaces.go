package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ModelChecker is implemented by embedders that can confirm the configured
// model is served before any work starts.
type ModelChecker interface {
	// CheckModel returns nil when the service is reachable and the model is
	// available. It returns an error wrapping ErrModelNotFound when the
	// service answers but does not advertise the model.
	CheckModel(ctx context.Context) error
}

// Cache stores embeddings by an opaque key.
// Implementations must be thread-safe for concurrent use.
type Cache interface {
	// GetVector returns the cached vector for key. The bool is false on a miss.
	GetVector(ctx context.Context, key []byte) ([]float32, bool, error)

	// PutVector stores vector under key, replacing any previous value.
	PutVector(ctx context.Context, key []byte, vector []float32) error
}

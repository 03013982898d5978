// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder implements ai.Embedder and ai.ModelChecker without any
// external service, returning deterministic vectors so pipeline tests can
// assert on exact outputs.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder(1024)
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Fail every request for one text
//	embedder.FailOn("Title: broken")
//
//	// Custom behavior injection
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// MockEmbedder is safe for concurrent use.
package mock

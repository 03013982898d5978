package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"

	"github.com/poiesic/shelfvec/ai"
)

// ErrInjected is returned for texts registered with FailOn.
var ErrInjected = errors.New("mock: injected embedding failure")

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// CheckModelErr is returned by CheckModel.
	CheckModelErr error

	dim       int
	callCount atomic.Int64

	mu     sync.Mutex
	failOn map[string]struct{}
	texts  []string
}

var (
	_ ai.Embedder     = (*MockEmbedder)(nil)
	_ ai.ModelChecker = (*MockEmbedder)(nil)
)

// NewMockEmbedder creates a mock embedder producing dim-length vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		dim:    dim,
		failOn: make(map[string]struct{}),
	}
}

// FailOn makes every request for text fail with ErrInjected.
func (m *MockEmbedder) FailOn(texts ...string) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.failOn[t] = struct{}{}
	}
	return m
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)

	m.mu.Lock()
	m.texts = append(m.texts, text)
	_, fail := m.failOn[text]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, ErrInjected
	}
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return Vector(text, m.dim), nil
}

// CheckModel returns CheckModelErr.
func (m *MockEmbedder) CheckModel(ctx context.Context) error {
	return m.CheckModelErr
}

// CallCount returns the number of EmbedText calls.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// Texts returns every text requested so far, in arrival order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Reset clears the call history and injected behavior.
func (m *MockEmbedder) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.texts = nil
	m.failOn = make(map[string]struct{})
	m.mu.Unlock()
	m.EmbedTextFunc = nil
	m.CheckModelErr = nil
}

// Vector creates a deterministic unit-length vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	var sumSquares float64
	for i := range vector {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
		sumSquares += float64(vector[i]) * float64(vector[i])
	}

	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}

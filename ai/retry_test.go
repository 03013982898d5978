package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEmbedder fails the first failures calls, then succeeds.
type scriptedEmbedder struct {
	mu       sync.Mutex
	failures int
	calls    int
	delay    time.Duration
}

func (s *scriptedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if call <= s.failures {
		return nil, errors.New("service unavailable")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *scriptedEmbedder) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig(attempts int) *Config {
	return NewConfig(
		WithMaxAttempts(attempts),
		WithRetryDelay(5*time.Millisecond),
		WithRequestTimeout(time.Second),
	)
}

func TestRetry_Success(t *testing.T) {
	attempts := 0
	v, err := Retry(context.Background(), 3, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetry_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	_, err := Retry(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		return 0, expectedErr
	})
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetry_ZeroDelay(t *testing.T) {
	attempts := 0
	_, err := Retry(context.Background(), 4, 0, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("error")
	})
	require.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestRetry_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		attempts := 0
		_, err := Retry(context.Background(), n, time.Millisecond, func(ctx context.Context) (int, error) {
			attempts++
			return 0, nil
		})
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Equal(t, 0, attempts, "should not attempt with maxAttempts=%d", n)
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := Retry(ctx, 10, 10*time.Millisecond, func(ctx context.Context) (int, error) {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return 0, errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestRetryingEmbedder_EventualSuccess(t *testing.T) {
	inner := &scriptedEmbedder{failures: 2}
	e, err := NewRetryingEmbedder(inner, testConfig(3))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, inner.Calls(), "should succeed on the last allowed attempt")
	assert.Equal(t, int64(1), e.Calls())
	assert.Equal(t, int64(3), e.Attempts())
	assert.Equal(t, int64(0), e.Failures())
}

func TestRetryingEmbedder_ExhaustsAttempts(t *testing.T) {
	inner := &scriptedEmbedder{failures: 100}
	e, err := NewRetryingEmbedder(inner, testConfig(3))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "hello")
	require.Error(t, err)
	assert.Nil(t, vec)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, inner.Calls(), "no calls beyond the configured attempt count")
	assert.Equal(t, int64(1), e.Failures())
}

func TestRetryingEmbedder_PerAttemptTimeout(t *testing.T) {
	inner := &scriptedEmbedder{delay: 200 * time.Millisecond}
	cfg := testConfig(2)
	cfg.RequestTimeout = 20 * time.Millisecond
	e, err := NewRetryingEmbedder(inner, cfg)
	require.NoError(t, err)

	start := time.Now()
	_, err = e.EmbedText(context.Background(), "slow")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, inner.Calls())
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

type emptyEmbedder struct{}

func (emptyEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{}, nil
}

func TestRetryingEmbedder_EmptyVectorIsFailure(t *testing.T) {
	e, err := NewRetryingEmbedder(emptyEmbedder{}, testConfig(2))
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
	assert.Equal(t, int64(2), e.Attempts())
}

func TestRetryingEmbedder_RateLimit(t *testing.T) {
	inner := &scriptedEmbedder{}
	cfg := testConfig(1)
	cfg.RateLimit = 20
	e, err := NewRetryingEmbedder(inner, cfg)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 25; i++ {
		_, err := e.EmbedText(context.Background(), "x")
		require.NoError(t, err)
	}
	// burst of 20, the remaining 5 wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestRetryingEmbedder_ConcurrentCallCount(t *testing.T) {
	e, err := NewRetryingEmbedder(&scriptedEmbedder{}, testConfig(1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.EmbedText(context.Background(), "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), e.Calls())
}

func TestNewRetryingEmbedder_Validation(t *testing.T) {
	_, err := NewRetryingEmbedder(nil, testConfig(3))
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewRetryingEmbedder(&scriptedEmbedder{}, testConfig(0))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

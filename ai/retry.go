package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

// Retry runs op up to maxAttempts times, pausing delay between attempts.
// Every error returned by op is retried; cancellation of ctx stops the loop
// early and returns the context error. The error from the last attempt is
// returned when all attempts fail.
func Retry[T any](ctx context.Context, maxAttempts int, delay time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if maxAttempts <= 0 {
		var zero T
		return zero, ErrInvalidMaxAttempts
	}

	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	return retry.DoValue(ctx, backoff, func(ctx context.Context) (T, error) {
		v, err := op(ctx)
		if err != nil {
			return v, retry.RetryableError(err)
		}
		return v, nil
	})
}

// RetryingEmbedder wraps an Embedder with the embedding call policy:
// bounded attempts, a fixed pause between them, a timeout per attempt and an
// optional shared rate limit.
type RetryingEmbedder struct {
	inner       Embedder
	maxAttempts int
	delay       time.Duration
	timeout     time.Duration
	limiter     *rate.Limiter
	calls       atomic.Int64
	attempts    atomic.Int64
	failures    atomic.Int64
	logger      *slog.Logger
}

var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps inner with the retry policy from config.
func NewRetryingEmbedder(inner Embedder, config *Config) (*RetryingEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}

	e := &RetryingEmbedder{
		inner:       inner,
		maxAttempts: config.MaxAttempts,
		delay:       config.RetryDelay,
		timeout:     config.RequestTimeout,
		logger:      slog.Default().With("component", "retrying-embedder"),
	}
	if config.RateLimit > 0 {
		burst := int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return e, nil
}

// EmbedText embeds text, retrying failed attempts. After the final failed
// attempt the returned error wraps ErrEmbeddingUnavailable.
func (e *RetryingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)

	attempt := 0
	vector, err := Retry(ctx, e.maxAttempts, e.delay, func(ctx context.Context) ([]float32, error) {
		attempt++
		e.attempts.Add(1)

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attemptCtx := ctx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		vector, err := e.inner.EmbedText(attemptCtx, text)
		if err == nil && len(vector) == 0 {
			err = ErrEmptyEmbedding
		}
		if err != nil {
			e.logger.Warn("embedding attempt failed", "attempt", attempt, "maxAttempts", e.maxAttempts, "err", err)
			return nil, err
		}
		return vector, nil
	})
	if err != nil {
		e.failures.Add(1)
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrEmbeddingUnavailable, attempt, err)
	}
	if attempt > 1 {
		e.logger.Debug("embedding succeeded after retry", "attempt", attempt)
	}
	return vector, nil
}

// CheckModel forwards to the wrapped embedder when it supports model checks.
func (e *RetryingEmbedder) CheckModel(ctx context.Context) error {
	if checker, ok := e.inner.(ModelChecker); ok {
		return checker.CheckModel(ctx)
	}
	return nil
}

// Calls returns the number of EmbedText invocations.
func (e *RetryingEmbedder) Calls() int64 {
	return e.calls.Load()
}

// Attempts returns the number of requests issued to the wrapped embedder.
func (e *RetryingEmbedder) Attempts() int64 {
	return e.attempts.Load()
}

// Failures returns the number of calls that exhausted their attempts.
func (e *RetryingEmbedder) Failures() int64 {
	return e.failures.Load()
}

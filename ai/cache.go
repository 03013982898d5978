package ai

import (
	"context"
	"log/slog"

	"github.com/go-crypt/x/blake2b"
)

// CachingEmbedder serves embeddings from a Cache and only calls the wrapped
// embedder on a miss. Keys are derived from the model name and the text, so a
// model change never returns stale vectors.
type CachingEmbedder struct {
	inner  Embedder
	cache  Cache
	model  string
	logger *slog.Logger
}

var _ Embedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps inner with cache.
func NewCachingEmbedder(inner Embedder, cache Cache, model string) (*CachingEmbedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	return &CachingEmbedder{
		inner:  inner,
		cache:  cache,
		model:  model,
		logger: slog.Default().With("component", "caching-embedder"),
	}, nil
}

// CacheKey returns the cache key for text embedded with model.
func CacheKey(model, text string) []byte {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

// EmbedText returns the cached vector for text or embeds and caches it.
// Cache errors are logged and never fail the call.
func (c *CachingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, text)

	vector, ok, err := c.cache.GetVector(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", "err", err)
	} else if ok {
		return vector, nil
	}

	vector, err = c.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.cache.PutVector(ctx, key, vector); err != nil {
		c.logger.Warn("embedding cache write failed", "err", err)
	}
	return vector, nil
}

// CheckModel forwards to the wrapped embedder when it supports model checks.
func (c *CachingEmbedder) CheckModel(ctx context.Context) error {
	if checker, ok := c.inner.(ModelChecker); ok {
		return checker.CheckModel(ctx)
	}
	return nil
}

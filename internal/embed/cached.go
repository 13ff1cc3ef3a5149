package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// DefaultEmbeddingCacheSize holds about 1.5 MB of 384-wide vectors.
const DefaultEmbeddingCacheSize = 1000

// CachedEmbedder remembers recent vectors by text. Searches that repeat a
// query, and re-indexing of unchanged chunks, skip the model.
// A cache belongs to one inner embedder, so keys are the raw text.
type CachedEmbedder struct {
	inner Embedder
	model string
	cache *lru.Cache[string, []float32]
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner. A size of zero or less uses
// DefaultEmbeddingCacheSize.
func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{inner: inner, model: inner.ModelName(), cache: cache}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, v)
	return v, nil
}

// EmbedBatch answers hits from the cache and sends all misses to the inner
// embedder as a single batch. Output order matches texts.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		pending []string
		slots   []int
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			out[i] = v
			continue
		}
		pending = append(pending, text)
		slots = append(slots, i)
	}
	if len(pending) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(pending) {
		return nil, derrors.ModelError(
			fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(pending)), nil)
	}
	for j, i := range slots {
		out[i] = vecs[j]
		c.cache.Add(pending[j], vecs[j])
	}
	return out, nil
}

// Len is the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

func (c *CachedEmbedder) Dimensions() int                    { return c.inner.Dimensions() }
func (c *CachedEmbedder) ModelName() string                  { return c.model }
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Inner is the wrapped embedder.
func (c *CachedEmbedder) Inner() Embedder { return c.inner }

// Close drops cached vectors, then closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

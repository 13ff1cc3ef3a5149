package embed

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// countingEmbedder records how it is called. The vector for a text carries
// the text length in component 0, which lets tests check result order.
type countingEmbedder struct {
	dims    int
	singles atomic.Int64
	batches atomic.Int64

	failOn string        // any batch containing this substring fails
	delay  time.Duration // per batch

	mu      sync.Mutex
	running int
	peak    int
	closed  bool
}

func newCountingEmbedder(dims int) *countingEmbedder {
	return &countingEmbedder{dims: dims}
}

func (c *countingEmbedder) vec(text string) []float32 {
	out := make([]float32, c.dims)
	out[0] = float32(len(text))
	return out
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.singles.Add(1)
	return c.vec(text), nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batches.Add(1)
	c.enter()
	defer c.leave()

	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if c.failOn != "" && strings.Contains(text, c.failOn) {
			return nil, errors.New("encode failed")
		}
		out = append(out, c.vec(text))
	}
	return out, nil
}

func (c *countingEmbedder) enter() {
	c.mu.Lock()
	c.running++
	if c.running > c.peak {
		c.peak = c.running
	}
	c.mu.Unlock()
}

func (c *countingEmbedder) leave() {
	c.mu.Lock()
	c.running--
	c.mu.Unlock()
}

func (c *countingEmbedder) Dimensions() int { return c.dims }
func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Available(context.Context) bool { return true }

func (c *countingEmbedder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *countingEmbedder) peakConcurrency() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peak
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(v []float32) float64 { return math.Sqrt(dot(v, v)) }

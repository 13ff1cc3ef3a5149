// Package embed turns text into fixed-width, unit-length vectors.
//
// The package offers a deterministic hash embedder that needs no model
// runtime, an Ollama HTTP embedder, an LRU query cache, and the Worker that
// runs batch encoding off the caller's goroutine. Capability models whether
// an embedder has been initialized at all.
package embed

import (
	"context"
	"math"
	"time"
)

// Batch and request limits shared by the embedders and the Worker.
const (
	MinBatchSize     = 1
	MaxBatchSize     = 256 // larger batches are split
	DefaultBatchSize = 32

	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3

	// DefaultDimensions is the width of all-minilm, and of the static
	// embedder unless configured otherwise.
	DefaultDimensions = 384
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for many texts. The result has the same
	// length and order as texts; empty input gives empty output.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed embedding width.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the embedder can serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector returns v scaled to unit length so that a dot product
// between two results is their cosine similarity. A zero vector has no
// direction and comes back unchanged.
func normalizeVector(v []float32) []float32 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

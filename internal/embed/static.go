package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// StaticModelName identifies vectors produced by StaticEmbedder.
const StaticModelName = "static-hash-384"

// StaticEmbedder generates embeddings by feature hashing words and character
// trigrams into a fixed number of buckets. It needs no network or model files
// and is fully deterministic, at the cost of semantic quality: texts that
// share vocabulary score high, paraphrases do not.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

// englishStopWords are dropped before hashing so that function words do not
// dominate the vector.
var englishStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "it": true, "this": true, "that": true,
	"with": true, "as": true, "at": true, "by": true, "from": true,
}

// Weights for vector generation
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// NewStaticEmbedder creates a hash embedder with DefaultDimensions buckets.
func NewStaticEmbedder() *StaticEmbedder {
	return NewStaticEmbedderWithDimensions(DefaultDimensions)
}

// NewStaticEmbedderWithDimensions creates a hash embedder of the given width.
// Non-positive widths fall back to DefaultDimensions.
func NewStaticEmbedderWithDimensions(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

func (e *StaticEmbedder) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return derrors.ModelError("embedder is closed", nil)
	}
	return nil
}

// Embed generates the embedding for a single text. Blank text yields the zero
// vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, e.dims), nil
	}
	return normalizeVector(e.generateVector(trimmed)), nil
}

func (e *StaticEmbedder) generateVector(text string) []float32 {
	vector := make([]float32, e.dims)

	for _, token := range tokenize(text) {
		if englishStopWords[token] {
			continue
		}
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}

	for _, ngram := range extractNgrams(normalizeForNgrams(text), ngramSize) {
		vector[hashToIndex(ngram, e.dims)] += ngramWeight
	}

	return vector
}

// tokenize lowercases text and splits it on anything that is not a letter or
// digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeForNgrams keeps only lowercase letters and digits.
func normalizeForNgrams(text string) []rune {
	var out []rune
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return out
}

// extractNgrams returns every n-rune sliding window.
func extractNgrams(runes []rune, n int) []string {
	if len(runes) < n {
		return []string{}
	}

	ngrams := make([]string, 0, len(runes)-n+1)
	for i := 0; i <= len(runes)-n; i++ {
		ngrams = append(ngrams, string(runes[i:i+n]))
	}
	return ngrams
}

// hashToIndex uses FNV-64 to map a string to a bucket.
func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// EmbedBatch embeds each text in order.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = emb
	}
	return results, nil
}

// Dimensions returns the embedding width.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the model identifier.
func (e *StaticEmbedder) ModelName() string {
	return StaticModelName
}

// Available is true until Close.
func (e *StaticEmbedder) Available(_ context.Context) bool {
	return e.checkOpen() == nil
}

// Close releases resources.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

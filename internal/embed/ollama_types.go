package embed

import (
	"strings"
	"time"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm" // 384 dimensions

	// OllamaConnectTimeout bounds Available.
	OllamaConnectTimeout = 5 * time.Second
	OllamaPoolSize       = 4
)

// OllamaConfig configures an OllamaEmbedder. Zero fields take the defaults
// above and those of the Embedder interface.
type OllamaConfig struct {
	Host  string
	Model string
	// FallbackModels are tried in order when Model is not installed. Vectors
	// from different models do not compare, so none are tried by default.
	FallbackModels []string
	// Dimensions skips width detection when set.
	Dimensions int

	BatchSize      int
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxRetries     int
	PoolSize       int
	// RequestsPerSecond caps /api/embed calls; 0 is unlimited.
	RequestsPerSecond float64

	// SkipHealthCheck trusts Model and Dimensions without contacting the
	// server at construction.
	SkipHealthCheck bool
}

// DefaultOllamaConfig returns an OllamaConfig with every default filled in.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{}.withDefaults()
}

func (c OllamaConfig) withDefaults() OllamaConfig {
	if c.Host == "" {
		c.Host = DefaultOllamaHost
	}
	c.Host = strings.TrimRight(c.Host, "/")
	if c.Model == "" {
		c.Model = DefaultOllamaModel
	}
	c.BatchSize = min(max(c.BatchSize, 0), MaxBatchSize)
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = OllamaConnectTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.PoolSize <= 0 {
		c.PoolSize = OllamaPoolSize
	}
	return c
}

// Wire types of the Ollama HTTP API.
type (
	ollamaEmbedRequest struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}

	ollamaEmbedResponse struct {
		Model      string      `json:"model"`
		Embeddings [][]float64 `json:"embeddings"`
	}

	ollamaTagsResponse struct {
		Models []ollamaModel `json:"models"`
	}

	ollamaModel struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
)

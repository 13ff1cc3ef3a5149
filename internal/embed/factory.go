package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings; always available
	ProviderStatic ProviderType = "static"

	// ProviderOllama uses a local Ollama server
	ProviderOllama ProviderType = "ollama"
)

// Options selects and tunes an embedder.
type Options struct {
	Provider          ProviderType
	Model             string
	Dimensions        int
	OllamaHost        string
	BatchSize         int
	RequestsPerSecond float64
	// CacheSize bounds the query cache. Negative disables caching.
	CacheSize int
}

// NewEmbedder creates the embedder named by opts.Provider. Unknown providers
// are a config error. Unless opts.CacheSize is negative the result is wrapped
// in a CachedEmbedder.
// An unreachable Ollama is an error; there is no fallback to static.
func NewEmbedder(ctx context.Context, opts Options) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)

	switch opts.Provider {
	case ProviderStatic, "":
		embedder = NewStaticEmbedderWithDimensions(opts.Dimensions)

	case ProviderOllama:
		cfg := DefaultOllamaConfig()
		if opts.OllamaHost != "" {
			cfg.Host = opts.OllamaHost
		}
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.BatchSize > 0 {
			cfg.BatchSize = opts.BatchSize
		}
		cfg.Dimensions = opts.Dimensions
		cfg.RequestsPerSecond = opts.RequestsPerSecond

		embedder, err = NewOllamaEmbedder(ctx, cfg)
		if err != nil {
			return nil, err
		}

	default:
		return nil, invalidProviderError(string(opts.Provider))
	}

	slog.Debug("embedder_created",
		slog.String("provider", string(opts.Provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if opts.CacheSize >= 0 {
		embedder = NewCachedEmbedder(embedder, opts.CacheSize)
	}
	return embedder, nil
}

// ParseProvider converts a string to a ProviderType. ok is false for unknown
// names.
func ParseProvider(s string) (ProviderType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static", "":
		return ProviderStatic, true
	case "ollama":
		return ProviderOllama, true
	default:
		return "", false
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{string(ProviderStatic), string(ProviderOllama)}
}

// IsValidProvider checks if a provider name is valid
func IsValidProvider(s string) bool {
	_, ok := ParseProvider(s)
	return ok && strings.TrimSpace(s) != ""
}

// EmbedderInfo describes an embedder for status output.
type EmbedderInfo struct {
	Provider   ProviderType `json:"provider"`
	Model      string       `json:"model"`
	Dimensions int          `json:"dimensions"`
	Available  bool         `json:"available"`
}

// GetInfo returns information about an embedder.
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
		Provider:   ProviderStatic,
	}

	inner := unwrap(embedder)
	if _, ok := inner.(*OllamaEmbedder); ok {
		info.Provider = ProviderOllama
	}
	return info
}

// unwrap strips Worker and CachedEmbedder layers.
func unwrap(e Embedder) Embedder {
	for {
		switch w := e.(type) {
		case *Worker:
			e = w.inner
		case *CachedEmbedder:
			e = w.inner
		default:
			return e
		}
	}
}

func invalidProviderError(name string) error {
	return derrors.New(derrors.ErrCodeConfigInvalid,
		fmt.Sprintf("unknown embedding provider %q", name), nil).
		WithSuggestion("Use one of: " + strings.Join(ValidProviders(), ", "))
}

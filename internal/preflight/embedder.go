package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// AvailabilityChecker reports whether an embedding backend can serve requests.
type AvailabilityChecker interface {
	Available(ctx context.Context) bool
}

// CheckEmbedder asks the configured embedder whether it is available. An unreachable embedder only
// blocks indexing and semantic search, so the check is not required.
func (c *Checker) CheckEmbedder(ctx context.Context, t Target) CheckResult {
	result := CheckResult{Name: "embedder"}
	label := t.Provider
	if t.Model != "" {
		label += " " + t.Model
	}

	if t.Embedder == nil || !t.Embedder.Available(ctx) {
		result.Status = StatusWarn
		result.Message = label + " is not reachable"
		if t.Host != "" {
			result.Details = fmt.Sprintf("Start Ollama at %s and pull the model, or set DOCRAG_EMBEDDER=static", t.Host)
		}
		return result
	}

	result.Status = StatusPass
	result.Message = label + " ready"
	return result
}

// CheckKeywordIndex checks that the keyword index directory exists.
func (c *Checker) CheckKeywordIndex(path string) CheckResult {
	result := CheckResult{Name: "keyword_index"}
	if path == "" {
		result.Status = StatusWarn
		result.Message = "no keyword index path configured"
		return result
	}

	if _, err := os.Stat(path); err != nil {
		result.Status = StatusWarn
		result.Message = "missing at " + filepath.Base(path)
		result.Details = "Run 'docrag index --rebuild-keywords'"
		return result
	}
	result.Status = StatusPass
	result.Message = "OK"
	return result
}

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig
	modelName string
	dims      int

	limiter *rate.Limiter
	breaker *derrors.CircuitBreaker

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// statusError is a non-200 reply from Ollama.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.code, e.body)
}

// NewOllamaEmbedder creates an Ollama embedder. Unless SkipHealthCheck is set
// it resolves an installed model and detects the vector width.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	cfg = cfg.withDefaults()

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	e := &OllamaEmbedder{
		// No client-wide timeout: each request gets its own context deadline.
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		modelName: cfg.Model,
		dims:      cfg.Dimensions,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   derrors.NewCircuitBreaker("ollama"),
	}

	if !cfg.SkipHealthCheck {
		checkCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		modelName, err := e.findAvailableModel(checkCtx)
		if err != nil {
			transport.CloseIdleConnections()
			return nil, derrors.New(derrors.ErrCodeModelLoad, "failed to connect to Ollama or find model", err).
				WithSuggestion("Start Ollama and run: docrag model pull " + cfg.Model)
		}
		e.modelName = modelName

		if cfg.Dimensions == 0 {
			vecs, err := e.doEmbed(checkCtx, []string{"dimension detection"})
			if err != nil {
				transport.CloseIdleConnections()
				return nil, derrors.New(derrors.ErrCodeModelLoad, "failed to detect embedding dimensions", err)
			}
			if len(vecs) == 0 || len(vecs[0]) == 0 {
				transport.CloseIdleConnections()
				return nil, derrors.New(derrors.ErrCodeModelLoad, "empty embedding returned", nil)
			}
			e.dims = len(vecs[0])
		}
	}

	if e.dims == 0 {
		e.dims = DefaultDimensions
	}
	return e, nil
}

func (e *OllamaEmbedder) listModels(ctx context.Context) ([]ollamaModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.config.Host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var result ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Models, nil
}

// findAvailableModel returns the installed name of the configured model, or
// of the first installed fallback. "name" matches any "name:tag".
func (e *OllamaEmbedder) findAvailableModel(ctx context.Context) (string, error) {
	models, err := e.listModels(ctx)
	if err != nil {
		return "", err
	}

	available := make(map[string]string)
	for _, m := range models {
		name := strings.ToLower(m.Name)
		available[name] = m.Name
		base := strings.Split(name, ":")[0]
		if _, exists := available[base]; !exists {
			available[base] = m.Name
		}
	}

	for _, candidate := range append([]string{e.config.Model}, e.config.FallbackModels...) {
		name := strings.ToLower(candidate)
		if actual, ok := available[name]; ok {
			return actual, nil
		}
		if actual, ok := available[strings.Split(name, ":")[0]]; ok {
			return actual, nil
		}
	}

	tried := append([]string{e.config.Model}, e.config.FallbackModels...)
	return "", fmt.Errorf("model %s is not installed", strings.Join(tried, ", "))
}

func (e *OllamaEmbedder) checkOpen() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return derrors.ModelError("embedder is closed", nil)
	}
	return nil
}

// Embed generates the embedding for a single text. Blank text yields the zero
// vector without a request.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends non-blank texts to Ollama in BatchSize requests and
// reassembles the vectors in input order.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, e.dims)
		} else {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(pending))
		idx := pending[start:end]

		batch := make([]string, len(idx))
		for i, j := range idx {
			batch[i] = texts[j]
		}

		vecs, err := e.doEmbedWithRetry(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, derrors.ModelError(
				fmt.Sprintf("ollama returned %d embeddings for %d texts", len(vecs), len(batch)), nil)
		}
		for i, j := range idx {
			if len(vecs[i]) != e.dims {
				return nil, derrors.New(derrors.ErrCodeDimensionMismatch,
					fmt.Sprintf("expected %d dimensions, got %d", e.dims, len(vecs[i])), nil)
			}
			results[j] = vecs[i]
		}
	}

	return results, nil
}

// isTransient reports whether a failed request is worth retrying. Client
// errors other than 429 are not.
func isTransient(err error) bool {
	if errors.Is(err, derrors.ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

func (e *OllamaEmbedder) doEmbedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	cfg := derrors.DefaultRetryConfig()
	cfg.MaxRetries = e.config.MaxRetries
	cfg.ShouldRetry = isTransient

	attempt := 0
	vecs, err := derrors.RetryWithResult(ctx, cfg, func() ([][]float32, error) {
		attempt++
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var out [][]float32
		err := e.breaker.Execute(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
			defer cancel()

			var err error
			out, err = e.doEmbed(reqCtx, texts)
			return err
		})
		if err != nil {
			slog.Debug("embedding_attempt_failed",
				slog.Int("attempt", attempt),
				slog.Int("texts_count", len(texts)),
				slog.String("error", err.Error()))
		}
		return out, err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, derrors.New(derrors.ErrCodeEmbeddingFailed, "ollama embedding failed", err).
			WithDetail("model", e.modelName)
	}
	return vecs, nil
}

// doEmbed performs one /api/embed request and normalizes the result.
func (e *OllamaEmbedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.modelName, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	var apiResult ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResult); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	embeddings := make([][]float32, len(apiResult.Embeddings))
	for i, emb := range apiResult.Embeddings {
		v := make([]float32, len(emb))
		for j, f := range emb {
			v[j] = float32(f)
		}
		embeddings[i] = normalizeVector(v)
	}
	return embeddings, nil
}

// Dimensions returns the embedding width.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

// ModelName returns the resolved model name.
func (e *OllamaEmbedder) ModelName() string {
	return e.modelName
}

// Available checks that Ollama is reachable and still has the model.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	if e.checkOpen() != nil {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, e.config.ConnectTimeout)
	defer cancel()

	models, err := e.listModels(checkCtx)
	if err != nil {
		return false
	}

	want := strings.ToLower(e.modelName)
	for _, m := range models {
		name := strings.ToLower(m.Name)
		if name == want || strings.Split(name, ":")[0] == strings.Split(want, ":")[0] {
			return true
		}
	}
	return false
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

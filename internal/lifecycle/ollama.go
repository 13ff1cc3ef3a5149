// Package lifecycle talks to a local Ollama server about its models: whether
// it is running, which models it has, and pulling the embedding model.
package lifecycle

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

const (
	// DefaultHost is the Ollama API endpoint used when none is configured.
	DefaultHost = "http://localhost:11434"

	// ReadyPollInterval is the first WaitForReady delay.
	ReadyPollInterval = 100 * time.Millisecond

	// MaxReadyPollInterval caps WaitForReady backoff.
	MaxReadyPollInterval = 2 * time.Second

	healthTimeout = 2 * time.Second
)

// OllamaManager queries and drives one Ollama server.
type OllamaManager struct {
	host   string
	client *http.Client
	// pull streams for minutes, so it has no client timeout.
	pullClient *http.Client
}

// OllamaStatus is the state of the server as seen from docrag.
type OllamaStatus struct {
	Host        string   `json:"host"`
	Running     bool     `json:"running"`
	Models      []string `json:"models,omitempty"`
	TargetModel string   `json:"target_model"`
	HasModel    bool     `json:"has_model"`
}

// PullProgress is one line of the streaming pull response.
type PullProgress struct {
	Status    string  `json:"status"`
	Digest    string  `json:"digest,omitempty"`
	Total     int64   `json:"total,omitempty"`
	Completed int64   `json:"completed,omitempty"`
	Percent   float64 `json:"-"`
}

// NewOllamaManager creates a manager for host, or DefaultHost when empty.
func NewOllamaManager(host string) *OllamaManager {
	if host == "" {
		host = DefaultHost
	}
	return &OllamaManager{
		host:       strings.TrimRight(host, "/"),
		client:     &http.Client{Timeout: 5 * time.Second},
		pullClient: &http.Client{},
	}
}

// Host returns the server URL.
func (m *OllamaManager) Host() string {
	return m.host
}

// IsRunning reports whether the server answers /api/tags.
func (m *OllamaManager) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns the names of the installed models.
func (m *OllamaManager) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, m.unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, derrors.NetworkError(
			fmt.Sprintf("ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	names := make([]string, len(tags.Models))
	for i, t := range tags.Models {
		names[i] = t.Name
	}
	return names, nil
}

// HasModel reports whether model is installed. A name without a tag matches
// any tag of that model, and "x:latest" matches "x".
func (m *OllamaManager) HasModel(ctx context.Context, model string) (bool, error) {
	models, err := m.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range models {
		if modelMatches(name, model) {
			return true, nil
		}
	}
	return false, nil
}

func modelMatches(installed, want string) bool {
	installed, want = strings.ToLower(installed), strings.ToLower(want)
	if installed == want {
		return true
	}
	base, tag, _ := strings.Cut(installed, ":")
	wantBase, wantTag, hasTag := strings.Cut(want, ":")
	if base != wantBase {
		return false
	}
	return !hasTag || wantTag == tag || (wantTag == "latest" && tag == "")
}

// Status reports whether the server is up and has model.
func (m *OllamaManager) Status(ctx context.Context, model string) (*OllamaStatus, error) {
	st := &OllamaStatus{Host: m.host, TargetModel: model}
	if !m.IsRunning(ctx) {
		return st, nil
	}
	st.Running = true

	models, err := m.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	st.Models = models
	for _, name := range models {
		if modelMatches(name, model) {
			st.HasModel = true
			break
		}
	}
	return st, nil
}

// WaitForReady polls with backoff until the server answers or timeout
// elapses.
func (m *OllamaManager) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	interval := ReadyPollInterval
	for {
		if m.IsRunning(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return derrors.New(derrors.ErrCodeNetworkTimeout,
				"timed out waiting for ollama at "+m.host, ctx.Err())
		case <-time.After(interval):
		}
		interval = min(interval*2, MaxReadyPollInterval)
	}
}

// PullModel downloads model, calling progress for every status line. It
// returns immediately when the model is already installed.
func (m *OllamaManager) PullModel(ctx context.Context, model string, progress func(PullProgress)) error {
	has, err := m.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	body, err := json.Marshal(struct {
		Name   string `json:"name"`
		Stream bool   `json:"stream"`
	}{Name: model, Stream: true})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.host+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.pullClient.Do(req)
	if err != nil {
		return m.unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return derrors.New(derrors.ErrCodeModelLoad,
			fmt.Sprintf("pull %s failed with %d: %s", model, resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var p struct {
			PullProgress
			Error string `json:"error"`
		}
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		if p.Error != "" {
			return derrors.New(derrors.ErrCodeModelLoad, "pull "+model+": "+p.Error, nil)
		}
		if p.Total > 0 {
			p.Percent = float64(p.Completed) / float64(p.Total) * 100
		}
		if progress != nil {
			progress(p.PullProgress)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read pull response: %w", err)
	}
	return nil
}

func (m *OllamaManager) unreachable(err error) error {
	return derrors.NetworkError("cannot reach ollama at "+m.host, err).
		WithSuggestion("Start it with 'ollama serve' or set DOCRAG_OLLAMA_HOST")
}

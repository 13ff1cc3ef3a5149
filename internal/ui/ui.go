// Package ui renders upload and indexing progress in the terminal: a
// bubbletea view for interactive sessions and plain lines for pipes and CI.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a phase of a CLI run.
type Stage int

const (
	// StageUploading copies, extracts and chunks source files.
	StageUploading Stage = iota
	// StageEmbedding encodes chunks and stores vectors.
	StageEmbedding
	// StageComplete indicates the run finished.
	StageComplete
)

// String returns the human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageUploading:
		return "Uploading"
	case StageEmbedding:
		return "Embedding"
	case StageComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Icon returns the short tag used in plain output.
func (s Stage) Icon() string {
	switch s {
	case StageUploading:
		return "UPLOAD"
	case StageEmbedding:
		return "EMBED"
	case StageComplete:
		return "DONE"
	default:
		return "???"
	}
}

// ProgressEvent reports that Current of Total documents are done.
type ProgressEvent struct {
	Stage    Stage
	Current  int
	Total    int
	Document string
	Message  string
}

// ErrorEvent is a per-document failure or warning.
type ErrorEvent struct {
	Document string
	Err      error
	IsWarn   bool
}

// EmbedderInfo names the embedding backend shown in summaries.
type EmbedderInfo struct {
	Provider   string
	Model      string
	Dimensions int
}

// CompletionStats summarizes a finished run.
type CompletionStats struct {
	Documents int
	Chunks    int
	Duration  time.Duration
	Errors    int
	Warnings  int
	Embedder  EmbedderInfo
}

// Renderer displays progress.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event ProgressEvent)
	AddError(event ErrorEvent)
	Complete(stats CompletionStats)
	Stop() error
}

// Config configures a renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	// Title is shown in the TUI header.
	Title string
}

// ConfigOption modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithTitle sets the TUI header.
func WithTitle(title string) ConfigOption {
	return func(c *Config) {
		c.Title = title
	}
}

// NewConfig creates a Config for output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output, Title: "docrag"}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the TUI for interactive terminals and plain text for
// everything else.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

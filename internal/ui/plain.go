package ui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// PlainRenderer prints one line per event, for pipes, CI and --no-tui.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

var _ Renderer = (*PlainRenderer)(nil)

func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

func (r *PlainRenderer) Start(context.Context) error { return nil }
func (r *PlainRenderer) Stop() error                 { return nil }

func (r *PlainRenderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// UpdateProgress skips events with nothing to say.
func (r *PlainRenderer) UpdateProgress(e ProgressEvent) {
	what := e.Message
	if what == "" {
		what = e.Document
	}
	switch {
	case e.Total > 0:
		r.printf("[%s] %d/%d - %s", e.Stage.Icon(), e.Current, e.Total, what)
	case what != "":
		r.printf("[%s] %s", e.Stage.Icon(), what)
	}
}

func (r *PlainRenderer) AddError(e ErrorEvent) {
	level := "ERROR"
	if e.IsWarn {
		level = "WARN"
	}
	parts := []string{level}
	if e.Document != "" {
		parts = append(parts, e.Document)
	}
	r.printf("%s: %v", strings.Join(parts, ": "), e.Err)
}

func (r *PlainRenderer) Complete(s CompletionStats) {
	var b strings.Builder
	fmt.Fprintf(&b, "Complete: %d documents, %d chunks in %s",
		s.Documents, s.Chunks, s.Duration.Round(100*time.Millisecond))
	if s.Errors+s.Warnings > 0 {
		fmt.Fprintf(&b, " (%d errors, %d warnings)", s.Errors, s.Warnings)
	}
	if e := s.Embedder; e.Provider != "" {
		fmt.Fprintf(&b, "\nEmbedder: %s (%s, %d dims)", e.Provider, e.Model, e.Dimensions)
	}
	r.printf("%s", b.String())
}

// Package async runs document backfills in the background and tracks their
// progress for the watch command and the MCP server.
package async

import (
	"sync"
	"time"

	"github.com/Aman-CERP/docrag/internal/index"
)

// IndexingStatus represents the state of the background indexer.
type IndexingStatus string

const (
	// StatusIdle means no run has started yet.
	StatusIdle IndexingStatus = "idle"
	// StatusIndexing means a backfill is in progress.
	StatusIndexing IndexingStatus = "indexing"
	// StatusReady means the last backfill finished and every document it saw
	// is searchable.
	StatusReady IndexingStatus = "ready"
	// StatusError means the last backfill failed.
	StatusError IndexingStatus = "error"
)

// IndexProgressSnapshot is an immutable copy of IndexProgress.
type IndexProgressSnapshot struct {
	Status           string     `json:"status"`
	CurrentDocument  string     `json:"current_document,omitempty"`
	DocumentsTotal   int        `json:"documents_total"`
	DocumentsIndexed int        `json:"documents_indexed"`
	ChunksIndexed    int        `json:"chunks_indexed"`
	ProgressPct      float64    `json:"progress_pct"`
	ElapsedSeconds   int        `json:"elapsed_seconds"`
	Runs             int        `json:"runs"`
	LastRunAt        *time.Time `json:"last_run_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// IndexProgress is a thread-safe record of the current or last backfill.
type IndexProgress struct {
	mu sync.RWMutex

	status           IndexingStatus
	currentDocument  string
	documentsTotal   int
	documentsIndexed int
	chunksIndexed    int
	startTime        time.Time
	lastRunAt        time.Time
	runs             int
	errorMessage     string
}

// NewIndexProgress creates an idle progress tracker.
func NewIndexProgress() *IndexProgress {
	return &IndexProgress{status: StatusIdle}
}

// Begin resets the per-run counters and marks a run as in progress.
func (p *IndexProgress) Begin() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status = StatusIndexing
	p.currentDocument = ""
	p.documentsTotal = 0
	p.documentsIndexed = 0
	p.chunksIndexed = 0
	p.errorMessage = ""
	p.startTime = time.Now()
}

// Observe records one indexed document. Its signature matches
// index.ProgressFunc so it can be handed to the index service directly.
func (p *IndexProgress) Observe(ev index.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentDocument = ev.Name
	p.documentsTotal = ev.Total
	p.documentsIndexed = ev.Current
	p.chunksIndexed += ev.Chunks
}

// Finish ends a run. A nil err marks the indexer ready.
func (p *IndexProgress) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runs++
	p.lastRunAt = time.Now()
	p.currentDocument = ""
	if err != nil {
		p.status = StatusError
		p.errorMessage = err.Error()
		return
	}
	p.status = StatusReady
}

// IsIndexing reports whether a run is in progress.
func (p *IndexProgress) IsIndexing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status == StatusIndexing
}

// Snapshot returns a copy of the current state.
func (p *IndexProgress) Snapshot() IndexProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := IndexProgressSnapshot{
		Status:           string(p.status),
		CurrentDocument:  p.currentDocument,
		DocumentsTotal:   p.documentsTotal,
		DocumentsIndexed: p.documentsIndexed,
		ChunksIndexed:    p.chunksIndexed,
		Runs:             p.runs,
		ErrorMessage:     p.errorMessage,
	}
	if p.documentsTotal > 0 {
		snap.ProgressPct = float64(p.documentsIndexed) / float64(p.documentsTotal) * 100.0
	}
	if p.status == StatusIndexing {
		snap.ElapsedSeconds = int(time.Since(p.startTime).Seconds())
	}
	if !p.lastRunAt.IsZero() {
		t := p.lastRunAt
		snap.LastRunAt = &t
	}
	return snap
}

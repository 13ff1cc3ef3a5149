package ui

import (
	"sync"
	"time"
)

// ProgressTracker holds the state the TUI draws from. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu         sync.Mutex
	stage      Stage
	current    int
	total      int
	document   string
	stageStart time.Time
	lastETA    time.Duration
	errors     int
	warnings   int
}

// ProgressStats is a snapshot of ProgressTracker.
type ProgressStats struct {
	Stage      Stage
	Current    int
	Total      int
	Progress   float64
	ETA        time.Duration
	Document   string
	ErrorCount int
	WarnCount  int
}

// NewProgressTracker creates a tracker in the uploading stage.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{stage: StageUploading, stageStart: time.Now()}
}

// Apply records a progress event, resetting counters on a stage change.
func (p *ProgressTracker) Apply(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Stage != p.stage {
		p.stage = event.Stage
		p.stageStart = time.Now()
		p.lastETA = 0
		p.document = ""
	}
	p.current = event.Current
	p.total = event.Total
	if event.Document != "" {
		p.document = event.Document
	}
}

// AddError counts an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings++
	} else {
		p.errors++
	}
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	progress := 0.0
	if p.total > 0 {
		progress = min(1.0, float64(p.current)/float64(p.total))
	}
	return ProgressStats{
		Stage:      p.stage,
		Current:    p.current,
		Total:      p.total,
		Progress:   progress,
		ETA:        p.eta(),
		Document:   p.document,
		ErrorCount: p.errors,
		WarnCount:  p.warnings,
	}
}

// etaSmoothing is the weight of the newest estimate.
const etaSmoothing = 0.3

// eta extrapolates the stage's elapsed time, smoothed exponentially since
// documents vary widely in size. Callers hold mu.
func (p *ProgressTracker) eta() time.Duration {
	if p.current <= 0 || p.total <= 0 || p.current >= p.total {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	frac := float64(p.current) / float64(p.total)
	raw := time.Duration(float64(elapsed)/frac) - elapsed
	if raw < 0 {
		return 0
	}
	if p.lastETA == 0 {
		p.lastETA = raw
		return raw
	}
	p.lastETA = time.Duration(etaSmoothing*float64(raw) + (1-etaSmoothing)*float64(p.lastETA))
	return p.lastETA
}

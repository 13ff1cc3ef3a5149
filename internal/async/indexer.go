package async

import (
	"context"
	"log/slog"
	"sync"
)

// Backfiller indexes every pending document. index.Service implements it.
type Backfiller interface {
	IndexAllPending(ctx context.Context) (docs, chunks int, err error)
}

// BackgroundIndexer runs backfills on a goroutine. Requests made while a run
// is in progress are coalesced into one follow-up run.
type BackgroundIndexer struct {
	backfill Backfiller
	progress *IndexProgress

	trigger chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	err      error
}

// NewBackgroundIndexer creates an indexer that reports into progress. Pass
// progress.Observe as the index service's progress callback to get
// per-document updates. A nil progress creates a fresh tracker.
func NewBackgroundIndexer(b Backfiller, progress *IndexProgress) *BackgroundIndexer {
	if progress == nil {
		progress = NewIndexProgress()
	}
	return &BackgroundIndexer{
		backfill: b,
		progress: progress,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Progress returns the progress tracker.
func (b *BackgroundIndexer) Progress() *IndexProgress {
	return b.progress
}

// IsRunning reports whether a backfill is in progress.
func (b *BackgroundIndexer) IsRunning() bool {
	return b.progress.IsIndexing()
}

// Start launches the loop and requests an initial run. It returns
// immediately; calling it twice is a no-op.
func (b *BackgroundIndexer) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	b.Trigger()
	go b.loop(ctx)
}

// Trigger requests a backfill. It never blocks.
func (b *BackgroundIndexer) Trigger() {
	select {
	case b.trigger <- struct{}{}:
	default:
	}
}

func (b *BackgroundIndexer) loop(ctx context.Context) {
	defer close(b.doneCh)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-b.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.trigger:
			b.RunOnce(ctx)
		}
	}
}

// RunOnce performs one backfill synchronously and records its outcome.
func (b *BackgroundIndexer) RunOnce(ctx context.Context) error {
	b.progress.Begin()
	docs, chunks, err := b.backfill.IndexAllPending(ctx)
	b.progress.Finish(err)

	b.mu.Lock()
	b.err = err
	b.mu.Unlock()

	if err != nil {
		slog.Warn("background_index_failed",
			slog.Int("documents", docs),
			slog.Int("chunks", chunks),
			slog.String("error", err.Error()))
		return err
	}
	if docs > 0 {
		slog.Info("background_index_complete",
			slog.Int("documents", docs),
			slog.Int("chunks", chunks))
	}
	return nil
}

// Err returns the error of the last run, if any.
func (b *BackgroundIndexer) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Stop cancels any run in progress and waits for the loop to exit. It is
// safe to call more than once and before Start.
func (b *BackgroundIndexer) Stop() {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()

	b.stopOnce.Do(func() { close(b.stopCh) })
	if started {
		<-b.doneCh
	}
}

package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/index"
)

// fakeBackfiller reports a fixed result and can block until released.
type fakeBackfiller struct {
	calls    atomic.Int32
	docs     int
	chunks   int
	err      error
	block    chan struct{}
	progress func(index.Progress)
	mu       sync.Mutex
}

func (f *fakeBackfiller) IndexAllPending(ctx context.Context) (int, int, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progress != nil {
		for i := 1; i <= f.docs; i++ {
			f.progress(index.Progress{Name: "doc", Current: i, Total: f.docs, Chunks: f.chunks / f.docs})
		}
	}
	return f.docs, f.chunks, f.err
}

func TestBackgroundIndexer_RunOnce(t *testing.T) {
	// Given a backfiller that indexes two documents
	progress := NewIndexProgress()
	fake := &fakeBackfiller{docs: 2, chunks: 6, progress: progress.Observe}
	b := NewBackgroundIndexer(fake, progress)

	// When a run completes
	err := b.RunOnce(context.Background())

	// Then progress shows the finished run
	require.NoError(t, err)
	snap := b.Progress().Snapshot()
	assert.Equal(t, string(StatusReady), snap.Status)
	assert.Equal(t, 2, snap.DocumentsIndexed)
	assert.Equal(t, 2, snap.DocumentsTotal)
	assert.Equal(t, 6, snap.ChunksIndexed)
	assert.InDelta(t, 100.0, snap.ProgressPct, 0.001)
	assert.Equal(t, 1, snap.Runs)
	require.NotNil(t, snap.LastRunAt)
	assert.False(t, b.IsRunning())
}

func TestBackgroundIndexer_RunOnce_Error(t *testing.T) {
	fake := &fakeBackfiller{err: errors.New("model unavailable")}
	b := NewBackgroundIndexer(fake, nil)

	err := b.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, err, b.Err())

	snap := b.Progress().Snapshot()
	assert.Equal(t, string(StatusError), snap.Status)
	assert.Equal(t, "model unavailable", snap.ErrorMessage)

	// A later success clears the error.
	fake.err = nil
	require.NoError(t, b.RunOnce(context.Background()))
	snap = b.Progress().Snapshot()
	assert.Equal(t, string(StatusReady), snap.Status)
	assert.Empty(t, snap.ErrorMessage)
	assert.Equal(t, 2, snap.Runs)
}

func TestBackgroundIndexer_Start_RunsImmediately(t *testing.T) {
	fake := &fakeBackfiller{}
	b := NewBackgroundIndexer(fake, nil)

	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, func() bool {
		return b.Progress().Snapshot().Runs == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestBackgroundIndexer_TriggersCoalesce(t *testing.T) {
	// Given a run that is blocked in progress
	fake := &fakeBackfiller{block: make(chan struct{})}
	b := NewBackgroundIndexer(fake, nil)
	b.Start(context.Background())
	defer b.Stop()

	require.Eventually(t, b.IsRunning, time.Second, 5*time.Millisecond)

	// When several triggers arrive during it
	for i := 0; i < 5; i++ {
		b.Trigger()
	}
	close(fake.block)

	// Then exactly one follow-up run happens
	require.Eventually(t, func() bool {
		return b.Progress().Snapshot().Runs == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestBackgroundIndexer_Stop_CancelsRun(t *testing.T) {
	fake := &fakeBackfiller{block: make(chan struct{})}
	b := NewBackgroundIndexer(fake, nil)
	b.Start(context.Background())
	require.Eventually(t, b.IsRunning, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.ErrorIs(t, b.Err(), context.Canceled)
	assert.False(t, b.IsRunning())
}

func TestBackgroundIndexer_StopIsIdempotent(t *testing.T) {
	b := NewBackgroundIndexer(&fakeBackfiller{}, nil)
	b.Stop()
	b.Stop()

	b2 := NewBackgroundIndexer(&fakeBackfiller{}, nil)
	b2.Start(context.Background())
	b2.Stop()
	b2.Stop()
}

func TestBackgroundIndexer_ContextCancellationEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewBackgroundIndexer(&fakeBackfiller{}, nil)
	b.Start(ctx)
	cancel()

	select {
	case <-b.doneCh:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on context cancellation")
	}
}

package embed

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

func newTestWorker(t *testing.T, inner Embedder, opts WorkerOptions) *Worker {
	t.Helper()
	w := NewWorker(inner, opts)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestWorker_PreservesOrderAcrossSubBatches(t *testing.T) {
	// Given 25 texts of increasing length and sub-batches of 4
	mock := newCountingEmbedder(3)
	w := newTestWorker(t, mock, WorkerOptions{BatchSize: 4, Concurrency: 3})

	texts := make([]string, 25)
	for i := range texts {
		texts[i] = strings.Repeat("x", i+1)
	}

	// When embedded through the worker
	out, err := w.EmbedBatch(context.Background(), texts)

	// Then vectors line up with their inputs
	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, v := range out {
		assert.Equal(t, float32(i+1), v[0], "index %d", i)
	}
	assert.Equal(t, int64(7), mock.batches.Load())
}

func TestWorker_BoundsConcurrency(t *testing.T) {
	mock := newCountingEmbedder(2)
	mock.delay = 20 * time.Millisecond
	w := newTestWorker(t, mock, WorkerOptions{BatchSize: 1, Concurrency: 2})

	texts := []string{"a", "b", "c", "d", "e", "f"}
	_, err := w.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.LessOrEqual(t, mock.peakConcurrency(), 2)
	assert.GreaterOrEqual(t, mock.peakConcurrency(), 1)
}

func TestWorker_OneFailureFailsWholeBatch(t *testing.T) {
	// Given an embedder that fails on one text
	mock := newCountingEmbedder(2)
	mock.failOn = "bad"
	w := newTestWorker(t, mock, WorkerOptions{BatchSize: 2, Concurrency: 2})

	// When the batch contains it
	out, err := w.EmbedBatch(context.Background(), []string{"ok", "fine", "bad one", "ok"})

	// Then nothing is returned and the error is a model error
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, derrors.IsModel(err))
}

type wrongWidthEmbedder struct{ *countingEmbedder }

func (w wrongWidthEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, w.dims+1)
	}
	return out, nil
}

func TestWorker_RejectsWrongDimensions(t *testing.T) {
	w := newTestWorker(t, wrongWidthEmbedder{newCountingEmbedder(4)}, DefaultWorkerOptions())

	_, err := w.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeDimensionMismatch, derrors.GetCode(err))
}

func TestWorker_EmptyInput(t *testing.T) {
	mock := newCountingEmbedder(2)
	w := newTestWorker(t, mock, DefaultWorkerOptions())

	out, err := w.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Zero(t, mock.batches.Load())
}

func TestWorker_SerializesJobs(t *testing.T) {
	mock := newCountingEmbedder(2)
	mock.delay = 10 * time.Millisecond
	w := newTestWorker(t, mock, WorkerOptions{BatchSize: 10, Concurrency: 1})

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_, err := w.EmbedBatch(context.Background(), []string{fmt.Sprintf("job %d", i)})
			errs <- err
		}()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, 1, mock.peakConcurrency())
}

func TestWorker_ContextCancelled(t *testing.T) {
	mock := newCountingEmbedder(2)
	mock.delay = time.Second
	w := newTestWorker(t, mock, DefaultWorkerOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.EmbedBatch(ctx, []string{"slow"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorker_Close(t *testing.T) {
	mock := newCountingEmbedder(2)
	w := NewWorker(mock, DefaultWorkerOptions())

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.True(t, mock.closed)
	assert.False(t, w.Available(context.Background()))

	_, err := w.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, derrors.IsModel(err))
}

func TestWorker_Passthrough(t *testing.T) {
	mock := newCountingEmbedder(5)
	w := newTestWorker(t, mock, DefaultWorkerOptions())

	assert.Equal(t, 5, w.Dimensions())
	assert.Equal(t, "counting", w.ModelName())

	v, err := w.Embed(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, float32(3), v[0])
}

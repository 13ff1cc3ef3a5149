package embed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// WorkerOptions tunes a Worker.
type WorkerOptions struct {
	// BatchSize is the sub-batch size handed to the embedder.
	BatchSize int
	// Concurrency is the number of sub-batches encoded at once.
	Concurrency int
}

// DefaultWorkerOptions returns 32-text sub-batches, two at a time.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{BatchSize: DefaultBatchSize, Concurrency: 2}
}

type embedJob struct {
	ctx    context.Context
	texts  []string
	result chan embedResult
}

type embedResult struct {
	vectors [][]float32
	err     error
}

// Worker runs batch embedding on a dedicated goroutine so that encoding never
// blocks the caller's goroutine or holds storage locks. Jobs are processed
// one at a time in submission order. Within a job, sub-batches are encoded
// concurrently and reassembled in input order.
//
// Worker implements Embedder, so it can be placed in a Capability directly.
type Worker struct {
	inner Embedder
	opts  WorkerOptions

	jobs      chan embedJob
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ Embedder = (*Worker)(nil)

// NewWorker starts a worker around inner.
func NewWorker(inner Embedder, opts WorkerOptions) *Worker {
	if opts.BatchSize < MinBatchSize {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchSize > MaxBatchSize {
		opts.BatchSize = MaxBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	w := &Worker{
		inner: inner,
		opts:  opts,
		jobs:  make(chan embedJob),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case job := <-w.jobs:
			start := time.Now()
			vecs, err := w.process(job.ctx, job.texts)
			slog.Debug("embed_job_done",
				slog.Int("texts", len(job.texts)),
				slog.Duration("duration", time.Since(start)),
				slog.Bool("ok", err == nil))
			job.result <- embedResult{vectors: vecs, err: err}
		}
	}
}

func (w *Worker) process(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	dims := w.inner.Dimensions()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)

	for start := 0; start < len(texts); start += w.opts.BatchSize {
		end := min(start+w.opts.BatchSize, len(texts))
		g.Go(func() error {
			vecs, err := w.inner.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			for i, v := range vecs {
				if len(v) != dims {
					return derrors.New(derrors.ErrCodeDimensionMismatch,
						fmt.Sprintf("expected %d dimensions, got %d", dims, len(v)), nil)
				}
				results[start+i] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if _, ok := derrors.As(err); ok {
			return nil, err
		}
		return nil, derrors.ModelError("batch embedding failed", err)
	}
	return results, nil
}

// EmbedBatch submits texts to the worker goroutine and waits for the result.
// Either every vector is returned or an error is.
func (w *Worker) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	job := embedJob{ctx: ctx, texts: texts, result: make(chan embedResult, 1)}
	select {
	case w.jobs <- job:
	case <-w.quit:
		return nil, derrors.ModelError("embedding worker is closed", nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-job.result:
		return r.vectors, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Embed embeds a single text through the worker.
func (w *Worker) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := w.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// Dimensions returns the inner embedder's width.
func (w *Worker) Dimensions() int {
	return w.inner.Dimensions()
}

// ModelName returns the inner model identifier.
func (w *Worker) ModelName() string {
	return w.inner.ModelName()
}

// Available is false once the worker is closed.
func (w *Worker) Available(ctx context.Context) bool {
	select {
	case <-w.quit:
		return false
	default:
	}
	return w.inner.Available(ctx)
}

// Close stops the goroutine after the current job and closes the inner
// embedder.
func (w *Worker) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.quit)
		<-w.done
		err = w.inner.Close()
	})
	return err
}

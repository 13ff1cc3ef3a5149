// Package index turns stored chunks into stored vectors and exposes the
// document operations used by the CLI and the MCP server.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/docrag/internal/embed"
	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// VectorStore is the storage the orchestrator reads chunks from and writes
// vectors to.
type VectorStore interface {
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	ListDocuments(ctx context.Context) ([]*store.Document, error)
	GetChunks(ctx context.Context, documentID string) ([]store.Chunk, error)
	HasEmbedding(ctx context.Context, chunkID string) (bool, error)
	SaveEmbeddings(ctx context.Context, records []store.EmbeddingRecord) error
}

// Progress reports one document of an IndexAllPending run.
type Progress struct {
	DocumentID string
	Name       string
	// Current is the 1-based position of the document among Total pending.
	Current int
	Total   int
	// Chunks is the number of vectors written for this document.
	Chunks int
}

// ProgressFunc receives progress after each document is indexed.
type ProgressFunc func(Progress)

// Orchestrator embeds the chunks of documents and persists the vectors.
//
// Embedding happens before any store write: a document either gets a vector
// for every chunk, in a single transaction, or gets none.
type Orchestrator struct {
	store      VectorStore
	capability embed.CapabilitySource
	lock       *embed.FileLock
	progress   ProgressFunc

	// backfill serializes IndexAllPending runs within the process.
	backfill sync.Mutex
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithFileLock makes IndexAllPending take a cross-process lock.
func WithFileLock(l *embed.FileLock) OrchestratorOption {
	return func(o *Orchestrator) {
		o.lock = l
	}
}

// WithProgress sets the per-document progress callback.
func WithProgress(fn ProgressFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// NewOrchestrator creates an orchestrator over s using the embedder the
// capability source yields at call time.
func NewOrchestrator(s VectorStore, capability embed.CapabilitySource, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{store: s, capability: capability}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// embedder returns the ready embedder or a NotReady error.
func (o *Orchestrator) embedder() (embed.Embedder, error) {
	e, ok := o.capability.Current().Embedder()
	if !ok {
		return nil, derrors.NotReadyError("embedding model is not initialized")
	}
	return e, nil
}

// IndexDocument embeds every chunk of a document and stores the vectors,
// replacing any existing ones. It returns the number of vectors written; a
// document without chunks yields 0.
func (o *Orchestrator) IndexDocument(ctx context.Context, documentID string) (int, error) {
	e, err := o.embedder()
	if err != nil {
		return 0, err
	}
	if _, err := o.store.GetDocument(ctx, documentID); err != nil {
		return 0, err
	}

	chunks, err := o.store.GetChunks(ctx, documentID)
	if err != nil {
		return 0, err
	}
	return o.embedChunks(ctx, e, documentID, chunks)
}

func (o *Orchestrator) embedChunks(ctx context.Context, e embed.Embedder, documentID string, chunks []store.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	start := time.Now()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vecs, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		if _, ok := derrors.As(err); !ok && ctx.Err() == nil {
			err = derrors.ModelError("failed to embed chunks", err)
		}
		return 0, err
	}
	if len(vecs) != len(chunks) {
		return 0, derrors.ModelError(
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vecs), len(chunks)), nil).
			WithDetail("document_id", documentID)
	}

	records := make([]store.EmbeddingRecord, len(chunks))
	for i, c := range chunks {
		records[i] = store.EmbeddingRecord{ChunkID: c.ID, DocumentID: documentID, Vector: vecs[i]}
	}
	if err := o.store.SaveEmbeddings(ctx, records); err != nil {
		return 0, err
	}

	slog.Info("document_indexed",
		slog.String("document_id", documentID),
		slog.Int("chunks", len(chunks)),
		slog.String("model", e.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return len(chunks), nil
}

// pendingDocument is a document the coverage check considers unindexed.
type pendingDocument struct {
	doc    *store.Document
	chunks []store.Chunk
}

// isIndexed applies the coverage heuristic: a document counts as indexed
// when its first chunk has a vector. A crash part way through a document can
// leave it looking indexed; `docrag index <id>` repairs it.
func (o *Orchestrator) isIndexed(ctx context.Context, chunks []store.Chunk) (bool, error) {
	return o.store.HasEmbedding(ctx, chunks[0].ID)
}

func (o *Orchestrator) pending(ctx context.Context) ([]pendingDocument, error) {
	docs, err := o.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var out []pendingDocument
	for _, doc := range docs {
		chunks, err := o.store.GetChunks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			continue
		}
		done, err := o.isIndexed(ctx, chunks)
		if err != nil {
			return nil, err
		}
		if !done {
			out = append(out, pendingDocument{doc: doc, chunks: chunks})
		}
	}
	return out, nil
}

// PendingDocuments lists documents with chunks whose first chunk has no
// vector yet.
func (o *Orchestrator) PendingDocuments(ctx context.Context) ([]*store.Document, error) {
	pending, err := o.pending(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]*store.Document, len(pending))
	for i, p := range pending {
		docs[i] = p.doc
	}
	return docs, nil
}

// IndexAllPending indexes every pending document. It returns how many
// documents were indexed and how many vectors were written. The first failure
// stops the run; the counts returned with it cover the documents completed
// before it.
func (o *Orchestrator) IndexAllPending(ctx context.Context) (docs, chunks int, err error) {
	e, err := o.embedder()
	if err != nil {
		return 0, 0, err
	}

	o.backfill.Lock()
	defer o.backfill.Unlock()

	if o.lock != nil {
		if err := o.lock.MustTryLock(); err != nil {
			return 0, 0, err
		}
		defer func() {
			if uerr := o.lock.Unlock(); uerr != nil {
				slog.Warn("index_lock_release_failed", slog.String("error", uerr.Error()))
			}
		}()
	}

	pending, err := o.pending(ctx)
	if err != nil {
		return 0, 0, err
	}

	for i, p := range pending {
		if err := ctx.Err(); err != nil {
			return docs, chunks, err
		}

		n, err := o.embedChunks(ctx, e, p.doc.ID, p.chunks)
		if err != nil {
			slog.Error("document_index_failed",
				slog.String("document_id", p.doc.ID),
				slog.String("error", err.Error()))
			if de, ok := derrors.As(err); ok {
				de.WithDetail("document_id", p.doc.ID)
			}
			return docs, chunks, err
		}

		docs++
		chunks += n
		if o.progress != nil {
			o.progress(Progress{
				DocumentID: p.doc.ID,
				Name:       p.doc.Name,
				Current:    i + 1,
				Total:      len(pending),
				Chunks:     n,
			})
		}
	}

	slog.Info("index_pending_complete",
		slog.Int("documents", docs),
		slog.Int("chunks", chunks))
	return docs, chunks, nil
}

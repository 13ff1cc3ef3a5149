package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/docrag/internal/chunk"
	"github.com/Aman-CERP/docrag/internal/embed"
	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/extract"
	"github.com/Aman-CERP/docrag/internal/store"
)

// DefaultSearchK is the number of results returned when k is not given.
const DefaultSearchK = 5

// SearchMode selects how Search ranks chunks.
type SearchMode string

const (
	// SearchSemantic ranks by vector similarity.
	SearchSemantic SearchMode = "semantic"
	// SearchKeyword ranks by full-text relevance.
	SearchKeyword SearchMode = "keyword"
)

// ParseSearchMode converts a string to a SearchMode.
func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case SearchSemantic, "":
		return SearchSemantic, nil
	case SearchKeyword:
		return SearchKeyword, nil
	default:
		return "", derrors.InputError(fmt.Sprintf("unknown search mode %q (valid: semantic, keyword)", s), nil)
	}
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	// Store is required.
	Store *store.SQLiteStore

	// Keywords is optional; without it keyword search is unavailable.
	Keywords *store.KeywordIndex

	// Capability yields the embedder. Nil means Uninitialized.
	Capability embed.CapabilitySource

	// Chunking configures the splitter.
	Chunking chunk.Config

	// DocumentsDir receives copies of uploaded files. Empty disables copying.
	DocumentsDir string

	// DataDir, when set, holds the cross-process index lock.
	DataDir string

	// DefaultK is used when Search is called with k <= 0.
	DefaultK int

	// Progress receives IndexAllPending progress.
	Progress ProgressFunc
}

// Service is the document catalogue plus indexing and search.
type Service struct {
	store        *store.SQLiteStore
	keywords     *store.KeywordIndex
	capability   embed.CapabilitySource
	orchestrator *Orchestrator
	chunking     chunk.Config
	documentsDir string
	defaultK     int
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, derrors.InternalError("store is required", nil)
	}
	if cfg.Capability == nil {
		cfg.Capability = embed.Uninitialized()
	}
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = DefaultSearchK
	}
	if cfg.Chunking == (chunk.Config{}) {
		cfg.Chunking = chunk.DefaultConfig()
	}
	if cfg.DocumentsDir != "" {
		if err := os.MkdirAll(cfg.DocumentsDir, 0o755); err != nil {
			return nil, derrors.PersistenceError("failed to create documents directory", err)
		}
	}

	var opts []OrchestratorOption
	if cfg.DataDir != "" {
		opts = append(opts, WithFileLock(embed.NewFileLock(cfg.DataDir)))
	}
	if cfg.Progress != nil {
		opts = append(opts, WithProgress(cfg.Progress))
	}

	return &Service{
		store:        cfg.Store,
		keywords:     cfg.Keywords,
		capability:   cfg.Capability,
		orchestrator: NewOrchestrator(cfg.Store, cfg.Capability, opts...),
		chunking:     cfg.Chunking,
		documentsDir: cfg.DocumentsDir,
		defaultK:     cfg.DefaultK,
	}, nil
}

// Orchestrator returns the indexing orchestrator.
func (s *Service) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// Capability returns the current embedding capability.
func (s *Service) Capability() embed.Capability {
	return s.capability.Current()
}

// UploadDocument registers the file at path: it extracts the text, copies the
// file into the documents directory, splits the text into chunks and stores
// document, content and chunks together. The document is not embedded; call
// IndexDocument for that.
func (s *Service) UploadDocument(ctx context.Context, path string) (*store.Document, error) {
	docType, ok := store.DocumentTypeFromPath(path)
	if !ok {
		return nil, derrors.New(derrors.ErrCodeUnsupportedType,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), nil).
			WithDetail("path", path).
			WithSuggestion("Supported types: .txt, .md, .markdown, .pdf")
	}

	text, err := extract.Text(path, docType)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, derrors.InputError("cannot stat "+path, err)
	}

	doc := &store.Document{
		ID:         uuid.NewString(),
		Name:       filepath.Base(path),
		Type:       docType,
		Size:       info.Size(),
		UploadedAt: time.Now().UTC(),
		Path:       path,
	}

	if s.documentsDir != "" {
		dst := filepath.Join(s.documentsDir, doc.ID+strings.ToLower(filepath.Ext(path)))
		if err := copyFile(path, dst); err != nil {
			return nil, derrors.PersistenceError("failed to copy document", err).WithDetail("path", path)
		}
		doc.Path = dst
	}

	chunks := chunk.Split(doc.ID, text, s.chunking)
	if err := s.store.SaveDocument(ctx, doc, text, chunks); err != nil {
		if s.documentsDir != "" {
			_ = os.Remove(doc.Path)
		}
		return nil, err
	}

	if s.keywords != nil {
		if err := s.keywords.IndexChunks(ctx, chunks); err != nil {
			slog.Warn("keyword_index_failed",
				slog.String("document_id", doc.ID),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("document_uploaded",
		slog.String("document_id", doc.ID),
		slog.String("name", doc.Name),
		slog.String("type", string(doc.Type)),
		slog.Int64("size", doc.Size),
		slog.Int("chunks", len(chunks)))
	return doc, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// ListDocuments returns all documents, newest first.
func (s *Service) ListDocuments(ctx context.Context) ([]*store.Document, error) {
	return s.store.ListDocuments(ctx)
}

// GetDocument returns one document.
func (s *Service) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// GetDocumentContent returns the extracted text of a document.
func (s *Service) GetDocumentContent(ctx context.Context, id string) (string, error) {
	return s.store.GetDocumentContent(ctx, id)
}

// DeleteDocument removes a document with its content, chunks, vectors,
// keyword entries and stored file. A stored file that is already gone does
// not fail the delete.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if s.keywords != nil {
		if err := s.keywords.DeleteDocument(ctx, id); err != nil {
			slog.Warn("keyword_delete_failed",
				slog.String("document_id", id),
				slog.String("error", err.Error()))
		}
	}

	if s.documentsDir != "" && isWithin(s.documentsDir, doc.Path) {
		if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
			slog.Warn("document_file_remove_failed",
				slog.String("document_id", id),
				slog.String("path", doc.Path),
				slog.String("error", err.Error()))
		}
	}

	slog.Info("document_deleted", slog.String("document_id", id))
	return nil
}

// isWithin reports whether path lies inside dir. Only copies made by upload
// are ever removed.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// GetChunks returns the chunks of a document in order.
func (s *Service) GetChunks(ctx context.Context, documentID string) ([]store.Chunk, error) {
	return s.store.GetChunks(ctx, documentID)
}

// ChunkStats counts stored chunks.
func (s *Service) ChunkStats(ctx context.Context) (store.ChunkStats, error) {
	return s.store.ChunkStats(ctx)
}

// EmbeddingStats counts stored vectors.
func (s *Service) EmbeddingStats(ctx context.Context) (store.EmbeddingStats, error) {
	return s.store.EmbeddingStats(ctx)
}

// IndexDocument embeds one document.
func (s *Service) IndexDocument(ctx context.Context, id string) (int, error) {
	return s.orchestrator.IndexDocument(ctx, id)
}

// IndexAllPending embeds every document not yet indexed.
func (s *Service) IndexAllPending(ctx context.Context) (docs, chunks int, err error) {
	return s.orchestrator.IndexAllPending(ctx)
}

// Search returns the k chunks most similar to query. k <= 0 uses the
// configured default.
func (s *Service) Search(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	return s.SearchWithMode(ctx, query, k, SearchSemantic)
}

// SearchWithMode is Search with an explicit ranking mode.
func (s *Service) SearchWithMode(ctx context.Context, query string, k int, mode SearchMode) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, derrors.New(derrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}
	if k <= 0 {
		k = s.defaultK
	}

	start := time.Now()
	var (
		results []store.SearchResult
		err     error
	)
	switch mode {
	case SearchKeyword:
		results, err = s.keywordSearch(ctx, query, k)
	case SearchSemantic, "":
		results, err = s.semanticSearch(ctx, query, k)
	default:
		_, err = ParseSearchMode(string(mode))
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("search_complete",
		slog.String("mode", string(mode)),
		slog.Int("k", k),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return results, nil
}

func (s *Service) semanticSearch(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	e, ok := s.capability.Current().Embedder()
	if !ok {
		return nil, derrors.NotReadyError("embedding model is not initialized")
	}

	vec, err := e.Embed(ctx, query)
	if err != nil {
		if _, ok := derrors.As(err); !ok {
			err = derrors.ModelError("failed to embed query", err)
		}
		return nil, err
	}
	return s.store.Search(ctx, vec, k)
}

func (s *Service) keywordSearch(ctx context.Context, query string, k int) ([]store.SearchResult, error) {
	if s.keywords == nil {
		return nil, derrors.New(derrors.ErrCodeSearchFailed, "keyword index is not open", nil)
	}

	hits, err := s.keywords.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	chunks, err := s.store.GetChunksByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]store.SearchResult, 0, len(hits))
	for _, h := range hits {
		c, ok := chunks[h.ChunkID]
		if !ok {
			// Stale keyword entry for a chunk that no longer exists.
			continue
		}
		results = append(results, store.SearchResult{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Score:      float32(h.Score),
		})
	}
	return results, nil
}

// RebuildKeywordIndex re-adds every stored chunk to the keyword index and
// returns the number of chunks indexed.
func (s *Service) RebuildKeywordIndex(ctx context.Context) (int, error) {
	if s.keywords == nil {
		return 0, derrors.New(derrors.ErrCodeSearchFailed, "keyword index is not open", nil)
	}

	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, doc := range docs {
		chunks, err := s.store.GetChunks(ctx, doc.ID)
		if err != nil {
			return total, err
		}
		if err := s.keywords.DeleteDocument(ctx, doc.ID); err != nil {
			return total, err
		}
		if err := s.keywords.IndexChunks(ctx, chunks); err != nil {
			return total, err
		}
		total += len(chunks)
	}
	return total, nil
}

// Status summarizes the catalogue and the embedding capability.
type Status struct {
	Documents        int                 `json:"documents"`
	Chunks           int                 `json:"chunks"`
	Vectors          int                 `json:"vectors"`
	IndexedDocuments int                 `json:"indexed_documents"`
	PendingDocuments int                 `json:"pending_documents"`
	ModelReady       bool                `json:"model_ready"`
	Model            *embed.EmbedderInfo `json:"model,omitempty"`
}

// Status gathers counts and model state.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := s.store.ChunkStats(ctx)
	if err != nil {
		return nil, err
	}
	es, err := s.store.EmbeddingStats(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.orchestrator.PendingDocuments(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Documents:        len(docs),
		Chunks:           cs.TotalChunks,
		Vectors:          es.TotalVectors,
		IndexedDocuments: es.TotalDocuments,
		PendingDocuments: len(pending),
	}
	if e, ok := s.capability.Current().Embedder(); ok {
		info := embed.GetInfo(ctx, e)
		st.ModelReady = true
		st.Model = &info
	}
	return st, nil
}

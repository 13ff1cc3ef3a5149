package mcp

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/store"
)

// maxSearchK bounds the k an agent may request.
const maxSearchK = 50

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the natural language question or keywords to search for"`
	K     int    `json:"k,omitempty" jsonschema:"number of chunks to return, default 5, max 50"`
	Mode  string `json:"mode,omitempty" jsonschema:"ranking mode: semantic (default) or keyword"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"chunks ordered by descending score"`
	Count   int                  `json:"count"`
	// Indexing is set while a background backfill runs; results may be
	// missing documents that are not yet embedded.
	Indexing bool `json:"indexing,omitempty"`
}

// SearchResultOutput is one ranked chunk.
type SearchResultOutput struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name,omitempty" jsonschema:"original file name of the owning document"`
	Content      string  `json:"content"`
	Score        float32 `json:"score" jsonschema:"similarity score, higher is better"`
	URI          string  `json:"uri" jsonschema:"resource URI for the full document text"`
}

// ListDocumentsInput takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput lists the catalogue, newest first.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput is one catalogue entry.
type DocumentOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
	URI        string `json:"uri"`
}

// IndexStatusInput takes no parameters.
type IndexStatusInput struct{}

// IndexStatusOutput reports catalogue counts, model state and any running
// backfill.
type IndexStatusOutput struct {
	Documents        int               `json:"documents"`
	Chunks           int               `json:"chunks"`
	Vectors          int               `json:"vectors"`
	IndexedDocuments int               `json:"indexed_documents"`
	PendingDocuments int               `json:"pending_documents"`
	Model            ModelOutput       `json:"model"`
	Indexing         *IndexingProgress `json:"indexing,omitempty"`
}

// ModelOutput describes the active embedder.
type ModelOutput struct {
	Ready      bool   `json:"ready"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// IndexingProgress is the background indexer snapshot.
type IndexingProgress struct {
	Status           string  `json:"status"`
	CurrentDocument  string  `json:"current_document,omitempty"`
	DocumentsTotal   int     `json:"documents_total"`
	DocumentsIndexed int     `json:"documents_indexed"`
	ChunksIndexed    int     `json:"chunks_indexed"`
	ProgressPct      float64 `json:"progress_pct"`
	ElapsedSeconds   int     `json:"elapsed_seconds"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Search uploaded documents. Returns the chunks most similar to the query with their document and score. Use mode=keyword for exact terms.",
	}, s.handleSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents, newest first, with ids usable in docrag:// resource URIs.",
	}, s.handleListDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report how many documents are searchable, whether the embedding model is ready and the progress of any background indexing.",
	}, s.handleIndexStatus)

	s.logger.Debug("mcp_tools_registered", slog.Int("count", 3))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}
	if input.K < 0 || input.K > maxSearchK {
		return nil, SearchOutput{}, NewInvalidParamsError("k must be between 1 and 50")
	}
	mode, err := index.ParseSearchMode(input.Mode)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	start := time.Now()
	results, err := s.backend.SearchWithMode(ctx, input.Query, input.K, mode)
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("mode", string(mode)),
			slog.String("error", err.Error()))
		return nil, SearchOutput{}, MapError(err)
	}

	out := SearchOutput{
		Results:  make([]SearchResultOutput, 0, len(results)),
		Count:    len(results),
		Indexing: s.isIndexing(),
	}
	names := make(map[string]string)
	for _, r := range results {
		out.Results = append(out.Results, SearchResultOutput{
			ChunkID:      r.ChunkID,
			DocumentID:   r.DocumentID,
			DocumentName: s.documentName(ctx, names, r.DocumentID),
			Content:      r.Content,
			Score:        r.Score,
			URI:          documentURI(r.DocumentID),
		})
	}

	s.logger.Debug("mcp_search",
		slog.String("mode", string(mode)),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil, out, nil
}

// documentName resolves and memoizes a document's name. A lookup failure
// leaves the name empty rather than failing the search.
func (s *Server) documentName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := ""
	if doc, err := s.backend.GetDocument(ctx, id); err == nil {
		name = doc.Name
	}
	cache[id] = name
	return name
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (
	*mcp.CallToolResult,
	ListDocumentsOutput,
	error,
) {
	docs, err := s.backend.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, MapError(err)
	}
	out := ListDocumentsOutput{
		Documents: make([]DocumentOutput, 0, len(docs)),
		Count:     len(docs),
	}
	for _, d := range docs {
		out.Documents = append(out.Documents, toDocumentOutput(d))
	}
	return nil, out, nil
}

func toDocumentOutput(d *store.Document) DocumentOutput {
	return DocumentOutput{
		ID:         d.ID,
		Name:       d.Name,
		Type:       string(d.Type),
		Size:       d.Size,
		UploadedAt: d.UploadedAt.UTC().Format(time.RFC3339),
		URI:        documentURI(d.ID),
	}
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	IndexStatusOutput,
	error,
) {
	st, err := s.backend.Status(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, MapError(err)
	}

	out := IndexStatusOutput{
		Documents:        st.Documents,
		Chunks:           st.Chunks,
		Vectors:          st.Vectors,
		IndexedDocuments: st.IndexedDocuments,
		PendingDocuments: st.PendingDocuments,
		Model:            ModelOutput{Ready: st.ModelReady},
	}
	if st.Model != nil {
		out.Model.Provider = st.Model.Provider.String()
		out.Model.Model = st.Model.Model
		out.Model.Dimensions = st.Model.Dimensions
	}

	if p := s.progress(); p != nil {
		snap := p.Snapshot()
		out.Indexing = &IndexingProgress{
			Status:           snap.Status,
			CurrentDocument:  snap.CurrentDocument,
			DocumentsTotal:   snap.DocumentsTotal,
			DocumentsIndexed: snap.DocumentsIndexed,
			ChunksIndexed:    snap.ChunksIndexed,
			ProgressPct:      snap.ProgressPct,
			ElapsedSeconds:   snap.ElapsedSeconds,
			ErrorMessage:     snap.ErrorMessage,
		}
	}
	return nil, out, nil
}

package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/async"
	"github.com/Aman-CERP/docrag/internal/embed"
	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/store"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ranked chunks with document names", func(t *testing.T) {
		backend := &mockBackend{
			documents: []*store.Document{{ID: "doc-1", Name: "notes.md"}},
			results: []store.SearchResult{
				{ChunkID: "doc-1-0", DocumentID: "doc-1", Content: "first", Score: 0.9},
				{ChunkID: "doc-1-3", DocumentID: "doc-1", Content: "second", Score: 0.4},
				{ChunkID: "gone-0", DocumentID: "gone", Content: "orphan", Score: 0.1},
			},
		}
		srv, err := NewServer(backend)
		require.NoError(t, err)

		_, out, err := srv.handleSearch(ctx, nil, SearchInput{Query: "notes", K: 3})

		require.NoError(t, err)
		require.Equal(t, 3, out.Count)
		assert.Equal(t, "notes.md", out.Results[0].DocumentName)
		assert.Equal(t, "notes.md", out.Results[1].DocumentName)
		assert.Empty(t, out.Results[2].DocumentName)
		assert.Equal(t, "docrag://documents/doc-1", out.Results[0].URI)
		assert.InDelta(t, 0.9, out.Results[0].Score, 1e-6)
		assert.Equal(t, 3, backend.lastK)
		assert.Equal(t, index.SearchSemantic, backend.lastMode)
		assert.False(t, out.Indexing)
	})

	t.Run("passes keyword mode and zero k through", func(t *testing.T) {
		backend := &mockBackend{}
		srv, err := NewServer(backend)
		require.NoError(t, err)

		_, out, err := srv.handleSearch(ctx, nil, SearchInput{Query: "dividend", Mode: "KEYWORD"})

		require.NoError(t, err)
		assert.Zero(t, out.Count)
		assert.NotNil(t, out.Results)
		assert.Equal(t, 0, backend.lastK)
		assert.Equal(t, index.SearchKeyword, backend.lastMode)
	})

	t.Run("rejects bad arguments", func(t *testing.T) {
		srv, err := NewServer(&mockBackend{})
		require.NoError(t, err)

		for _, in := range []SearchInput{
			{},
			{Query: "x", K: -1},
			{Query: "x", K: 51},
			{Query: "x", Mode: "hybrid"},
		} {
			_, _, err := srv.handleSearch(ctx, nil, in)
			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr, "input %+v", in)
			assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
		}
	})

	t.Run("maps not ready", func(t *testing.T) {
		srv, err := NewServer(&mockBackend{err: derrors.NotReadyError("embedder not initialized")})
		require.NoError(t, err)

		_, _, err = srv.handleSearch(ctx, nil, SearchInput{Query: "x"})

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr)
		assert.Equal(t, ErrCodeNotReady, mcpErr.Code)
	})

	t.Run("flags running backfill", func(t *testing.T) {
		srv, err := NewServer(&mockBackend{})
		require.NoError(t, err)
		progress := async.NewIndexProgress()
		progress.Begin()
		srv.SetIndexProgress(progress)

		_, out, err := srv.handleSearch(ctx, nil, SearchInput{Query: "x"})

		require.NoError(t, err)
		assert.True(t, out.Indexing)
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	ctx := context.Background()
	uploaded := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backend := &mockBackend{documents: []*store.Document{
		{ID: "b", Name: "b.md", Type: store.DocumentTypeMd, Size: 10, UploadedAt: uploaded},
		{ID: "a", Name: "a.txt", Type: store.DocumentTypeTxt, Size: 5, UploadedAt: uploaded.Add(-time.Hour)},
	}}
	srv, err := NewServer(backend)
	require.NoError(t, err)

	_, out, err := srv.handleListDocuments(ctx, nil, ListDocumentsInput{})

	require.NoError(t, err)
	require.Equal(t, 2, out.Count)
	assert.Equal(t, DocumentOutput{
		ID:         "b",
		Name:       "b.md",
		Type:       "md",
		Size:       10,
		UploadedAt: "2026-03-01T12:00:00Z",
		URI:        "docrag://documents/b",
	}, out.Documents[0])

	backend.err = derrors.PersistenceError("database is closed", nil)
	_, _, err = srv.handleListDocuments(ctx, nil, ListDocumentsInput{})
	assert.Error(t, err)
}

func TestServer_handleIndexStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports model and counts", func(t *testing.T) {
		backend := &mockBackend{status: &index.Status{
			Documents:        3,
			Chunks:           12,
			Vectors:          8,
			IndexedDocuments: 2,
			PendingDocuments: 1,
			ModelReady:       true,
			Model: &embed.EmbedderInfo{
				Provider:   embed.ProviderStatic,
				Model:      "static-hash-384",
				Dimensions: 384,
			},
		}}
		srv, err := NewServer(backend)
		require.NoError(t, err)

		_, out, err := srv.handleIndexStatus(ctx, nil, IndexStatusInput{})

		require.NoError(t, err)
		assert.Equal(t, 3, out.Documents)
		assert.Equal(t, 1, out.PendingDocuments)
		assert.True(t, out.Model.Ready)
		assert.Equal(t, "static", out.Model.Provider)
		assert.Equal(t, 384, out.Model.Dimensions)
		assert.Nil(t, out.Indexing)
	})

	t.Run("includes background progress", func(t *testing.T) {
		srv, err := NewServer(&mockBackend{status: &index.Status{}})
		require.NoError(t, err)
		progress := async.NewIndexProgress()
		progress.Begin()
		progress.Observe(index.Progress{DocumentID: "d1", Name: "a.md", Current: 1, Total: 4, Chunks: 3})
		srv.SetIndexProgress(progress)

		_, out, err := srv.handleIndexStatus(ctx, nil, IndexStatusInput{})

		require.NoError(t, err)
		assert.False(t, out.Model.Ready)
		require.NotNil(t, out.Indexing)
		assert.Equal(t, "indexing", out.Indexing.Status)
		assert.Equal(t, 4, out.Indexing.DocumentsTotal)
		assert.InDelta(t, 25.0, out.Indexing.ProgressPct, 1e-9)
	})

	t.Run("reports last failure", func(t *testing.T) {
		srv, err := NewServer(&mockBackend{status: &index.Status{}})
		require.NoError(t, err)
		progress := async.NewIndexProgress()
		progress.Begin()
		progress.Finish(errors.New("model offline"))
		srv.SetIndexProgress(progress)

		_, out, err := srv.handleIndexStatus(ctx, nil, IndexStatusInput{})

		require.NoError(t, err)
		require.NotNil(t, out.Indexing)
		assert.Equal(t, "error", out.Indexing.Status)
		assert.Equal(t, "model offline", out.Indexing.ErrorMessage)
	})
}

func TestServer_SearchOverRealService(t *testing.T) {
	// Given: two uploaded and indexed documents
	ctx := context.Background()
	svc := newTestService(t)
	garden := uploadText(t, svc, "garden.md", "Tomatoes need full sun and regular watering.")
	uploadText(t, svc, "finance.txt", "The board approved a quarterly dividend.")
	_, _, err := svc.IndexAllPending(ctx)
	require.NoError(t, err)

	srv, err := NewServer(svc)
	require.NoError(t, err)

	// When: searching with a document's own text
	_, out, err := srv.handleSearch(ctx, nil, SearchInput{Query: "Tomatoes need full sun and regular watering.", K: 1})

	// Then: that document ranks first
	require.NoError(t, err)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, garden.ID, out.Results[0].DocumentID)
	assert.Equal(t, "garden.md", out.Results[0].DocumentName)

	_, status, err := srv.handleIndexStatus(ctx, nil, IndexStatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, status.Documents)
	assert.Equal(t, 2, status.IndexedDocuments)
	assert.Zero(t, status.PendingDocuments)
}

package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/chunk"
	"github.com/Aman-CERP/docrag/internal/embed"
	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/store"
)

// mockBackend returns canned values.
type mockBackend struct {
	results   []store.SearchResult
	documents []*store.Document
	content   string
	status    *index.Status
	err       error

	lastK    int
	lastMode index.SearchMode
}

func (m *mockBackend) SearchWithMode(_ context.Context, _ string, k int, mode index.SearchMode) ([]store.SearchResult, error) {
	m.lastK, m.lastMode = k, mode
	return m.results, m.err
}

func (m *mockBackend) ListDocuments(context.Context) ([]*store.Document, error) {
	return m.documents, m.err
}

func (m *mockBackend) GetDocument(_ context.Context, id string) (*store.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.documents {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, derrors.NotFoundError("document", id)
}

func (m *mockBackend) GetDocumentContent(context.Context, string) (string, error) {
	return m.content, m.err
}

func (m *mockBackend) Status(context.Context) (*index.Status, error) {
	return m.status, m.err
}

// newTestService builds a real service over a temp store with the static
// embedder.
func newTestService(t *testing.T) *index.Service {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(filepath.Join(dir, "docrag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	kw, err := store.OpenKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = kw.Close() })

	svc, err := index.NewService(index.ServiceConfig{
		Store:        s,
		Keywords:     kw,
		Capability:   embed.Ready(embed.NewStaticEmbedder()),
		Chunking:     chunk.Config{ChunkSize: 80, Overlap: 10},
		DocumentsDir: filepath.Join(dir, "documents"),
		DataDir:      dir,
	})
	require.NoError(t, err)
	return svc
}

func uploadText(t *testing.T, svc *index.Service, name, content string) *store.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	doc, err := svc.UploadDocument(context.Background(), path)
	require.NoError(t, err)
	return doc
}

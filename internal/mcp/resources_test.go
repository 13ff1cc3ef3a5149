package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrag/internal/store"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "docrag://documents/doc-456", "doc-456"},
		{"catalogue URI", "docrag://documents", ""},
		{"nested path", "docrag://documents/a/b", ""},
		{"invalid prefix", "file://documents/doc-456", ""},
		{"empty URI", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()
	backend := &mockBackend{
		documents: []*store.Document{{ID: "d1", Name: "notes.md", Type: store.DocumentTypeMd}},
		content:   "# Notes\nhello",
	}
	srv, err := NewServer(backend)
	require.NoError(t, err)

	res, err := srv.handleDocumentContentResource(ctx, readRequest("docrag://documents/d1"))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "# Notes\nhello", res.Contents[0].Text)
	assert.Equal(t, "text/markdown", res.Contents[0].MIMEType)

	_, err = srv.handleDocumentContentResource(ctx, readRequest("docrag://documents/missing"))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeNotFound, mcpErr.Code)

	_, err = srv.handleDocumentContentResource(ctx, readRequest("docrag://other"))
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeNotFound, mcpErr.Code)
}

func TestServer_handleDocumentsResource(t *testing.T) {
	backend := &mockBackend{documents: []*store.Document{{ID: "d1", Name: "a.txt", Type: store.DocumentTypeTxt}}}
	srv, err := NewServer(backend)
	require.NoError(t, err)

	res, err := srv.handleDocumentsResource(context.Background(), readRequest(documentsURI))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var docs []DocumentOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].Name)
}

func TestTruncateUTF8(t *testing.T) {
	s := strings.Repeat("é", 4) // 8 bytes
	got := truncateUTF8(s, 5)
	assert.Equal(t, "éé", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, s, truncateUTF8(s, 100))
	assert.Equal(t, s, truncateUTF8(s, len(s)))
	assert.Equal(t, "", truncateUTF8(s, 1))
	assert.Equal(t, "", truncateUTF8(s, 0))
}

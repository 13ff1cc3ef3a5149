package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_RequiresBackend(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
}

func TestServer_UnknownTransport(t *testing.T) {
	srv, err := NewServer(&mockBackend{})
	require.NoError(t, err)

	err = srv.Serve(context.Background(), "sse", "")
	assert.ErrorContains(t, err, "unknown transport")
}

func TestServer_OverInMemoryTransport(t *testing.T) {
	// Given: a server over a real service connected to an in-memory client
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := newTestService(t)
	doc := uploadText(t, svc, "finance.txt", "The board approved a quarterly dividend.")
	_, _, err := svc.IndexAllPending(ctx)
	require.NoError(t, err)

	srv, err := NewServer(svc)
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	// When: listing tools
	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	// Then: the three tools are advertised
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search", "list_documents", "index_status"}, names)

	// And: keyword search finds the document
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "dividend", "mode": "keyword"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, doc.ID)

	// And: the document text is readable as a resource
	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: documentURI(doc.ID)})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.Contains(t, read.Contents[0].Text, "dividend")
}

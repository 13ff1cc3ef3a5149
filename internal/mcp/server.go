package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docrag/internal/async"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/pkg/version"
)

// Backend is the part of index.Service the server calls.
type Backend interface {
	SearchWithMode(ctx context.Context, query string, k int, mode index.SearchMode) ([]store.SearchResult, error)
	ListDocuments(ctx context.Context) ([]*store.Document, error)
	GetDocument(ctx context.Context, id string) (*store.Document, error)
	GetDocumentContent(ctx context.Context, id string) (string, error)
	Status(ctx context.Context) (*index.Status, error)
}

// Server bridges MCP clients with the document index.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	logger  *slog.Logger

	// Background indexing progress, nil when nothing indexes in-process.
	indexProgress *async.IndexProgress
	mu            sync.RWMutex
}

// NewServer creates a server with the search, list_documents and
// index_status tools and the document content resource.
func NewServer(backend Backend) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}

	s := &Server{
		backend: backend,
		logger:  slog.Default(),
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "docrag",
		Version: version.Version,
	}, nil)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// SetIndexProgress attaches the background indexer's tracker so
// index_status can report it.
func (s *Server) SetIndexProgress(progress *async.IndexProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexProgress = progress
}

func (s *Server) progress() *async.IndexProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexProgress
}

func (s *Server) isIndexing() bool {
	p := s.progress()
	return p != nil && p.IsIndexing()
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Serve runs the server on the given transport until ctx is done.
// Supported transports are "stdio" and "http"; addr is used by http only.
func (s *Server) Serve(ctx context.Context, transport, addr string) error {
	s.logger.Info("mcp_server_starting",
		slog.String("transport", transport),
		slog.String("addr", addr))

	var err error
	switch transport {
	case "stdio", "":
		err = s.mcp.Run(ctx, &mcp.StdioTransport{})
	case "http":
		err = s.serveHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, http)", transport)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) serveHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

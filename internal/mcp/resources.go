package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/docrag/internal/store"
)

const (
	uriScheme = "docrag://"

	documentsURI = uriScheme + "documents"

	// MaxResourceSize caps the text returned for one document (1 MiB).
	MaxResourceSize = 1024 * 1024
)

func documentURI(id string) string {
	return documentsURI + "/" + id
}

func (s *Server) registerResources() {
	s.mcp.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Catalogue of uploaded documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.mcp.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}",
		Name:        "document-content",
		Description: "Extracted text of an uploaded document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

func (s *Server) handleDocumentsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	docs, err := s.backend.ListDocuments(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	out := make([]DocumentOutput, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentOutput(d))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func (s *Server) handleDocumentContentResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := extractDocumentID(req.Params.URI)
	if id == "" {
		return nil, NewNotFoundError(req.Params.URI)
	}

	doc, err := s.backend.GetDocument(ctx, id)
	if err != nil {
		return nil, MapError(err)
	}
	content, err := s.backend.GetDocumentContent(ctx, id)
	if err != nil {
		return nil, MapError(err)
	}
	if len(content) > MaxResourceSize {
		content = truncateUTF8(content, MaxResourceSize)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: mimeType(doc.Type),
			Text:     content,
		}},
	}, nil
}

// extractDocumentID parses docrag://documents/{id}. Ids never contain '/'.
func extractDocumentID(uri string) string {
	const prefix = documentsURI + "/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func mimeType(t store.DocumentType) string {
	if t == store.DocumentTypeMd {
		return "text/markdown"
	}
	return "text/plain"
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

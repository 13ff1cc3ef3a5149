package store

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/docrag/internal/chunk"
)

// DocumentType is the source format of an uploaded document.
type DocumentType string

const (
	DocumentTypePDF DocumentType = "pdf"
	DocumentTypeTxt DocumentType = "txt"
	DocumentTypeMd  DocumentType = "md"
)

// DocumentTypeFromExtension maps a file extension (with or without the dot,
// any case) to a DocumentType. ok is false for unsupported extensions.
func DocumentTypeFromExtension(ext string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return DocumentTypePDF, true
	case "txt":
		return DocumentTypeTxt, true
	case "md", "markdown":
		return DocumentTypeMd, true
	default:
		return "", false
	}
}

// DocumentTypeFromPath is DocumentTypeFromExtension for a file path.
func DocumentTypeFromPath(path string) (DocumentType, bool) {
	return DocumentTypeFromExtension(filepath.Ext(path))
}

// parseStoredType reads a doc_type column. Unknown values fall back to txt.
func parseStoredType(s string) (DocumentType, bool) {
	if t, ok := DocumentTypeFromExtension(s); ok {
		return t, true
	}
	return DocumentTypeTxt, false
}

// Document is an uploaded source file.
type Document struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       DocumentType `json:"doc_type"`
	Size       int64        `json:"size"`
	UploadedAt time.Time    `json:"uploaded_at"`
	// Path is the stored copy inside the data directory.
	Path string `json:"path"`
}

// Chunk is the persisted form of a chunk.
type Chunk = chunk.Chunk

// EmbeddingRecord is one vector owned by a chunk.
type EmbeddingRecord struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
}

// SearchResult is a ranked chunk. Score is the dot product of the query and
// the stored vector, which equals cosine similarity for unit vectors.
type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// ChunkStats counts stored chunks and the documents that own them.
type ChunkStats struct {
	TotalChunks    int `json:"total_chunks"`
	TotalDocuments int `json:"total_documents"`
}

// EmbeddingStats counts stored vectors and the documents that own them.
type EmbeddingStats struct {
	TotalVectors   int `json:"total_vectors"`
	TotalDocuments int `json:"total_documents"`
}

// Package chunk splits extracted document text into overlapping,
// character-addressed segments for embedding and retrieval.
package chunk

import "fmt"

// Chunk size defaults, in characters (runes).
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200

	// breakSearchWindow is how far back from a tentative end the splitter
	// looks for a paragraph, sentence or word boundary.
	breakSearchWindow = 200
)

// Chunk is a contiguous character range of a document's trimmed text.
// StartOffset and EndOffset are rune indices, not byte indices.
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	ChunkIndex  int    `json:"chunk_index"`
	Content     string `json:"content"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Config sets the target chunk size and the overlap between consecutive
// chunks, both in characters.
type Config struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

// DefaultConfig returns 1000-character chunks with 200 characters of overlap.
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

// step returns how far the cursor advances after each chunk. It is always at
// least 1, even when Overlap >= ChunkSize.
func (c Config) step() int {
	s := c.ChunkSize / 2
	if c.ChunkSize > c.Overlap {
		s = c.ChunkSize - c.Overlap
	}
	return max(1, s)
}

// ID returns the chunk id for a document and chunk index.
func ID(documentID string, index int) string {
	return fmt.Sprintf("%s-%d", documentID, index)
}

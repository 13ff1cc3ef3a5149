package chunk

import (
	"strings"
	"unicode"
)

// Split divides text into chunks for documentID.
//
// The text is trimmed first; empty or whitespace-only text yields no chunks.
// Text no longer than cfg.ChunkSize becomes a single chunk. Longer text is
// walked with a rune cursor: each chunk ends at the best break point within
// the last 200 characters of its window, and the cursor then advances by
// ChunkSize-Overlap. Split is deterministic and never fails.
func Split(documentID, text string, cfg Config) []Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return []Chunk{}
	}

	runes := []rune(text)
	total := len(runes)

	if total <= cfg.ChunkSize {
		return []Chunk{{
			ID:          ID(documentID, 0),
			DocumentID:  documentID,
			ChunkIndex:  0,
			Content:     text,
			StartOffset: 0,
			EndOffset:   total,
		}}
	}

	chunks := make([]Chunk, 0, total/cfg.step()+1)
	step := cfg.step()

	for start := 0; start < total; start += step {
		end := min(start+cfg.ChunkSize, total)
		if end < total {
			end = findBreakPoint(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content == "" {
			continue
		}

		idx := len(chunks)
		chunks = append(chunks, Chunk{
			ID:          ID(documentID, idx),
			DocumentID:  documentID,
			ChunkIndex:  idx,
			Content:     content,
			StartOffset: start,
			EndOffset:   end,
		})
	}

	return chunks
}

// findBreakPoint searches backward from end for a natural boundary and
// returns the rune index just after it. The result is always in (start, end].
//
// Priority: paragraph break, sentence terminator followed by whitespace,
// any whitespace, and finally end itself.
func findBreakPoint(runes []rune, start, end int) int {
	searchStart := max(start, end-breakSearchWindow)

	// Two newlines separated only by whitespace.
	seenNewline := false
	for i := end - 1; i >= searchStart; i-- {
		switch c := runes[i]; {
		case c == '\n':
			if seenNewline {
				return min(i+2, end)
			}
			seenNewline = true
		case !unicode.IsSpace(c):
			seenNewline = false
		}
	}

	for i := end - 2; i >= searchStart; i-- {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}

	for i := end - 1; i >= searchStart; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}

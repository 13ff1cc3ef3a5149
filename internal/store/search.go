package store

import (
	"context"
	"log/slog"
	"sort"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// Search ranks every stored vector against query by dot product and returns
// the top k, highest score first. Equal scores keep the order in which rows
// were read.
//
// This is an exact linear scan, O(N) in the number of embedded chunks. It is
// meant for collections of up to tens of thousands of chunks.
func (s *SQLiteStore) Search(ctx context.Context, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return []SearchResult{}, nil
	}

	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT e.chunk_id, e.document_id, e.embedding, c.content
		 FROM embeddings e
		 JOIN chunks c ON e.chunk_id = c.id`)
	if err != nil {
		return nil, derrors.PersistenceError("failed to scan embeddings", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	skipped := 0
	for rows.Next() {
		var (
			r    SearchResult
			blob []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &blob, &r.Content); err != nil {
			return nil, derrors.PersistenceError("failed to read embedding row", err)
		}

		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, derrors.PersistenceError("corrupt embedding for chunk "+r.ChunkID, err)
		}
		if len(vec) != len(query) {
			skipped++
			continue
		}

		r.Score = dot(query, vec)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.PersistenceError("failed to scan embeddings", err)
	}

	if skipped > 0 {
		slog.Debug("search_dimension_mismatch",
			slog.Int("skipped", skipped),
			slog.Int("query_dimensions", len(query)))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

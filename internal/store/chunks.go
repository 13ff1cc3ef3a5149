package store

import (
	"context"
	"database/sql"
	"strings"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// ReplaceChunks swaps the chunks of a document for a new set. Embeddings of
// the old chunks go with them.
func (s *SQLiteStore) ReplaceChunks(ctx context.Context, documentID string, chunks []Chunk) error {
	return s.inTx(ctx, "replace chunks", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
			return err
		}
		return insertChunks(ctx, tx, chunks)
	})
}

// GetChunks returns the chunks of a document in chunk_index order.
func (s *SQLiteStore) GetChunks(ctx context.Context, documentID string) ([]Chunk, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, content, start_offset, end_offset
		 FROM chunks WHERE document_id = ? ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, derrors.PersistenceError("failed to get chunks", err)
	}
	defer rows.Close()

	chunks := []Chunk{}
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.StartOffset, &c.EndOffset); err != nil {
			return nil, derrors.PersistenceError("failed to read chunk row", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.PersistenceError("failed to get chunks", err)
	}
	return chunks, nil
}

// DeleteChunks removes all chunks of a document.
func (s *SQLiteStore) DeleteChunks(ctx context.Context, documentID string) error {
	return s.inTx(ctx, "delete chunks", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID)
		return err
	})
}

// ChunkStats counts chunks and distinct owning documents.
func (s *SQLiteStore) ChunkStats(ctx context.Context) (ChunkStats, error) {
	unlock, err := s.lock()
	if err != nil {
		return ChunkStats{}, err
	}
	defer unlock()

	var stats ChunkStats
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT document_id) FROM chunks`).
		Scan(&stats.TotalChunks, &stats.TotalDocuments)
	if err != nil {
		return ChunkStats{}, derrors.PersistenceError("failed to get chunk stats", err)
	}
	return stats, nil
}

// GetChunksByID returns the chunks with the given ids, keyed by id. Unknown
// ids are absent from the map.
func (s *SQLiteStore) GetChunksByID(ctx context.Context, ids []string) (map[string]Chunk, error) {
	out := make(map[string]Chunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, chunk_index, content, start_offset, end_offset
		 FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, derrors.PersistenceError("failed to get chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.StartOffset, &c.EndOffset); err != nil {
			return nil, derrors.PersistenceError("failed to read chunk row", err)
		}
		out[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.PersistenceError("failed to get chunks", err)
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

const upsertEmbeddingSQL = `INSERT OR REPLACE INTO embeddings (chunk_id, document_id, embedding) VALUES (?, ?, ?)`

// SaveEmbedding stores the vector for a chunk, replacing any previous one.
// The vector is stored as given; callers are expected to normalize it.
func (s *SQLiteStore) SaveEmbedding(ctx context.Context, chunkID, documentID string, vec []float32) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.db.ExecContext(ctx, upsertEmbeddingSQL, chunkID, documentID, EncodeVector(vec)); err != nil {
		return derrors.PersistenceError("failed to save embedding", err).WithDetail("chunk_id", chunkID)
	}
	return nil
}

// SaveEmbeddings stores a set of vectors in one transaction. Either every
// record is written or none is.
func (s *SQLiteStore) SaveEmbeddings(ctx context.Context, records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.inTx(ctx, "save embeddings", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertEmbeddingSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.ChunkID, r.DocumentID, EncodeVector(r.Vector)); err != nil {
				return derrors.PersistenceError("failed to save embedding", err).WithDetail("chunk_id", r.ChunkID)
			}
		}
		return nil
	})
}

// GetEmbedding returns the vector for a chunk. ok is false when none is
// stored.
func (s *SQLiteStore) GetEmbedding(ctx context.Context, chunkID string) (vec []float32, ok bool, err error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	var blob []byte
	err = s.db.QueryRowContext(ctx, `SELECT embedding FROM embeddings WHERE chunk_id = ?`, chunkID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, derrors.PersistenceError("failed to get embedding", err)
	}

	vec, err = DecodeVector(blob)
	if err != nil {
		return nil, false, derrors.PersistenceError("corrupt embedding for chunk "+chunkID, err)
	}
	return vec, true, nil
}

// HasEmbedding reports whether a vector is stored for a chunk.
func (s *SQLiteStore) HasEmbedding(ctx context.Context, chunkID string) (bool, error) {
	unlock, err := s.lock()
	if err != nil {
		return false, err
	}
	defer unlock()

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM embeddings WHERE chunk_id = ?)`, chunkID).Scan(&exists)
	if err != nil {
		return false, derrors.PersistenceError("failed to check embedding", err)
	}
	return exists, nil
}

// DeleteEmbeddings removes every vector owned by a document.
func (s *SQLiteStore) DeleteEmbeddings(ctx context.Context, documentID string) error {
	return s.inTx(ctx, "delete embeddings", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE document_id = ?`, documentID)
		return err
	})
}

// EmbeddingStats counts vectors and distinct owning documents.
func (s *SQLiteStore) EmbeddingStats(ctx context.Context) (EmbeddingStats, error) {
	unlock, err := s.lock()
	if err != nil {
		return EmbeddingStats{}, err
	}
	defer unlock()

	var stats EmbeddingStats
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT document_id) FROM embeddings`).
		Scan(&stats.TotalVectors, &stats.TotalDocuments)
	if err != nil {
		return EmbeddingStats{}, derrors.PersistenceError("failed to get embedding stats", err)
	}
	return stats, nil
}

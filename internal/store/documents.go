package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// SaveDocument stores a document, its extracted text and its chunks in one
// transaction. Existing rows with the same ids are replaced.
func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *Document, content string, chunks []Chunk) error {
	return s.inTx(ctx, "save document", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO documents (id, name, doc_type, size, uploaded_at, path)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, doc.Name, string(doc.Type), doc.Size, formatTime(doc.UploadedAt), doc.Path)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO document_content (document_id, content) VALUES (?, ?)`,
			doc.ID, content)
		if err != nil {
			return err
		}

		return insertChunks(ctx, tx, chunks)
	})
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (id, document_id, chunk_index, content, start_offset, end_offset)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.StartOffset, c.EndOffset); err != nil {
			return err
		}
	}
	return nil
}

const documentColumns = `id, name, doc_type, size, uploaded_at, path`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc        Document
		docType    string
		uploadedAt string
	)
	if err := row.Scan(&doc.ID, &doc.Name, &docType, &doc.Size, &uploadedAt, &doc.Path); err != nil {
		return nil, err
	}

	t, ok := parseStoredType(docType)
	if !ok {
		slog.Warn("doc_type_unknown",
			slog.String("document_id", doc.ID),
			slog.String("value", docType))
	}
	doc.Type = t
	doc.UploadedAt = parseUploadedAt(doc.ID, uploadedAt)
	return &doc, nil
}

// ListDocuments returns all documents, most recently uploaded first.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]*Document, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, derrors.PersistenceError("failed to list documents", err)
	}
	defer rows.Close()

	docs := []*Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, derrors.PersistenceError("failed to read document row", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, derrors.PersistenceError("failed to list documents", err)
	}
	return docs, nil
}

// GetDocument returns a document or a NotFound error.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, derrors.NotFoundError("document", id)
	}
	if err != nil {
		return nil, derrors.PersistenceError("failed to get document", err)
	}
	return doc, nil
}

// GetDocumentContent returns the extracted text of a document.
func (s *SQLiteStore) GetDocumentContent(ctx context.Context, id string) (string, error) {
	unlock, err := s.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	var content string
	err = s.db.QueryRowContext(ctx,
		`SELECT content FROM document_content WHERE document_id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", derrors.NotFoundError("document", id)
	}
	if err != nil {
		return "", derrors.PersistenceError("failed to get document content", err)
	}
	return content, nil
}

// DeleteDocument removes a document. Its content, chunks and embeddings are
// removed by cascade in the same statement.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	return s.inTx(ctx, "delete document", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return derrors.NotFoundError("document", id)
		}
		return nil
	})
}

// Package store persists documents, chunks and embeddings in SQLite and
// answers brute-force similarity queries over the stored vectors.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore owns the docrag database.
//
// All access is serialized: the pool holds a single connection and every
// public method runs its read or write burst under mu, so transactions never
// overlap.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens or creates the database at path. An empty path opens a private
// in-memory database.
func Open(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, derrors.PersistenceError(fmt.Sprintf("failed to create directory for %s", path), err)
		}
		dsn = path
	}
	// foreign_keys is per connection, so it goes in the DSN to survive
	// reconnects.
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, derrors.PersistenceError("failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if path == "" {
		pragmas = pragmas[1:]
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, derrors.PersistenceError("failed to set pragma", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, derrors.PersistenceError("failed to initialize schema", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path, or "" for an in-memory store.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database. Calling Close twice is safe.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// lock acquires the store for one burst of work.
func (s *SQLiteStore) lock() (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, derrors.PersistenceError("store is closed", nil)
	}
	return s.mu.Unlock, nil
}

// inTx runs fn in a transaction under the store lock.
func (s *SQLiteStore) inTx(ctx context.Context, what string, fn func(tx *sql.Tx) error) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return derrors.PersistenceError("failed to begin transaction for "+what, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if _, ok := derrors.As(err); ok {
			return err
		}
		return derrors.PersistenceError("failed to "+what, err)
	}
	if err := tx.Commit(); err != nil {
		return derrors.PersistenceError("failed to commit "+what, err)
	}
	return nil
}

package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

// RotatingWriter appends to a log file and shifts it aside once it would
// grow past the size limit: docrag.log becomes docrag.log.1, .1 becomes .2,
// up to maxFiles generations. Older files are removed.
type RotatingWriter struct {
	path     string
	limit    int64
	maxFiles int

	mu   sync.Mutex
	f    *os.File
	size int64
}

// NewRotatingWriter opens path for appending and creates its directory.
// Non-positive limits fall back to 10 MB and 5 files.
func NewRotatingWriter(path string, maxSizeMB, maxFiles int) (*RotatingWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}
	if maxFiles <= 0 {
		maxFiles = defaultMaxFiles
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	w := &RotatingWriter{path: path, limit: int64(maxSizeMB) << 20, maxFiles: maxFiles}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.limit {
		if err := w.rotate(); err != nil && w.f == nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// Sync flushes the current file.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	return w.f.Sync()
}

// Close is safe to call more than once.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.f, w.size = f, st.Size()
	return nil
}

// rotate always tries to leave a file open, even when shifting fails, so
// logging continues into the oversized file.
func (w *RotatingWriter) rotate() error {
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	w.f = nil

	gen := func(n int) string { return fmt.Sprintf("%s.%d", w.path, n) }
	_ = os.Remove(gen(w.maxFiles))
	for n := w.maxFiles; n > 1; n-- {
		_ = os.Rename(gen(n-1), gen(n))
	}
	shiftErr := os.Rename(w.path, gen(1))
	if errors.Is(shiftErr, fs.ErrNotExist) {
		shiftErr = nil
	}

	if err := w.open(); err != nil {
		return err
	}
	if shiftErr != nil {
		_, _ = fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", shiftErr)
	}
	return shiftErr
}

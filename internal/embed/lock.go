package embed

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
)

// IndexLockName is the file locked while vectors are written.
const IndexLockName = ".index.lock"

// FileLock serialises backfills across docrag processes, for example a
// `docrag index --all` run next to a watcher that is indexing uploads.
type FileLock struct {
	fl     *flock.Flock
	locked bool
}

// NewFileLock returns an unlocked lock on <dir>/.index.lock.
func NewFileLock(dir string) *FileLock {
	return &FileLock{fl: flock.New(filepath.Join(dir, IndexLockName))}
}

func (l *FileLock) prepare() error {
	if err := os.MkdirAll(filepath.Dir(l.fl.Path()), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}

// Lock waits for the lock.
func (l *FileLock) Lock() error {
	if err := l.prepare(); err != nil {
		return err
	}
	if err := l.fl.Lock(); err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.fl.Path(), err)
	}
	l.locked = true
	return nil
}

// TryLock takes the lock if it is free and reports whether it did.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.prepare(); err != nil {
		return false, err
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", l.fl.Path(), err)
	}
	l.locked = l.locked || ok
	return ok, nil
}

// MustTryLock is TryLock with a held lock reported as an index error.
func (l *FileLock) MustTryLock() error {
	ok, err := l.TryLock()
	switch {
	case err != nil:
		return derrors.PersistenceError("index lock unavailable", err)
	case !ok:
		return derrors.New(derrors.ErrCodeIndexFailed, "another docrag process is indexing", nil).
			WithDetail("lock", l.fl.Path()).
			WithSuggestion("Wait for the other process to finish, then retry")
	}
	return nil
}

// Unlock releases a held lock and does nothing otherwise.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.fl.Path(), err)
	}
	return nil
}

func (l *FileLock) Path() string   { return l.fl.Path() }
func (l *FileLock) IsLocked() bool { return l.locked }

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// ProcessedDirName is the inbox subdirectory uploaded files are moved into.
const ProcessedDirName = ".processed"

// Uploader registers a file as a document. index.Service implements it.
type Uploader interface {
	UploadDocument(ctx context.Context, path string) (*store.Document, error)
}

// InboxWatcher uploads documents that appear in a directory.
type InboxWatcher struct {
	dir      string
	uploader Uploader
	filter   *Filter
	opts     Options

	mu       sync.Mutex
	onUpload func(*store.Document)
	stopCh   chan struct{}
	stopped  bool

	uploaded atomic.Int64
	failed   atomic.Int64
}

// NewInboxWatcher creates a watcher for dir. The directory is created if it
// does not exist.
func NewInboxWatcher(dir string, uploader Uploader, opts Options) (*InboxWatcher, error) {
	opts = opts.WithDefaults()

	filter, err := NewFilter(opts.Include)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, derrors.New(derrors.ErrCodeInvalidPath, "cannot resolve inbox "+dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, derrors.New(derrors.ErrCodeFilePermission, "cannot create inbox "+abs, err)
	}

	return &InboxWatcher{
		dir:      abs,
		uploader: uploader,
		filter:   filter,
		opts:     opts,
		stopCh:   make(chan struct{}),
	}, nil
}

// Dir returns the absolute inbox path.
func (w *InboxWatcher) Dir() string {
	return w.dir
}

// OnUpload sets a callback invoked after each successful upload.
func (w *InboxWatcher) OnUpload(fn func(*store.Document)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUpload = fn
}

// Stats returns how many files were uploaded and how many failed.
func (w *InboxWatcher) Stats() (uploaded, failed int64) {
	return w.uploaded.Load(), w.failed.Load()
}

// ProcessExisting uploads every matching file already in the inbox and
// returns how many succeeded.
func (w *InboxWatcher) ProcessExisting(ctx context.Context) (int, error) {
	paths, err := w.filter.Walk(w.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if w.process(ctx, p) {
			n++
		}
	}
	return n, nil
}

// Run processes files already in the inbox, then watches it until ctx is
// cancelled or Stop is called. Subdirectories present at start are watched;
// ones created later are picked up on the next Run.
func (w *InboxWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return derrors.New(derrors.ErrCodeInternal, "failed to start file watcher", err)
	}
	defer fsw.Close()

	if err := w.addDirs(fsw); err != nil {
		return err
	}

	debouncer := NewDebouncer(w.opts.Debounce)
	defer debouncer.Stop()

	if _, err := w.ProcessExisting(ctx); err != nil {
		return err
	}

	slog.Info("inbox_watch_started",
		slog.String("dir", w.dir),
		slog.Any("include", w.filter.Patterns()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if fe, keep := w.translate(ev); keep {
				debouncer.Add(fe)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("inbox_watch_error", slog.String("error", err.Error()))
		case batch, ok := <-debouncer.Output():
			if !ok {
				return nil
			}
			for _, fe := range batch {
				if fe.Operation == OpDelete {
					continue
				}
				w.process(ctx, fe.Path)
			}
		}
	}
}

func (w *InboxWatcher) addDirs(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.dir && len(d.Name()) > 0 && d.Name()[0] == '.' {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return derrors.New(derrors.ErrCodeFilePermission, "cannot watch "+path, err)
		}
		return nil
	})
}

// translate maps an fsnotify event to a FileEvent. keep is false for events
// the inbox ignores.
func (w *InboxWatcher) translate(ev fsnotify.Event) (FileEvent, bool) {
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil || !w.filter.Match(rel) {
		return FileEvent{}, false
	}

	var op Operation
	switch {
	case ev.Op.Has(fsnotify.Create):
		op = OpCreate
	case ev.Op.Has(fsnotify.Write):
		op = OpModify
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		return FileEvent{}, false
	}
	return FileEvent{Path: ev.Name, Operation: op, Timestamp: time.Now()}, true
}

// process uploads one file and moves it out of the way. It reports whether
// the upload succeeded.
func (w *InboxWatcher) process(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	doc, err := w.uploader.UploadDocument(ctx, path)
	if err != nil {
		w.failed.Add(1)
		slog.Warn("inbox_upload_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}
	w.uploaded.Add(1)

	if err := w.archive(path, doc.ID); err != nil {
		slog.Warn("inbox_archive_failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}

	slog.Info("inbox_uploaded",
		slog.String("path", path),
		slog.String("document_id", doc.ID))

	w.mu.Lock()
	fn := w.onUpload
	w.mu.Unlock()
	if fn != nil {
		fn(doc)
	}
	return true
}

func (w *InboxWatcher) archive(path, documentID string) error {
	dir := filepath.Join(w.dir, ProcessedDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, fmt.Sprintf("%s_%s", documentID, filepath.Base(path)))
	return os.Rename(path, dst)
}

// Stop ends Run. Safe to call multiple times.
func (w *InboxWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.stopCh)
}

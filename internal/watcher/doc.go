// Package watcher uploads documents dropped into an inbox directory.
//
// Filesystem events come from fsnotify, are coalesced per path by a
// Debouncer and filtered by include globs before each surviving file is
// handed to an Uploader. Uploaded files are moved to the inbox's
// .processed subdirectory so a restart does not upload them twice.
//
// Usage:
//
//	w, err := watcher.NewInboxWatcher(dir, svc, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	w.OnUpload(func(doc *store.Document) { indexer.Trigger() })
//	return w.Run(ctx)
package watcher

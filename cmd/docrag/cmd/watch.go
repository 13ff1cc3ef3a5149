package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/async"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/watcher"
)

// modelRetryInterval is how often long-running commands retry an offline
// embedder.
const modelRetryInterval = 30 * time.Second

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Upload and index files dropped into an inbox directory",
		Long: `Watch uploads every matching file that appears in the inbox directory
(default <data_dir>/inbox) and indexes it in the background. Files already
present are processed at start. Uploaded files are moved to the inbox's
.processed directory; files that fail stay where they are.

Deleting a file from the inbox does not delete the document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Inbox directory (default from config)")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
	out := output.New(cmd.OutOrStdout())

	progress := async.NewIndexProgress()
	a, err := openApp(ctx, appOptions{withModel: true, progress: progress.Observe})
	if err != nil {
		return err
	}
	defer a.Close()

	if dir == "" {
		dir = a.cfg.InboxDir()
	}
	indexer := async.NewBackgroundIndexer(a.svc, progress)
	inbox, err := newInbox(a, dir, indexer, func(doc *store.Document) {
		out.Successf("Uploaded %s (%s)", doc.Name, doc.ID)
	})
	if err != nil {
		return err
	}

	if !a.model.Current().IsReady() {
		out.Warning("Embedder is offline; documents will be indexed once it is reachable")
		go a.retryModel(ctx, modelRetryInterval, indexer.Trigger)
	}

	indexer.Start(ctx)
	defer indexer.Stop()

	out.Statusf("", "Watching %s (Ctrl+C to stop)", inbox.Dir())
	if err := inbox.Run(ctx); err != nil {
		return err
	}

	uploaded, failed := inbox.Stats()
	out.Newline()
	out.Successf("Stopped: %d uploaded, %d failed", uploaded, failed)
	return nil
}

// newInbox builds an inbox watcher that triggers indexer after every upload.
func newInbox(a *app, dir string, indexer *async.BackgroundIndexer, onUpload func(*store.Document)) (*watcher.InboxWatcher, error) {
	inbox, err := watcher.NewInboxWatcher(dir, a.svc, watcher.Options{
		Debounce: a.cfg.DebounceDuration(),
		Include:  a.cfg.Watch.Include,
	})
	if err != nil {
		return nil, err
	}
	inbox.OnUpload(func(doc *store.Document) {
		if onUpload != nil {
			onUpload(doc)
		}
		indexer.Trigger()
	})
	return inbox, nil
}

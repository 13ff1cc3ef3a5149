package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docrag/internal/async"
	"github.com/Aman-CERP/docrag/internal/mcp"
)

type serveOptions struct {
	transport string
	addr      string
	watch     bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the library to agents over MCP",
		Long: `Serve starts a Model Context Protocol server with the tools search,
list_documents and index_status, and a docrag://documents resource.
Pending documents are indexed in the background while it runs.

With the stdio transport nothing but protocol messages is written to
stdout; logs go to <data_dir>/logs/docrag.log.`,
		Example: `  docrag serve
  docrag serve --transport http --addr 127.0.0.1:8765
  docrag serve --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "stdio", "Transport: stdio or http")
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8765", "Listen address for the http transport")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Also watch the inbox directory (default from config)")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	progress := async.NewIndexProgress()
	a, err := openApp(ctx, appOptions{
		withModel: true,
		stdioSafe: opts.transport == "stdio",
		progress:  progress.Observe,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(a.svc)
	if err != nil {
		return err
	}
	srv.SetIndexProgress(progress)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexer := async.NewBackgroundIndexer(a.svc, progress)
	indexer.Start(ctx)
	defer indexer.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if !a.model.Current().IsReady() {
		g.Go(func() error {
			a.retryModel(gctx, modelRetryInterval, indexer.Trigger)
			return nil
		})
	}

	if opts.watch || a.cfg.Watch.Enabled {
		inbox, err := newInbox(a, a.cfg.InboxDir(), indexer, nil)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return inbox.Run(gctx)
		})
	}

	// The server ending (stdin closed, or ctx done) stops everything else.
	g.Go(func() error {
		defer cancel()
		return srv.Serve(gctx, opts.transport, opts.addr)
	})

	err = g.Wait()
	slog.Info("serve_stopped", slog.Int("runs", progress.Snapshot().Runs))
	return err
}

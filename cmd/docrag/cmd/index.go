package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/ui"
)

type indexOptions struct {
	all             bool
	rebuildKeywords bool
	plain           bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [document-id]",
		Short: "Embed documents so they can be searched",
		Long: `Index embeds the chunks of one document, or of every document that has
no vectors yet with --all. Re-indexing a document replaces its vectors.

--rebuild-keywords recreates the keyword index from stored chunks.

Examples:
  docrag index --all
  docrag index 3f1c2a9e-...
  docrag index --rebuild-keywords`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.rebuildKeywords:
				return runRebuildKeywords(cmd.Context(), cmd)
			case len(args) == 1:
				return runIndexDocument(cmd.Context(), cmd, args[0])
			case opts.all:
				return runIndexAll(cmd.Context(), cmd, opts)
			default:
				return derrors.InputError("specify a document id or --all", nil)
			}
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Index every pending document")
	cmd.Flags().BoolVar(&opts.rebuildKeywords, "rebuild-keywords", false, "Rebuild the keyword index")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Plain line output instead of the progress display")

	return cmd
}

func runIndexDocument(ctx context.Context, cmd *cobra.Command, id string) error {
	a, err := openApp(ctx, appOptions{withModel: true})
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.svc.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	n, err := a.svc.IndexDocument(ctx, id)
	if err != nil {
		return err
	}
	output.New(cmd.OutOrStdout()).Successf("Indexed %s: %d chunks", doc.Name, n)
	return nil
}

func runIndexAll(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.plain),
		ui.WithNoColor(noColor || ui.DetectNoColor()),
		ui.WithTitle("Indexing"),
	))

	progress := func(p index.Progress) {
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:    ui.StageEmbedding,
			Current:  p.Current,
			Total:    p.Total,
			Document: p.Name,
		})
	}

	a, err := openApp(ctx, appOptions{withModel: true, progress: progress})
	if err != nil {
		return err
	}
	defer a.Close()

	pending, err := a.svc.Orchestrator().PendingDocuments(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		output.New(cmd.OutOrStdout()).Success("All documents are indexed")
		return nil
	}

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	renderer.UpdateProgress(ui.ProgressEvent{
		Stage:   ui.StageEmbedding,
		Total:   len(pending),
		Message: fmt.Sprintf("%d pending documents", len(pending)),
	})

	start := time.Now()
	docs, chunks, runErr := a.svc.IndexAllPending(ctx)

	stats := ui.CompletionStats{
		Documents: docs,
		Chunks:    chunks,
		Duration:  time.Since(start),
	}
	if info, state := a.modelInfo(ctx); state == "ready" {
		stats.Embedder = ui.EmbedderInfo{
			Provider:   info.Provider.String(),
			Model:      info.Model,
			Dimensions: info.Dimensions,
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		renderer.AddError(ui.ErrorEvent{Err: runErr})
		stats.Errors = 1
	}
	renderer.Complete(stats)
	if err := renderer.Stop(); err != nil {
		return err
	}
	return runErr
}

func runRebuildKeywords(ctx context.Context, cmd *cobra.Command) error {
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.svc.RebuildKeywordIndex(ctx)
	if err != nil {
		return err
	}
	output.New(cmd.OutOrStdout()).Successf("Rebuilt keyword index: %d chunks", n)
	return nil
}

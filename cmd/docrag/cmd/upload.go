package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
	"github.com/Aman-CERP/docrag/internal/watcher"
)

type uploadOptions struct {
	index    bool
	include  []string
	jsonOut  bool
	noBar    bool
	failFast bool
}

func newUploadCmd() *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload <file|dir>...",
		Short: "Add documents to the library",
		Long: `Upload copies each file into the data directory, extracts its text and
splits it into chunks. Directories are walked recursively and filtered with
--include globs (default: txt, md and markdown files).

Uploaded documents are searchable after indexing; pass --index to embed
them right away.

Examples:
  docrag upload notes.md
  docrag upload ~/papers --include "**/*.md"
  docrag upload report.txt --index`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.index, "index", false, "Embed the uploaded documents immediately")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "Glob patterns for directory uploads (repeatable)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print uploaded documents as JSON")
	cmd.Flags().BoolVar(&opts.noBar, "no-progress", false, "Disable the progress bar and the interactive display")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Stop at the first failed file")

	return cmd
}

// collectFiles expands directories with the include filter. Explicit file
// arguments are taken as given so unsupported types surface as errors.
func collectFiles(args, include []string) ([]string, error) {
	filter, err := watcher.NewFilter(include)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, derrors.New(derrors.ErrCodeFileNotFound, "file not found: "+arg, err)
			}
			return nil, derrors.New(derrors.ErrCodeFilePermission, "cannot read "+arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := filter.Walk(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func runUpload(ctx context.Context, cmd *cobra.Command, args []string, opts uploadOptions) error {
	out := output.New(cmd.OutOrStdout())

	files, err := collectFiles(args, opts.include)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		out.Warning("No matching files found")
		return nil
	}

	a, err := openApp(ctx, appOptions{withModel: opts.index})
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.index && !opts.jsonOut {
		return uploadAndIndex(ctx, cmd, a, files, opts)
	}

	showBar := !opts.noBar && !opts.jsonOut && len(files) > 1 && ui.IsTTY(cmd.ErrOrStderr())
	bar := ui.NewUploadProgress(cmd.ErrOrStderr(), len(files), showBar)

	var (
		uploaded []*store.Document
		failed   int
	)
	for _, path := range files {
		doc, err := a.svc.UploadDocument(ctx, path)
		bar.Done(path)
		if err != nil {
			failed++
			slog.Warn("upload_failed", slog.String("path", path), slog.String("error", err.Error()))
			if !opts.jsonOut {
				out.Errorf("%s: %s", filepath.Base(path), errorMessage(err))
			}
			if opts.failFast || ctx.Err() != nil {
				break
			}
			continue
		}
		uploaded = append(uploaded, doc)
		if !opts.jsonOut && !bar.Enabled() {
			out.Successf("Uploaded %s (%s)", doc.Name, doc.ID)
		}
	}
	bar.Finish()

	if opts.index && len(uploaded) > 0 {
		if err := indexUploaded(ctx, a, uploaded); err != nil {
			return err
		}
	}

	if opts.jsonOut {
		if uploaded == nil {
			uploaded = []*store.Document{}
		}
		if err := out.JSON(uploaded); err != nil {
			return err
		}
	} else if len(files) > 1 {
		out.Successf("Uploaded %d of %d files", len(uploaded), len(files))
	}

	if failed > 0 {
		return derrors.InputError(fmt.Sprintf("%d of %d uploads failed", failed, len(files)), nil)
	}
	return nil
}

// uploadAndIndex runs upload --index as two stages on the progress renderer:
// every file is uploaded first, then the uploaded documents are embedded.
func uploadAndIndex(ctx context.Context, cmd *cobra.Command, a *app, files []string, opts uploadOptions) error {
	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(opts.noBar),
		ui.WithNoColor(noColor || ui.DetectNoColor()),
		ui.WithTitle("Uploading"),
	))
	if err := renderer.Start(ctx); err != nil {
		return err
	}

	start := time.Now()
	var (
		uploaded []*store.Document
		failed   int
	)
	for i, path := range files {
		name := filepath.Base(path)
		doc, err := a.svc.UploadDocument(ctx, path)
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:    ui.StageUploading,
			Current:  i + 1,
			Total:    len(files),
			Document: name,
		})
		if err != nil {
			failed++
			slog.Warn("upload_failed", slog.String("path", path), slog.String("error", err.Error()))
			renderer.AddError(ui.ErrorEvent{Document: name, Err: errors.New(errorMessage(err))})
			if opts.failFast || ctx.Err() != nil {
				break
			}
			continue
		}
		uploaded = append(uploaded, doc)
	}

	stats := ui.CompletionStats{Errors: failed}
	var indexErr error
	for i, doc := range uploaded {
		n, err := a.svc.IndexDocument(ctx, doc.ID)
		if err != nil {
			renderer.AddError(ui.ErrorEvent{Document: doc.Name, Err: err})
			stats.Errors++
			indexErr = err
			break
		}
		stats.Documents++
		stats.Chunks += n
		renderer.UpdateProgress(ui.ProgressEvent{
			Stage:    ui.StageEmbedding,
			Current:  i + 1,
			Total:    len(uploaded),
			Document: doc.Name,
		})
	}

	stats.Duration = time.Since(start)
	if info, state := a.modelInfo(ctx); state == "ready" {
		stats.Embedder = ui.EmbedderInfo{
			Provider:   info.Provider.String(),
			Model:      info.Model,
			Dimensions: info.Dimensions,
		}
	}
	renderer.Complete(stats)
	if err := renderer.Stop(); err != nil {
		return err
	}

	if indexErr != nil {
		return indexErr
	}
	if failed > 0 {
		return derrors.InputError(fmt.Sprintf("%d of %d uploads failed", failed, len(files)), nil)
	}
	return nil
}

// indexUploaded embeds docs without output, for upload --index --json.
func indexUploaded(ctx context.Context, a *app, docs []*store.Document) error {
	for _, doc := range docs {
		if _, err := a.svc.IndexDocument(ctx, doc.ID); err != nil {
			return err
		}
	}
	return nil
}

// errorMessage returns the user-facing part of err.
func errorMessage(err error) string {
	if de, ok := derrors.As(err); ok {
		return de.Message
	}
	return err.Error()
}

package cmd

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/ui"
)

func newStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "stats",
		Aliases: []string{"status"},
		Short:   "Show library, index and model statistics",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{withModel: true})
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.svc.Status(ctx)
			if err != nil {
				return err
			}

			info := ui.StatusInfo{
				DataDir:          a.cfg.DataDir,
				Documents:        st.Documents,
				Chunks:           st.Chunks,
				Vectors:          st.Vectors,
				IndexedDocuments: st.IndexedDocuments,
				PendingDocuments: st.PendingDocuments,
				DatabaseSize:     fileSize(a.cfg.DatabasePath()) + fileSize(a.cfg.DatabasePath()+"-wal"),
				KeywordIndexSize: dirSize(a.cfg.KeywordIndexPath()),
				DocumentsSize:    dirSize(a.cfg.DocumentsDir()),
			}

			docs, err := a.svc.ListDocuments(ctx)
			if err != nil {
				return err
			}
			if len(docs) > 0 {
				info.LastUpload = docs[0].UploadedAt
			}

			model, state := a.modelInfo(ctx)
			info.EmbedderProvider = model.Provider.String()
			info.EmbedderModel = model.Model
			info.EmbedderStatus = state
			info.Dimensions = model.Dimensions

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOut {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// dirSize sums regular file sizes under root; unreadable entries count as 0.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

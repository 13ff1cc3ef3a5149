package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/store"
	"github.com/Aman-CERP/docrag/internal/ui"
)

const timeLayout = "2006-01-02 15:04"

func newDocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "List, inspect and delete uploaded documents",
	}

	cmd.AddCommand(newDocumentsListCmd())
	cmd.AddCommand(newDocumentsShowCmd())
	cmd.AddCommand(newDocumentsContentCmd())
	cmd.AddCommand(newDocumentsDeleteCmd())
	return cmd
}

func newDocumentsListCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.svc.ListDocuments(ctx)
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOut {
				if docs == nil {
					docs = []*store.Document{}
				}
				return out.JSON(docs)
			}
			if len(docs) == 0 {
				out.Text("No documents. Upload one with: docrag upload <file>")
				return nil
			}

			rows := make([][]string, 0, len(docs))
			for _, d := range docs {
				rows = append(rows, []string{
					d.ID,
					d.Name,
					string(d.Type),
					ui.FormatBytes(d.Size),
					d.UploadedAt.Local().Format(timeLayout),
				})
			}
			return out.Table([]string{"ID", "NAME", "TYPE", "SIZE", "UPLOADED"}, rows)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// documentDetail is the JSON form of `documents show`.
type documentDetail struct {
	*store.Document
	Chunks  int  `json:"chunks"`
	Indexed bool `json:"indexed"`
}

func loadDocumentDetail(ctx context.Context, a *app, id string) (*documentDetail, error) {
	doc, err := a.svc.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	chunks, err := a.svc.GetChunks(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &documentDetail{Document: doc, Chunks: len(chunks)}
	if len(chunks) > 0 {
		// Same first-chunk check the indexer uses.
		detail.Indexed, err = a.store.HasEmbedding(ctx, chunks[0].ID)
		if err != nil {
			return nil, err
		}
	}
	return detail, nil
}

func newDocumentsShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := loadDocumentDetail(ctx, a, args[0])
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOut {
				return out.JSON(d)
			}
			return out.Table([]string{"FIELD", "VALUE"}, [][]string{
				{"ID", d.ID},
				{"Name", d.Name},
				{"Type", string(d.Type)},
				{"Size", ui.FormatBytes(d.Size)},
				{"Uploaded", d.UploadedAt.Local().Format(timeLayout)},
				{"Stored at", d.Path},
				{"Chunks", strconv.Itoa(d.Chunks)},
				{"Indexed", yesNo(d.Indexed)},
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newDocumentsContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "content <id>",
		Short: "Print a document's extracted text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			content, err := a.svc.GetDocumentContent(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	}
}

func newDocumentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete documents with their chunks and vectors",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out := output.New(cmd.OutOrStdout())
			for _, id := range args {
				doc, err := a.svc.GetDocument(ctx, id)
				if err != nil {
					return err
				}
				if err := a.svc.DeleteDocument(ctx, id); err != nil {
					return err
				}
				out.Successf("Deleted %s (%s)", doc.Name, doc.ID)
			}
			return nil
		},
	}
}

func newChunksCmd() *cobra.Command {
	var (
		jsonOut bool
		full    bool
	)

	cmd := &cobra.Command{
		Use:   "chunks <document-id>",
		Short: "List a document's chunks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.svc.GetDocument(ctx, args[0]); err != nil {
				return err
			}
			chunks, err := a.svc.GetChunks(ctx, args[0])
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOut {
				if chunks == nil {
					chunks = []store.Chunk{}
				}
				return out.JSON(chunks)
			}
			if full {
				for _, c := range chunks {
					out.Statusf("#", "%d  [%d:%d]  %s", c.ChunkIndex, c.StartOffset, c.EndOffset, c.ID)
					out.Block(c.Content)
				}
				return nil
			}

			rows := make([][]string, 0, len(chunks))
			for _, c := range chunks {
				rows = append(rows, []string{
					strconv.Itoa(c.ChunkIndex),
					fmt.Sprintf("%d-%d", c.StartOffset, c.EndOffset),
					output.Truncate(c.Content, 60),
				})
			}
			return out.Table([]string{"#", "RANGE", "CONTENT"}, rows)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&full, "full", false, "Print complete chunk text")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

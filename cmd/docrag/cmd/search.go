package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/index"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	k       int
	mode    string
	jsonOut bool
	full    bool
}

// searchHit is a result joined with its document name.
type searchHit struct {
	Rank         int     `json:"rank"`
	Score        float32 `json:"score"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkID      string  `json:"chunk_id"`
	Content      string  `json:"content"`
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the chunks most similar to a query",
		Long: `Search embeds the query and ranks every stored chunk by similarity.
Only indexed documents are searched; run 'docrag index --all' first.

--mode keyword ranks by full-text relevance instead and needs no model.

Examples:
  docrag search "how often should tomatoes be watered"
  docrag search dividend --mode keyword -k 3
  docrag search "quarterly revenue" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.k, "k", "k", 0, "Number of results (default from config, 5)")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Ranking mode: semantic or keyword (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&opts.full, "full", false, "Print complete chunk text")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	modeName := opts.mode
	if modeName == "" {
		modeName = cfg.Search.Mode
	}
	mode, err := index.ParseSearchMode(modeName)
	if err != nil {
		return err
	}

	a, err := openApp(ctx, appOptions{withModel: mode == index.SearchSemantic})
	if err != nil {
		return err
	}
	defer a.Close()

	slog.Info("search_started", slog.String("mode", string(mode)), slog.Int("k", opts.k))
	results, err := a.svc.SearchWithMode(ctx, query, opts.k, mode)
	if err != nil {
		return err
	}

	hits := joinDocuments(ctx, a, results)
	out := output.New(cmd.OutOrStdout())
	if opts.jsonOut {
		return out.JSON(hits)
	}
	if len(hits) == 0 {
		out.Text("No results.")
		return nil
	}

	for _, h := range hits {
		out.Text(fmt.Sprintf("%d. [%.3f] %s  (%s)", h.Rank, h.Score, h.DocumentName, h.ChunkID))
		if opts.full {
			out.Block(h.Content)
		} else {
			out.Status("", output.Truncate(h.Content, 160))
		}
	}
	return nil
}

func joinDocuments(ctx context.Context, a *app, results []store.SearchResult) []searchHit {
	names := make(map[string]string)
	hits := make([]searchHit, 0, len(results))
	for i, r := range results {
		name, ok := names[r.DocumentID]
		if !ok {
			if doc, err := a.svc.GetDocument(ctx, r.DocumentID); err == nil {
				name = doc.Name
			}
			names[r.DocumentID] = name
		}
		hits = append(hits, searchHit{
			Rank:         i + 1,
			Score:        r.Score,
			DocumentID:   r.DocumentID,
			DocumentName: name,
			ChunkID:      r.ChunkID,
			Content:      r.Content,
		})
	}
	return hits
}

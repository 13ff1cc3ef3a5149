package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/embed"
	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/lifecycle"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/ui"
)

// modelStatus is the JSON form of `model status`.
type modelStatus struct {
	embed.EmbedderInfo
	Status     string                  `json:"status"`
	OllamaHost string                  `json:"ollama_host,omitempty"`
	Server     *lifecycle.OllamaStatus `json:"server,omitempty"`
}

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Inspect the embedding model",
	}
	cmd.AddCommand(newModelStatusCmd())
	cmd.AddCommand(newModelPullCmd())
	return cmd
}

func newModelStatusCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report the configured embedder and whether it is ready",
		Long: `Status creates the configured embedder and checks it. The static
provider is always ready; ollama is ready once the server answers and the
model is pulled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{withModel: true})
			if err != nil {
				return err
			}
			defer a.Close()

			info, state := a.modelInfo(ctx)
			st := modelStatus{EmbedderInfo: info, Status: state}
			if info.Provider == embed.ProviderOllama {
				st.OllamaHost = a.cfg.Embeddings.OllamaHost
				server, err := lifecycle.NewOllamaManager(st.OllamaHost).Status(ctx, a.cfg.Embeddings.Model)
				if err == nil {
					st.Server = server
				}
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOut {
				return out.JSON(st)
			}

			rows := [][]string{
				{"Provider", info.Provider.String()},
				{"Model", valueOr(info.Model, "-")},
				{"Dimensions", intOr(info.Dimensions, "-")},
			}
			if st.OllamaHost != "" {
				rows = append(rows, []string{"Host", st.OllamaHost})
			}
			if st.Server != nil {
				rows = append(rows,
					[]string{"Server", runningOr(st.Server.Running)},
					[]string{"Installed", yesNo(st.Server.HasModel)},
				)
			}
			rows = append(rows, []string{"Status", state})
			if err := out.Table([]string{"FIELD", "VALUE"}, rows); err != nil {
				return err
			}
			if state != "ready" {
				out.Newline()
				out.Warning("Embedder is offline; indexing and semantic search are unavailable.")
				if st.Server != nil && st.Server.Running && !st.Server.HasModel {
					out.Status("", "Download it with: docrag model pull")
				}
				out.Status("", "Keyword search still works: docrag search <query> --mode keyword")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func runningOr(running bool) string {
	if running {
		return "running"
	}
	return "not running"
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func intOr(n int, fallback string) string {
	if n <= 0 {
		return fallback
	}
	return strconv.Itoa(n)
}

func newModelPullCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "pull [model]",
		Short: "Download the embedding model into Ollama",
		Long: `Pull asks the configured Ollama server to download the embedding model
(default from config). Nothing is downloaded when it is already installed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			model := cfg.Embeddings.Model
			if len(args) == 1 {
				model = args[0]
			}
			if model == "" {
				return derrors.InputError("no model configured", nil).
					WithSuggestion("Pass a model name: docrag model pull all-minilm")
			}

			out := output.New(cmd.OutOrStdout())
			mgr := lifecycle.NewOllamaManager(cfg.Embeddings.OllamaHost)
			if wait > 0 {
				if err := mgr.WaitForReady(ctx, wait); err != nil {
					return err
				}
			}

			bar := ui.NewPullProgress(cmd.ErrOrStderr(), ui.IsTTY(cmd.ErrOrStderr()))
			lastStatus := ""
			err = mgr.PullModel(ctx, model, func(p lifecycle.PullProgress) {
				if p.Total > 0 {
					bar.Update(p.Digest, p.Completed, p.Total)
					return
				}
				if p.Status != lastStatus {
					bar.Finish()
					out.Status("", p.Status)
					lastStatus = p.Status
				}
			})
			bar.Finish()
			if err != nil {
				return err
			}

			out.Successf("%s is available on %s", model, mgr.Host())
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for Ollama to start")
	return cmd
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/embed"
	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		jsonOut bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the data directory, embedder and keyword index",
		Long: `Doctor checks that the data directory is writable with free space, that
the file descriptor limit suits 'docrag watch', that the configured
embedder answers and that the keyword index exists.

It exits non-zero only when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()), preflight.WithVerbose(verbose))
			// Writability is checked before openApp creates anything.
			if res := checker.CheckWritePermissions(cfg.DataDir); res.IsCritical() {
				return derrors.New(derrors.ErrCodeFilePermission, res.Message, nil)
			}

			a, err := openApp(ctx, appOptions{withModel: true})
			if err != nil {
				return err
			}
			defer a.Close()

			target := preflight.Target{
				DataDir:          cfg.DataDir,
				KeywordIndexPath: cfg.KeywordIndexPath(),
				Provider:         cfg.Embeddings.Provider,
			}
			if provider, _ := embed.ParseProvider(cfg.Embeddings.Provider); provider == embed.ProviderOllama {
				target.Model = cfg.Embeddings.Model
				target.Host = cfg.Embeddings.OllamaHost
			}
			if e, ok := a.model.Current().Embedder(); ok {
				target.Embedder = e
			}

			results := checker.RunAll(ctx, target)
			if jsonOut {
				if err := output.New(cmd.OutOrStdout()).JSON(results); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return derrors.ConfigError("system check failed", nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for passing checks")
	return cmd
}

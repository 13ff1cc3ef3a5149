// Package cmd provides the CLI commands for docrag.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/pkg/version"
)

// Global flags.
var (
	debugMode   bool
	dataDirFlag string
	noColor     bool
)

// NewRootCmd creates the root command for the docrag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docrag",
		Short: "Local document search with embeddings",
		Long: `docrag keeps a local library of text and markdown documents,
splits them into overlapping chunks, embeds each chunk and answers
similarity queries over them.

Everything is stored under ~/.docrag unless --data-dir is given.

  docrag upload notes.md
  docrag index --all
  docrag search "when should tomatoes be harvested"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docrag version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log at debug level and mirror logs to stderr")
	cmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (default ~/.docrag)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDocumentsCmd())
	cmd.AddCommand(newChunksCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newModelCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString(derrors.FormatForCLI(err))
	}
	return err
}

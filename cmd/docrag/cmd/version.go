package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrag/internal/output"
	"github.com/Aman-CERP/docrag/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var (
		jsonOut bool
		short   bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case short:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Version)
				return err
			case jsonOut:
				return output.New(cmd.OutOrStdout()).JSON(version.GetInfo())
			default:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Output only the version number")
	return cmd
}

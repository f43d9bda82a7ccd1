package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/ui"
	"github.com/appri/incidentdb/internal/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var latest string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
			if latest == "" {
				return nil
			}

			newer, err := version.Check(info.Version, latest)
			if err != nil {
				return err
			}
			if newer {
				ui.PrintWarning("A newer version is available: %s (current %s)", latest, info.Version)
			} else {
				ui.PrintSuccess("incidentdb is up to date")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&latest, "check", "", "Compare against this released version")

	return cmd
}

package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/config"
	"github.com/appri/incidentdb/internal/export"
	"github.com/appri/incidentdb/internal/ui"
)

// NewExportCommand creates the export command.
func NewExportCommand(a *App) *cobra.Command {
	var flags requestFlags
	var out string
	var fileType string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every matching row to a file",
		Long: fmt.Sprintf(`Run the full export query and write the result to a file.

Supported types: %s. Add ".zst" for zstd compression (e.g. csv.zst).
Unknown types fall back to csv.`, strings.Join(export.FileTypes, ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Connect(cmd.Context())
			if err != nil {
				return err
			}
			svc := c.QueryService()
			req, err := flags.request(cmd.Context(), cmd.InOrStdin(), svc)
			if err != nil {
				return err
			}
			req.FileType = fileType

			spinner, _ := ui.PrintSpinner("Running export query...")
			res, err := svc.Download(cmd.Context(), req)
			if spinner != nil {
				spinner.Stop()
			}
			if err != nil {
				return err
			}

			enc := export.ForFileType(fileType)
			if !export.Known(fileType) {
				ui.PrintWarning("Unknown file type %q, writing csv", fileType)
			}
			if out == "" {
				out = export.Filename(enc)
			} else if filepath.Ext(out) == "" {
				out += "." + enc.Extension()
			}

			f, err := config.AppFs.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := enc.Encode(f, res); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			ui.PrintSuccess("Wrote %d rows to %s", res.Len(), out)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default resultado.<ext>)")
	cmd.Flags().StringVar(&fileType, "type", export.XLSX, "Output file type")

	return cmd
}

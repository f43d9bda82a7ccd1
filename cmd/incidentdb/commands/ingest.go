package commands

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/config"
	"github.com/appri/incidentdb/internal/etl"
	"github.com/appri/incidentdb/internal/ui"
	"github.com/appri/incidentdb/internal/watch"
)

// NewIngestCommand creates the ingest command.
func NewIngestCommand(a *App) *cobra.Command {
	var dir string
	var watchDir bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load new or changed workbooks into PostgreSQL",
		Long: `Load every .xlsx workbook in the data directory that has not been
loaded before, or whose content changed since the last load. Each file is
loaded in its own transaction; a failing file does not stop the run.

With --watch, the directory is watched and the load runs again after
files are added or modified.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Container()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = c.Config().ETL.DataDir
			}

			store, err := c.IngestStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if !watchDir {
				summary, err := runIngest(cmd.Context(), dir, store)
				if err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d files failed", summary.Failed)
				}
				return nil
			}

			// Failed files are reported and retried on the next change.
			run := func() error {
				_, err := runIngest(cmd.Context(), dir, store)
				return err
			}

			w, err := watch.NewWatcher(dir, etl.IsWorkbook, run)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				w.Stop()
				return err
			}
			ui.PrintInfo("Watching %s for workbooks (Ctrl+C to stop)", dir)
			<-cmd.Context().Done()
			return w.Stop()
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory with workbooks (overrides etl.data_dir)")
	cmd.Flags().BoolVar(&watchDir, "watch", false, "Keep running and load files as they appear")

	return cmd
}

func runIngest(ctx context.Context, dir string, store etl.Store) (*etl.Summary, error) {
	var bar *pterm.ProgressbarPrinter
	pipeline := etl.NewPipeline(config.AppFs, dir, store, etl.WithProgress(func(res etl.FileResult) {
		if bar != nil {
			bar.UpdateTitle(res.Name)
			bar.Increment()
		}
		printFileResult(res)
	}))

	if files, err := pipeline.Files(); err == nil && len(files) > 0 {
		bar, _ = ui.PrintProgressBar("Loading workbooks", len(files))
	}
	summary, err := pipeline.Run(ctx)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return nil, err
	}

	ui.PrintSection("Summary")
	ui.PrintInfo("Run %s: %d processed, %d skipped, %d failed",
		summary.RunID, summary.Processed, summary.Skipped, summary.Failed)
	if r := summary.Integrity; r != nil {
		ui.PrintInfo("principal: %d rows, corporaciones: %d rows", r.Principal, r.Corporaciones)
		if !r.OK() {
			ui.PrintWarning("%d corporaciones rows have no principal row", r.Orphans)
		}
	}
	return summary, nil
}

func printFileResult(res etl.FileResult) {
	switch res.Outcome {
	case etl.OutcomeProcessed:
		ui.PrintSuccess("%s (%s): %d principal, %d corporaciones", res.Name, res.Version, res.Principal, res.Corporaciones)
	case etl.OutcomeSkipped:
		ui.PrintMuted("  %s unchanged, skipped\n", res.Name)
	default:
		ui.PrintError("%s: %v", res.Name, res.Err)
	}
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/resultset"
	"github.com/appri/incidentdb/internal/ui"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(a *App) *cobra.Command {
	var flags requestFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Preview the rows matching a filter",
		Long: `Run a filtered preview against a table and print the first rows
together with the total number of matches.

Filters combine with AND; OR starts a new group:
  incidentdb query -t principal -w "fecha >= 2023-01-01 and tipo = ROBO or folio startswith A"`,
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

			res, err := svc.Preview(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			printDropped(res.Dropped)
			headers, rows := previewTable(res.PreviewData)
			if len(rows) > 0 {
				rendered, err := ui.RenderTable(headers, rows)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, rendered)
			}
			fmt.Fprintf(out, "%d of %d rows\n", len(rows), res.TotalCount)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the preview as JSON")

	return cmd
}

func previewTable(records []resultset.Record) ([]string, [][]string) {
	if len(records) == 0 {
		return nil, nil
	}
	headers := records[0].Columns()
	rows := make([][]string, len(records))
	for i, rec := range records {
		values := rec.Values()
		row := make([]string, len(values))
		for j, v := range values {
			row[j] = resultset.Text(v)
		}
		rows[i] = row
	}
	return headers, rows
}

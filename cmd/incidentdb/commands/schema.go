package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/ui"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [table]",
		Short: "Show tables and their column types",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.Connect(cmd.Context())
			if err != nil {
				return err
			}
			schema, err := c.QueryService().Schema(cmd.Context())
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(schema))
			for name := range schema {
				tables = append(tables, name)
			}
			slices.Sort(tables)
			if len(args) == 1 {
				if _, ok := schema[args[0]]; !ok {
					return fmt.Errorf("table %q not found", args[0])
				}
				tables = args
			}

			out := cmd.OutOrStdout()
			for _, table := range tables {
				rows := make([][]string, 0, len(schema[table]))
				for _, col := range schema[table] {
					rows = append(rows, []string{col.Name, col.DataType})
				}
				rendered, err := ui.RenderTable([]string{"column", "type"}, rows)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n%s\n", table, rendered)
			}
			return nil
		},
	}

	return cmd
}

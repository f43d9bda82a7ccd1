package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/config"
	"github.com/appri/incidentdb/internal/core/filter/domain"
	"github.com/appri/incidentdb/internal/core/filter/dsl"
	"github.com/appri/incidentdb/internal/service"
	"github.com/appri/incidentdb/internal/ui"
)

// requestFlags are the flags shared by query, explain and export.
type requestFlags struct {
	table       string
	columns     []string
	where       string
	filtersFile string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.table, "table", "t", "", "Table to query (prompted when omitted on a terminal)")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "Columns to return (default all)")
	cmd.Flags().StringVarP(&f.where, "where", "w", "", `Filter expression, e.g. "fecha between 2023-01-01 and 2023-12-31 or folio startswith 'A'"`)
	cmd.Flags().StringVar(&f.filtersFile, "filters", "", "JSON file with a list of filter conditions")
	cmd.MarkFlagsMutuallyExclusive("where", "filters")
}

type schemaSource interface {
	Schema(ctx context.Context) (map[string]domain.TableSchema, error)
}

// request builds the query request, prompting for the table and columns
// when no table was given and stdin is interactive.
func (f *requestFlags) request(ctx context.Context, in io.Reader, svc schemaSource) (service.QueryRequest, error) {
	req := service.QueryRequest{Table: f.table, Columns: f.columns}

	filters, err := f.filters()
	if err != nil {
		return req, err
	}
	req.Filters = filters

	if req.Table == "" && interactive(in) {
		if err := promptTable(ctx, svc, &req); err != nil {
			return req, err
		}
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w (use --table)", err)
	}
	return req, nil
}

func (f *requestFlags) filters() ([]domain.FilterCondition, error) {
	switch {
	case f.where != "":
		conds, err := dsl.Parse(f.where)
		if err != nil {
			return nil, fmt.Errorf("invalid --where: %w", err)
		}
		return conds, nil
	case f.filtersFile != "":
		data, err := afero.ReadFile(config.AppFs, f.filtersFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read filters: %w", err)
		}
		var conds []domain.FilterCondition
		if err := json.Unmarshal(data, &conds); err != nil {
			return nil, fmt.Errorf("invalid filters file %s: %w", f.filtersFile, err)
		}
		return conds, nil
	}
	return nil, nil
}

func interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func promptTable(ctx context.Context, svc schemaSource, req *service.QueryRequest) error {
	schema, err := svc.Schema(ctx)
	if err != nil {
		return err
	}
	if len(schema) == 0 {
		return fmt.Errorf("the database has no tables")
	}
	tables := make([]string, 0, len(schema))
	for name := range schema {
		tables = append(tables, name)
	}
	slices.Sort(tables)

	if err := survey.AskOne(&survey.Select{
		Message: "Table:",
		Options: tables,
	}, &req.Table); err != nil {
		return err
	}

	if len(req.Columns) > 0 {
		return nil
	}
	columns := make([]string, len(schema[req.Table]))
	for i, col := range schema[req.Table] {
		columns[i] = col.Name
	}
	if err := survey.AskOne(&survey.MultiSelect{
		Message: "Columns (none selects all):",
		Options: columns,
	}, &req.Columns); err != nil {
		return err
	}
	ui.PrintInfo("Equivalent flags: --table %s --columns %s", req.Table, joinOrAll(req.Columns))
	return nil
}

func joinOrAll(columns []string) string {
	if len(columns) == 0 {
		return "''"
	}
	return strings.Join(columns, ",")
}

// printDropped warns about conditions that were ignored while compiling.
func printDropped(dropped []domain.DroppedCondition) {
	for _, d := range dropped {
		ui.PrintWarning("Ignored filter #%d on %q: %s", d.Index+1, d.Column, d.Reason)
	}
}

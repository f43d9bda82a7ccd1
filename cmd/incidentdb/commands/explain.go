package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appri/incidentdb/internal/service"
	"github.com/appri/incidentdb/internal/ui"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(a *App) *cobra.Command {
	var flags requestFlags
	var raw bool

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the SQL a filter compiles to without running it",
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
			exp, err := svc.Explain(cmd.Context(), req)
			if err != nil {
				return err
			}

			doc := explainMarkdown(exp)
			if raw {
				fmt.Fprint(cmd.OutOrStdout(), doc)
				return nil
			}
			rendered, err := ui.RenderMarkdown(doc)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Print plain markdown instead of rendering it")

	return cmd
}

func explainMarkdown(exp *service.Explanation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", exp.Table, exp.Dialect)

	if len(exp.Groups) > 0 {
		b.WriteString("## Groups\n\n")
		for i, g := range exp.Groups {
			fmt.Fprintf(&b, "%d. %s\n", i+1, g)
		}
		b.WriteString("\n")
	}
	if len(exp.Dropped) > 0 {
		b.WriteString("## Ignored filters\n\n")
		for _, d := range exp.Dropped {
			fmt.Fprintf(&b, "- #%d `%s`: %s\n", d.Index+1, d.Column, d.Reason)
		}
		b.WriteString("\n")
	}

	for _, s := range []struct {
		title string
		stmt  service.Statement
	}{
		{"Preview", exp.Preview},
		{"Count", exp.Count},
		{"Download", exp.Download},
	} {
		fmt.Fprintf(&b, "## %s\n\n```sql\n%s\n```\n\n", s.title, s.stmt.SQL)
		if len(s.stmt.Args) > 0 {
			args, err := json.Marshal(s.stmt.Args)
			if err != nil {
				args = []byte(fmt.Sprint(s.stmt.Args))
			}
			fmt.Fprintf(&b, "Args: `%s`\n\n", args)
		}
	}
	return b.String()
}

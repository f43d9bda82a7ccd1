// Package assembler turns a compiled filter plan into executable statements.
package assembler

import (
	"fmt"
	"strings"

	"github.com/appri/incidentdb/internal/core/filter/compiler"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// Query is a SQL statement with its positional arguments.
type Query struct {
	SQL  string
	Args []any
}

// Assembler renders preview, download and count statements for one dialect.
type Assembler struct {
	dialect domain.SQLDialect
	quote   compiler.Quoter
}

// New creates an assembler for dialect.
func New(dialect domain.SQLDialect) *Assembler {
	return &Assembler{dialect: dialect, quote: QuoterFor(dialect)}
}

// Dialect returns the target dialect.
func (a *Assembler) Dialect() domain.SQLDialect {
	return a.dialect
}

// Compile builds the plan for filters using this dialect's quoting.
func (a *Assembler) Compile(filters []domain.FilterCondition, schema domain.TableSchema) domain.QueryPlan {
	return compiler.Build(filters, schema, compiler.WithQuoter(a.quote))
}

// Preview renders the annotated statement. With a compiled plan the match
// column is projected and the CASE arguments come first, since the CASE
// clause precedes WHERE in the text. A positive limit is appended as a
// literal and never shifts the arguments.
func (a *Assembler) Preview(table string, columns []string, plan domain.QueryPlan, limit int) *Query {
	var sb strings.Builder
	var args []any

	if plan.IsEmpty() {
		fmt.Fprintf(&sb, "SELECT %s FROM %s", a.projection(table, columns, false), a.quote(table))
	} else {
		fmt.Fprintf(&sb, "SELECT %s, %s FROM %s %s",
			a.projection(table, columns, true), plan.CaseSQL, a.quote(table), plan.WhereSQL)
		args = plan.PreviewParams()
	}
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}

	return &Query{SQL: Rebind(a.dialect, sb.String()), Args: args}
}

// Download renders the statement used for exports. It never carries the
// match column and binds only the WHERE arguments.
func (a *Assembler) Download(table string, columns []string, plan domain.QueryPlan) *Query {
	sql := fmt.Sprintf("SELECT %s FROM %s", a.projection(table, columns, false), a.quote(table))
	var args []any
	if !plan.IsEmpty() {
		sql += " " + plan.WhereSQL
		args = append(args, plan.WhereOnlyParams...)
	}
	return &Query{SQL: Rebind(a.dialect, sql), Args: args}
}

// Count renders the row count of the filtered table.
func (a *Assembler) Count(table string, plan domain.QueryPlan) *Query {
	sql := "SELECT COUNT(*) FROM " + a.quote(table)
	var args []any
	if !plan.IsEmpty() {
		sql += " " + plan.WhereSQL
		args = append(args, plan.WhereOnlyParams...)
	}
	return &Query{SQL: Rebind(a.dialect, sql), Args: args}
}

// projection quotes each requested column. Names are not checked against the
// schema; a bad name fails at execution time.
func (a *Assembler) projection(table string, columns []string, qualifyStar bool) string {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		if qualifyStar {
			return a.quote(table) + ".*"
		}
		return "*"
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = a.quote(col)
	}
	return strings.Join(quoted, ", ")
}

// Package dsl parses the textual filter expressions accepted by the CLI, e.g.
//
//	folio startswith 'AB' and monto between 10 and 20 or estado = "CDMX"
//
// into the ordered condition list the compiler consumes. The connector in
// front of each condition becomes its Logical field.
package dsl

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/appri/incidentdb/internal/core/filter/domain"
)

var whereLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(and|or|between|startswith|endswith|contains)\b`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "RawString", Pattern: `'[^']*'`},
	{Name: "Operator", Pattern: `!=|>=|<=|=|>|<`},
	{Name: "Date", Pattern: `\d{4}-\d{2}-\d{2}`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type whereExpr struct {
	Head *condition `@@`
	Tail []*joined  `@@*`
}

type joined struct {
	Logical string     `@("AND" | "OR")`
	Cond    *condition `@@`
}

type condition struct {
	Column  string    `@(Ident | String | RawString)`
	Between *rangeArg `( "BETWEEN" @@`
	Op      string    `| @(Operator | "STARTSWITH" | "ENDSWITH" | "CONTAINS")`
	Value   *literal  `@@ )`
}

type rangeArg struct {
	Low  *literal `@@ "AND"`
	High *literal `@@`
}

type literal struct {
	Text string `@(String | RawString | Date | Number | Ident)`
}

var parser = participle.MustBuild[whereExpr](
	participle.Lexer(whereLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.Map(func(t lexer.Token) (lexer.Token, error) {
		t.Value = strings.TrimSuffix(strings.TrimPrefix(t.Value, "'"), "'")
		return t, nil
	}, "RawString"),
	participle.CaseInsensitive("Keyword"),
)

// Parse parses a where expression. An empty expression yields no conditions.
func Parse(input string) ([]domain.FilterCondition, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	expr, err := parser.ParseString("where", input)
	if err != nil {
		return nil, fmt.Errorf("parse where expression: %w", err)
	}

	conds := make([]domain.FilterCondition, 0, 1+len(expr.Tail))
	conds = append(conds, expr.Head.toCondition(domain.AND))
	for _, j := range expr.Tail {
		logical, ok := domain.ParseLogical(j.Logical)
		if !ok {
			return nil, fmt.Errorf("parse where expression: unknown connector %q", j.Logical)
		}
		conds = append(conds, j.Cond.toCondition(logical))
	}
	return conds, nil
}

func (c *condition) toCondition(logical domain.Logical) domain.FilterCondition {
	fc := domain.FilterCondition{Column: c.Column, Logical: logical}
	if c.Between != nil {
		fc.Operator = domain.Between
		fc.Value = domain.Range(c.Between.Low.Text, c.Between.High.Text)
		return fc
	}
	fc.Operator = domain.Operator(strings.ToLower(c.Op))
	fc.Value = domain.Single(c.Value.Text)
	return fc
}

// Format renders conditions back into a where expression. Values are always
// double-quoted.
func Format(conds []domain.FilterCondition) string {
	var sb strings.Builder
	for i, c := range conds {
		if i > 0 {
			logical := c.Logical
			if logical == "" {
				logical = domain.AND
			}
			sb.WriteString(" " + strings.ToLower(string(logical)) + " ")
		}
		sb.WriteString(formatIdent(c.Column))
		if low, high, ok := c.Value.AsRange(); ok && c.Operator == domain.Between {
			fmt.Fprintf(&sb, " between %q and %q", low, high)
			continue
		}
		fmt.Fprintf(&sb, " %s %q", c.Operator, c.Value.String())
	}
	return sb.String()
}

func formatIdent(name string) string {
	tokens, err := whereLexer.Lex("", strings.NewReader(name))
	if err != nil {
		return fmt.Sprintf("%q", name)
	}
	first, err := tokens.Next()
	if err != nil || first.Type != whereLexer.Symbols()["Ident"] || first.Value != name {
		return fmt.Sprintf("%q", name)
	}
	return name
}

package assembler

import (
	"strconv"
	"strings"

	"github.com/appri/incidentdb/internal/core/filter/compiler"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// QuoterFor returns the identifier quoter of dialect. SQLite reads an
// unresolvable double-quoted identifier as a string literal, so it gets
// backticks, which it always treats as identifiers.
func QuoterFor(dialect domain.SQLDialect) compiler.Quoter {
	switch dialect {
	case domain.MySQL, domain.SQLite:
		return quoteBacktick
	default:
		return compiler.QuoteIdent
	}
}

func quoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// usesNumbered reports whether dialect binds $1..$n instead of '?'.
func usesNumbered(dialect domain.SQLDialect) bool {
	return dialect == domain.PostgreSQL || dialect == domain.DuckDB
}

// Rebind rewrites '?' placeholders for dialect. Question marks inside quoted
// literals or identifiers are left alone.
func Rebind(dialect domain.SQLDialect, sql string) string {
	if !usesNumbered(dialect) || !strings.Contains(sql, "?") {
		return sql
	}

	var sb strings.Builder
	sb.Grow(len(sql) + 8)
	argIndex := 1
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			// A doubled quote is an escaped quote and keeps us inside.
			if c == quote {
				if i+1 < len(sql) && sql[i+1] == quote {
					sb.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
			sb.WriteByte(c)
		case c == '\'' || c == '"' || c == '`':
			quote = c
			sb.WriteByte(c)
		case c == '?':
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIndex))
			argIndex++
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

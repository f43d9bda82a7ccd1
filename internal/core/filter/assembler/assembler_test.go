package assembler_test

import (
	"strings"
	"testing"

	"github.com/appri/incidentdb/internal/core/filter/assembler"
	"github.com/appri/incidentdb/internal/core/filter/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schema = domain.TableSchema{
	{Name: "folio", DataType: "text"},
	{Name: "monto", DataType: "integer"},
	{Name: "estado", DataType: "character varying"},
}

var filters = []domain.FilterCondition{
	{Column: "folio", Operator: domain.StartsWith, Value: domain.Single("ab")},
	{Column: "monto", Operator: domain.Between, Value: domain.Range("1", "5"), Logical: domain.OR},
	{Column: "estado", Operator: domain.Eq, Value: domain.Single("cdmx")},
}

func TestPreview_PostgreSQL(t *testing.T) {
	a := assembler.New(domain.PostgreSQL)
	plan := a.Compile(filters, schema)

	q := a.Preview("principal", []string{"folio", "monto"}, plan, 20)

	assert.Equal(t,
		`SELECT "folio", "monto", (CASE WHEN (UPPER("folio") LIKE $1) THEN $2 `+
			`WHEN ("monto" BETWEEN $3 AND $4 AND UPPER("estado") = $5) THEN $6 `+
			`ELSE 'Coincidencia no agrupada' END) AS "Coincidencia de Filtro" `+
			`FROM "principal" WHERE (UPPER("folio") LIKE $7) OR ("monto" BETWEEN $8 AND $9 AND UPPER("estado") = $10) LIMIT 20`,
		q.SQL)
	assert.Equal(t, []any{
		"AB%", "folio: ab",
		int64(1), int64(5), "CDMX", "monto: 1 / 5; estado: cdmx",
		"AB%", int64(1), int64(5), "CDMX",
	}, q.Args)
}

func TestPreview_StarIsQualifiedWhenAnnotated(t *testing.T) {
	a := assembler.New(domain.SQLite)
	plan := a.Compile(filters[:1], schema)

	q := a.Preview("principal", nil, plan, 0)
	assert.True(t, strings.HasPrefix(q.SQL, "SELECT `principal`.*, (CASE WHEN"), q.SQL)
	assert.Equal(t, strings.Count(q.SQL, "?"), len(q.Args))

	q = a.Preview("principal", []string{"*"}, plan, 0)
	assert.True(t, strings.HasPrefix(q.SQL, "SELECT `principal`.*, "), q.SQL)
}

func TestPreview_Unfiltered(t *testing.T) {
	a := assembler.New(domain.PostgreSQL)
	plan := a.Compile(nil, schema)

	q := a.Preview("principal", nil, plan, 20)
	assert.Equal(t, `SELECT * FROM "principal" LIMIT 20`, q.SQL)
	assert.Empty(t, q.Args)
	assert.NotContains(t, q.SQL, domain.MatchColumn)
}

func TestDownload(t *testing.T) {
	a := assembler.New(domain.PostgreSQL)
	plan := a.Compile(filters, schema)

	q := a.Download("principal", nil, plan)
	assert.Equal(t,
		`SELECT * FROM "principal" WHERE (UPPER("folio") LIKE $1) OR ("monto" BETWEEN $2 AND $3 AND UPPER("estado") = $4)`,
		q.SQL)
	assert.Equal(t, plan.WhereOnlyParams, q.Args)
	assert.NotContains(t, q.SQL, "CASE")

	unfiltered := a.Download("principal", []string{"folio"}, a.Compile(nil, schema))
	assert.Equal(t, `SELECT "folio" FROM "principal"`, unfiltered.SQL)
	assert.Empty(t, unfiltered.Args)
}

func TestCount(t *testing.T) {
	a := assembler.New(domain.SQLite)
	plan := a.Compile(filters[2:], schema)

	q := a.Count("principal", plan)
	assert.Equal(t, "SELECT COUNT(*) FROM `principal` WHERE (UPPER(`estado`) = ?)", q.SQL)
	assert.Equal(t, []any{"CDMX"}, q.Args)
}

func TestMySQLQuoting(t *testing.T) {
	a := assembler.New(domain.MySQL)
	plan := a.Compile(filters[:1], schema)

	q := a.Preview("principal", []string{"folio"}, plan, 0)
	assert.Equal(t,
		"SELECT `folio`, (CASE WHEN (UPPER(`folio`) LIKE ?) THEN ? ELSE 'Coincidencia no agrupada' END) "+
			"AS `Coincidencia de Filtro` FROM `principal` WHERE (UPPER(`folio`) LIKE ?)",
		q.SQL)
	assert.Len(t, q.Args, 3)
}

func TestQuoterFor(t *testing.T) {
	tests := map[domain.SQLDialect]string{
		domain.PostgreSQL: `"a""b"`,
		domain.DuckDB:     `"a""b"`,
		domain.MySQL:      "`a\"b`",
		domain.SQLite:     "`a\"b`",
	}
	for dialect, want := range tests {
		assert.Equal(t, want, assembler.QuoterFor(dialect)(`a"b`), dialect)
	}
	assert.Equal(t, "`a``b`", assembler.QuoterFor(domain.SQLite)("a`b"))
}

func TestPlaceholderAlignment(t *testing.T) {
	for _, dialect := range []domain.SQLDialect{domain.PostgreSQL, domain.MySQL, domain.SQLite, domain.DuckDB} {
		t.Run(string(dialect), func(t *testing.T) {
			a := assembler.New(dialect)
			plan := a.Compile(filters, schema)

			for _, q := range []*assembler.Query{
				a.Preview("t", nil, plan, 10),
				a.Download("t", nil, plan),
				a.Count("t", plan),
			} {
				require.NotNil(t, q)
				assert.Equal(t, placeholders(dialect, q.SQL), len(q.Args), q.SQL)
			}
		})
	}
}

func placeholders(dialect domain.SQLDialect, sql string) int {
	if dialect == domain.PostgreSQL || dialect == domain.DuckDB {
		return strings.Count(sql, "$")
	}
	return strings.Count(sql, "?")
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect domain.SQLDialect
		input   string
		want    string
	}{
		{"postgres numbers in order", domain.PostgreSQL, "a = ? AND b = ?", "a = $1 AND b = $2"},
		{"skips string literal", domain.PostgreSQL, "a = '?' AND b = ?", "a = '?' AND b = $1"},
		{"skips escaped quote", domain.PostgreSQL, "a = 'it''s?' OR b = ?", "a = 'it''s?' OR b = $1"},
		{"skips quoted identifier", domain.DuckDB, `"what?" = ?`, `"what?" = $1`},
		{"sqlite unchanged", domain.SQLite, "a = ?", "a = ?"},
		{"mysql unchanged", domain.MySQL, "a = ?", "a = ?"},
		{"no placeholders", domain.PostgreSQL, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, assembler.Rebind(tt.dialect, tt.input))
		})
	}
}

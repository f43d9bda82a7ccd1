// Package catalog reads live table and column metadata from the database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/appri/incidentdb/internal/core/filter/assembler"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// ErrUnsupportedProvider is returned for dialects without a catalog query.
var ErrUnsupportedProvider = errors.New("unsupported catalog provider")

// Provider returns the live column metadata of tables. An unknown table
// yields an empty schema, not an error.
type Provider interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) (domain.TableSchema, error)
	Schema(ctx context.Context) (map[string]domain.TableSchema, error)
}

// Querier is the subset of a database adapter the catalog needs.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	GetDialect() domain.SQLDialect
}

type queries struct {
	tables  string
	columns string
	// scoped reports whether the queries take the schema as first argument.
	scoped bool
}

var dialectQueries = map[domain.SQLDialect]queries{
	domain.PostgreSQL: {
		tables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema()) AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema()) AND table_name = ?
			ORDER BY ordinal_position`,
		scoped: true,
	},
	domain.DuckDB: {
		tables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema()) AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = COALESCE(NULLIF(?, ''), current_schema()) AND table_name = ?
			ORDER BY ordinal_position`,
		scoped: true,
	},
	domain.MySQL: {
		tables: `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columns: `SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`,
	},
	domain.SQLite: {
		tables: `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		columns: `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
	},
}

// SQLCatalog implements Provider with information_schema or pragma queries.
type SQLCatalog struct {
	db      Querier
	dialect domain.SQLDialect
	schema  string
	q       queries
}

// New creates a catalog for the adapter's dialect. schema scopes PostgreSQL
// and DuckDB lookups; empty means the connection's current schema.
func New(db Querier, schema string) (*SQLCatalog, error) {
	dialect := db.GetDialect()
	q, ok := dialectQueries[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, dialect)
	}
	return &SQLCatalog{db: db, dialect: dialect, schema: schema, q: q}, nil
}

// Tables lists the base tables.
func (c *SQLCatalog) Tables(ctx context.Context) ([]string, error) {
	var args []any
	if c.q.scoped {
		args = append(args, c.schema)
	}
	rows, err := c.db.Query(ctx, assembler.Rebind(c.dialect, c.q.tables), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns the ordered columns of table with type names normalized to
// the vocabulary the coercer understands.
func (c *SQLCatalog) Columns(ctx context.Context, table string) (domain.TableSchema, error) {
	args := []any{table}
	if c.q.scoped {
		args = []any{c.schema, table}
	}
	rows, err := c.db.Query(ctx, assembler.Rebind(c.dialect, c.q.columns), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns of %s: %w", table, err)
	}
	defer rows.Close()

	schema := domain.TableSchema{}
	for rows.Next() {
		var col domain.ColumnSchema
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.DataType = NormalizeType(c.dialect, col.DataType)
		schema = append(schema, col)
	}
	return schema, rows.Err()
}

// Schema returns every table with its columns.
func (c *SQLCatalog) Schema(ctx context.Context) (map[string]domain.TableSchema, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.TableSchema, len(tables))
	for _, t := range tables {
		cols, err := c.Columns(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = cols
	}
	return out, nil
}

var typeArgs = regexp.MustCompile(`\s*\(.*\)\s*$`)

// typeAliases maps engine-specific names onto PostgreSQL's information_schema
// vocabulary.
var typeAliases = map[string]string{
	"int":       "integer",
	"int4":      "integer",
	"mediumint": "integer",
	"int8":      "bigint",
	"hugeint":   "bigint",
	"int2":      "smallint",
	"tinyint":   "smallint",
	"decimal":   "numeric",
	"double":    "double precision",
	"float8":    "double precision",
	"float":     "real",
	"float4":    "real",
	"datetime":  "timestamp without time zone",
	"string":    "text",
}

// NormalizeType lower-cases a declared type and maps engine aliases. The
// PostgreSQL catalog already reports canonical names and is left as is.
func NormalizeType(dialect domain.SQLDialect, dataType string) string {
	if dialect == domain.PostgreSQL {
		return dataType
	}
	t := strings.ToLower(strings.TrimSpace(dataType))
	base := typeArgs.ReplaceAllString(strings.TrimSuffix(t, " unsigned"), "")
	if alias, ok := typeAliases[base]; ok {
		return alias
	}
	if base == "integer" || base == "bigint" || base == "smallint" || base == "numeric" || base == "real" {
		return base
	}
	return t
}

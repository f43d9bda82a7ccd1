package catalog_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/adapters/database/sqlite"
	"github.com/appri/incidentdb/internal/core/catalog"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

func newSQLite(t *testing.T) *sqlite.SQLiteAdapter {
	t.Helper()
	ctx := context.Background()
	a, err := sqlite.NewSQLiteAdapter(database.Config{URL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, a.Connect(ctx))
	t.Cleanup(func() { a.Disconnect(ctx) })

	for _, stmt := range []string{
		`CREATE TABLE principal (folio VARCHAR(20) PRIMARY KEY, fecha DATE, monto INT, tasa DOUBLE, descripcion TEXT)`,
		`CREATE TABLE corporaciones (id INTEGER PRIMARY KEY, folio TEXT REFERENCES principal(folio), corporacion TEXT)`,
	} {
		_, err := a.Execute(ctx, stmt)
		require.NoError(t, err)
	}
	return a
}

func TestSQLCatalog_SQLite(t *testing.T) {
	ctx := context.Background()
	cat, err := catalog.New(newSQLite(t), "")
	require.NoError(t, err)

	tables, err := cat.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"corporaciones", "principal"}, tables)

	cols, err := cat.Columns(ctx, "principal")
	require.NoError(t, err)
	assert.Equal(t, domain.TableSchema{
		{Name: "folio", DataType: "varchar(20)"},
		{Name: "fecha", DataType: "date"},
		{Name: "monto", DataType: "integer"},
		{Name: "tasa", DataType: "double precision"},
		{Name: "descripcion", DataType: "text"},
	}, cols)

	missing, err := cat.Columns(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)

	all, err := cat.Schema(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, []string{"id", "folio", "corporacion"}, all["corporaciones"].Names())
}

type fakeQuerier struct{ dialect domain.SQLDialect }

func (f fakeQuerier) Query(context.Context, string, ...any) (*sql.Rows, error) { return nil, nil }
func (f fakeQuerier) GetDialect() domain.SQLDialect                            { return f.dialect }

func TestNew_Unsupported(t *testing.T) {
	_, err := catalog.New(fakeQuerier{dialect: "oracle"}, "")
	assert.True(t, errors.Is(err, catalog.ErrUnsupportedProvider))
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		dialect domain.SQLDialect
		in      string
		want    string
	}{
		{domain.MySQL, "int", "integer"},
		{domain.MySQL, "int unsigned", "integer"},
		{domain.MySQL, "decimal(10,2)", "numeric"},
		{domain.MySQL, "datetime", "timestamp without time zone"},
		{domain.MySQL, "varchar", "varchar"},
		{domain.DuckDB, "DOUBLE", "double precision"},
		{domain.DuckDB, "VARCHAR", "varchar"},
		{domain.DuckDB, "BIGINT", "bigint"},
		{domain.SQLite, "INTEGER", "integer"},
		{domain.PostgreSQL, "character varying", "character varying"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, catalog.NormalizeType(tt.dialect, tt.in), "%s %s", tt.dialect, tt.in)
	}
}

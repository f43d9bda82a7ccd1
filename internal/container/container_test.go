package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/config"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Database: config.DatabaseConfig{Provider: config.ProviderSQLite, URL: ":memory:"},
		Query:    config.QueryConfig{PreviewLimit: 5, PlanCacheSize: 8},
	}
}

func TestNewDatabaseAdapter(t *testing.T) {
	tests := map[string]domain.SQLDialect{
		"postgresql": domain.PostgreSQL,
		"mysql":      domain.MySQL,
		"sqlite3":    domain.SQLite,
		"duckdb":     domain.DuckDB,
	}
	for provider, dialect := range tests {
		a, err := NewDatabaseAdapter(database.Config{Provider: provider, URL: "x"})
		require.NoError(t, err, provider)
		assert.Equal(t, dialect, a.GetDialect(), provider)
	}

	_, err := NewDatabaseAdapter(database.Config{Provider: "oracle"})
	assert.ErrorContains(t, err, "unsupported database provider")
}

func TestContainer_ConnectAndQuery(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(sqliteConfig())
	require.NoError(t, err)
	assert.Nil(t, c.QueryService())

	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Connect(ctx), "connect is idempotent")
	defer c.Close(ctx)

	_, err = c.Database().Execute(ctx, "CREATE TABLE principal (folio TEXT, tipo TEXT)")
	require.NoError(t, err)

	schema, err := c.QueryService().Schema(ctx)
	require.NoError(t, err)
	assert.Contains(t, schema, "principal")
	assert.NotNil(t, c.Catalog())
}

func TestContainer_IngestRequiresPostgres(t *testing.T) {
	c, err := NewContainer(sqliteConfig())
	require.NoError(t, err)
	_, err = c.IngestStore(context.Background())
	assert.ErrorContains(t, err, "requires a postgres database")
}

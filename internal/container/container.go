// Package container provides dependency injection.
package container

import (
	"context"
	"fmt"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/adapters/database/duckdb"
	"github.com/appri/incidentdb/internal/adapters/database/mysql"
	"github.com/appri/incidentdb/internal/adapters/database/postgres"
	"github.com/appri/incidentdb/internal/adapters/database/sqlite"
	"github.com/appri/incidentdb/internal/config"
	"github.com/appri/incidentdb/internal/core/catalog"
	"github.com/appri/incidentdb/internal/etl"
	"github.com/appri/incidentdb/internal/service"
)

// Container holds all application dependencies.
type Container struct {
	config *config.Config

	dbAdapter database.Adapter

	catalog      *catalog.SQLCatalog
	queryService *service.QueryService
}

// NewContainer creates a container. The database is not contacted until
// Connect.
func NewContainer(cfg *config.Config) (*Container, error) {
	adapter, err := NewDatabaseAdapter(cfg.Database.AdapterConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create database adapter: %w", err)
	}
	return &Container{config: cfg, dbAdapter: adapter}, nil
}

// Connect opens the database and builds the query service.
func (c *Container) Connect(ctx context.Context) error {
	if c.queryService != nil {
		return nil
	}
	if err := c.dbAdapter.Connect(ctx); err != nil {
		return err
	}

	cat, err := catalog.New(c.dbAdapter, c.config.Database.Schema)
	if err != nil {
		c.dbAdapter.Disconnect(ctx)
		return err
	}
	c.catalog = cat

	q := c.config.Query
	c.queryService = service.NewQueryService(c.dbAdapter, cat,
		service.WithPreviewLimit(q.PreviewLimit),
		service.WithPlanCache(q.PlanCacheSize, q.PlanCacheTTL),
	)
	return nil
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Database returns the database adapter.
func (c *Container) Database() database.Adapter {
	return c.dbAdapter
}

// Catalog returns the schema catalog. Nil before Connect.
func (c *Container) Catalog() *catalog.SQLCatalog {
	return c.catalog
}

// QueryService returns the query service. Nil before Connect.
func (c *Container) QueryService() *service.QueryService {
	return c.queryService
}

// IngestStore opens the bulk-load store. Only PostgreSQL is supported.
func (c *Container) IngestStore(ctx context.Context) (etl.Store, error) {
	if c.config.Database.Provider != config.ProviderPostgres {
		return nil, fmt.Errorf("ingest requires a postgres database, got %s", c.config.Database.Provider)
	}
	return etl.NewPgStore(ctx, c.config.Database.AdapterConfig())
}

// Close cleans up resources.
func (c *Container) Close(ctx context.Context) error {
	if c.queryService == nil {
		return nil
	}
	c.queryService = nil
	return c.dbAdapter.Disconnect(ctx)
}

// NewDatabaseAdapter creates the appropriate database adapter based on provider.
func NewDatabaseAdapter(cfg database.Config) (database.Adapter, error) {
	var adapter database.Adapter
	var err error

	switch config.NormalizeProvider(cfg.Provider) {
	case config.ProviderPostgres:
		adapter, err = postgres.NewPostgresAdapter(cfg)
	case config.ProviderMySQL:
		adapter, err = mysql.NewMySQLAdapter(cfg)
	case config.ProviderSQLite:
		adapter, err = sqlite.NewSQLiteAdapter(cfg)
	case config.ProviderDuckDB:
		adapter, err = duckdb.NewDuckDBAdapter(cfg)
	default:
		return nil, fmt.Errorf("unsupported database provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}

	return adapter, nil
}

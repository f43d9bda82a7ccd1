// Package duckdb implements the DuckDB database adapter, used to query local
// analytical copies of the incident tables.
package duckdb

import (
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// DuckDBAdapter implements the database.Adapter interface for DuckDB.
type DuckDBAdapter struct {
	*database.SQLAdapter
}

// NewDuckDBAdapter creates a new DuckDB adapter.
func NewDuckDBAdapter(config database.Config) (*DuckDBAdapter, error) {
	return &DuckDBAdapter{
		SQLAdapter: database.NewSQLAdapter("duckdb", domain.DuckDB, config, database.Hooks{DSN: DSN}),
	}, nil
}

// DSN strips a duckdb:// prefix. An empty path or ":memory:" opens an
// in-memory database.
func DSN(cfg database.Config) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(cfg.URL), "duckdb://")
	if raw == ":memory:" {
		raw = ""
	}
	return raw, nil
}

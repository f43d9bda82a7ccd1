// Package sqlite implements the SQLite database adapter.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// SQLiteAdapter implements the database.Adapter interface for SQLite.
type SQLiteAdapter struct {
	*database.SQLAdapter
}

// NewSQLiteAdapter creates a new SQLite adapter.
func NewSQLiteAdapter(config database.Config) (*SQLiteAdapter, error) {
	return &SQLiteAdapter{
		SQLAdapter: database.NewSQLAdapter("sqlite3", domain.SQLite, config, database.Hooks{
			DSN: DSN,
			// A single connection keeps writes serialized and lets
			// ":memory:" databases survive across statements.
			Pool: func(db *sql.DB, _ database.Config) {
				db.SetMaxOpenConns(1)
				db.SetMaxIdleConns(1)
				db.SetConnMaxIdleTime(0)
			},
			AfterConnect: func(ctx context.Context, db *sql.DB) error {
				if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
					return fmt.Errorf("failed to enable foreign keys: %w", err)
				}
				return nil
			},
		}),
	}, nil
}

// DSN strips sqlite:// style prefixes; the rest is a path or a file: URI.
func DSN(cfg database.Config) (string, error) {
	raw := strings.TrimSpace(cfg.URL)
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(raw, prefix) {
			raw = strings.TrimPrefix(raw, prefix)
			break
		}
	}
	if raw == "" {
		return "", fmt.Errorf("empty database path")
	}
	return raw, nil
}

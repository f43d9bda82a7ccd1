// Package database defines the database adapter interface used to run
// compiled statements and read the live catalog.
package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// ErrNotConnected is returned by adapters used before Connect.
var ErrNotConnected = errors.New("database not connected")

// Adapter defines the database adapter interface.
type Adapter interface {
	// Connect establishes a database connection.
	Connect(ctx context.Context) error

	// Disconnect closes the database connection.
	Disconnect(ctx context.Context) error

	// Execute executes a SQL statement.
	Execute(ctx context.Context, query string, args ...any) (sql.Result, error)

	// Query executes a query that returns rows.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// QueryRow executes a query that returns a single row.
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row

	// Begin starts a transaction.
	Begin(ctx context.Context) (Transaction, error)

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetDialect returns the SQL dialect.
	GetDialect() domain.SQLDialect
}

// Transaction defines the transaction interface.
type Transaction interface {
	Commit() error
	Rollback() error
	Execute(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Config holds database connection configuration.
type Config struct {
	Provider       string
	URL            string
	Schema         string
	MaxConnections int
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
	Retry          RetryConfig
}

// withDefaults fills zero values with usable settings.
func (c Config) withDefaults() Config {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if c.MaxIdleTime <= 0 {
		c.MaxIdleTime = 5 * time.Minute
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetryConfig()
	}
	return c
}

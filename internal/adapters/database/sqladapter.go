package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/appri/incidentdb/internal/core/filter/domain"
	"github.com/appri/incidentdb/internal/debug"
)

// Hooks customize a SQLAdapter for one driver.
type Hooks struct {
	// DSN rewrites the configured URL into what the driver expects.
	DSN func(cfg Config) (string, error)
	// Pool overrides pool settings after the defaults are applied.
	Pool func(db *sql.DB, cfg Config)
	// AfterConnect runs once on a freshly pinged pool.
	AfterConnect func(ctx context.Context, db *sql.DB) error
}

// SQLAdapter implements Adapter over database/sql. Driver packages embed it.
type SQLAdapter struct {
	db      *sql.DB
	driver  string
	dialect domain.SQLDialect
	config  Config
	hooks   Hooks
}

// NewSQLAdapter creates an adapter for a registered database/sql driver.
func NewSQLAdapter(driver string, dialect domain.SQLDialect, cfg Config, hooks Hooks) *SQLAdapter {
	return &SQLAdapter{
		driver:  driver,
		dialect: dialect,
		config:  cfg.withDefaults(),
		hooks:   hooks,
	}
}

// Config returns the effective configuration.
func (a *SQLAdapter) Config() Config {
	return a.config
}

// Connect opens the pool and pings it, retrying with backoff.
func (a *SQLAdapter) Connect(ctx context.Context) error {
	dsn := a.config.URL
	if a.hooks.DSN != nil {
		var err error
		if dsn, err = a.hooks.DSN(a.config); err != nil {
			return fmt.Errorf("invalid %s url: %w", a.dialect, err)
		}
	}

	db, err := sql.Open(a.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(a.config.MaxConnections)
	db.SetMaxIdleConns(max(a.config.MaxConnections/2, 1))
	db.SetConnMaxIdleTime(a.config.MaxIdleTime)
	if a.hooks.Pool != nil {
		a.hooks.Pool(db, a.config)
	}

	err = Retry(ctx, a.config.Retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, a.config.ConnectTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if a.hooks.AfterConnect != nil {
		if err := a.hooks.AfterConnect(ctx, db); err != nil {
			db.Close()
			return err
		}
	}

	debug.Debug("database connected", "dialect", a.dialect, "max_connections", a.config.MaxConnections)
	a.db = db
	return nil
}

// Disconnect closes the database connection.
func (a *SQLAdapter) Disconnect(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Execute executes a statement without returning rows.
func (a *SQLAdapter) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}
	return a.db.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (a *SQLAdapter) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}
	debug.Debug("query", "sql", query, "args", len(args))
	return a.db.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns a single row.
func (a *SQLAdapter) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	if a.db == nil {
		return nil
	}
	return a.db.QueryRowContext(ctx, query, args...)
}

// Begin starts a new transaction.
func (a *SQLAdapter) Begin(ctx context.Context) (Transaction, error) {
	if a.db == nil {
		return nil, ErrNotConnected
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &sqlTransaction{tx: tx}, nil
}

// Ping checks if the database connection is alive.
func (a *SQLAdapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return ErrNotConnected
	}
	return a.db.PingContext(ctx)
}

// GetDialect returns the SQL dialect.
func (a *SQLAdapter) GetDialect() domain.SQLDialect {
	return a.dialect
}

// DB exposes the pool for components that need the raw handle.
func (a *SQLAdapter) DB() *sql.DB {
	return a.db
}

type sqlTransaction struct {
	tx *sql.Tx
}

func (t *sqlTransaction) Commit() error   { return t.tx.Commit() }
func (t *sqlTransaction) Rollback() error { return t.tx.Rollback() }

func (t *sqlTransaction) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqlTransaction) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

var _ Adapter = (*SQLAdapter)(nil)

package etl

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/adapters/database/postgres"
	"github.com/appri/incidentdb/internal/debug"
)

// PgStore loads batches into PostgreSQL with COPY.
type PgStore struct {
	pool   *pgxpool.Pool
	schema string
}

var _ Store = (*PgStore)(nil)

// NewPgStore opens a pgx pool. The schema, when set, is created on
// EnsureSchema and placed first on the search_path.
func NewPgStore(ctx context.Context, cfg database.Config) (*PgStore, error) {
	dsn, err := postgres.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	var pool *pgxpool.Pool
	err = database.Retry(ctx, cfg.Retry, func(ctx context.Context) error {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &PgStore{pool: pool, schema: cfg.Schema}, nil
}

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if s.schema != "" {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{s.schema}.Sanitize()
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", s.schema, err)
		}
	}
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	for _, stmt := range indexStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			debug.Warn("failed to create index", "statement", stmt, "error", err)
		}
	}
	return nil
}

func (s *PgStore) ProcessedFiles(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, selectProcessedFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	defer rows.Close()

	files := make(map[string]string)
	for rows.Next() {
		var name, hash string
		if err := rows.Scan(&name, &hash); err != nil {
			return nil, err
		}
		files[name] = hash
	}
	return files, rows.Err()
}

func (s *PgStore) ExistingFolios(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, selectFolios)
	if err != nil {
		return nil, fmt.Errorf("failed to read folios: %w", err)
	}
	defer rows.Close()

	folios := make(map[string]struct{})
	for rows.Next() {
		var folio string
		if err := rows.Scan(&folio); err != nil {
			return nil, err
		}
		folios[folio] = struct{}{}
	}
	return folios, rows.Err()
}

// Load copies both tables and records the file inside a single transaction,
// so a failed file leaves nothing behind and is retried on the next run.
func (s *PgStore) Load(ctx context.Context, batch Batch) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := copyRecords(ctx, tx, "principal", PrincipalColumns, batch.Principal); err != nil {
		return err
	}
	if err := copyRecords(ctx, tx, "corporaciones", CorporacionesColumns, batch.Corporaciones); err != nil {
		return err
	}

	f := batch.File
	if _, err := tx.Exec(ctx, insertFileRecord,
		f.Filename, f.Hash, f.ProcessedAt, string(f.Version), f.Principal, f.Corporaciones); err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}
	return tx.Commit(ctx)
}

func copyRecords(ctx context.Context, tx pgx.Tx, table string, columns []string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = rec.Values(columns)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy into %s: %w", table, err)
	}
	debug.Debug("copied rows", "table", table, "rows", n)
	return nil
}

func (s *PgStore) VerifyIntegrity(ctx context.Context) (IntegrityReport, error) {
	var r IntegrityReport
	for _, q := range []struct {
		sql  string
		dest *int64
	}{
		{countOrphans, &r.Orphans},
		{countPrincipal, &r.Principal},
		{countCorporaciones, &r.Corporaciones},
	} {
		if err := s.pool.QueryRow(ctx, q.sql).Scan(q.dest); err != nil {
			return IntegrityReport{}, fmt.Errorf("failed to verify integrity: %w", err)
		}
	}
	return r, nil
}

func (s *PgStore) Close() {
	s.pool.Close()
}

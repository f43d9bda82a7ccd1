// Package postgres implements the PostgreSQL database adapter.
package postgres

import (
	"net/url"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// PostgresAdapter implements the database.Adapter interface for PostgreSQL.
type PostgresAdapter struct {
	*database.SQLAdapter
}

// NewPostgresAdapter creates a new PostgreSQL adapter.
func NewPostgresAdapter(config database.Config) (*PostgresAdapter, error) {
	return &PostgresAdapter{
		SQLAdapter: database.NewSQLAdapter("postgres", domain.PostgreSQL, config, database.Hooks{DSN: DSN}),
	}, nil
}

// DSN normalizes a connection URL for lib/pq. Driver suffixes such as
// "postgresql+psycopg2://" are dropped and, when a schema is configured, it
// is put first on the search_path so unqualified table names resolve to it.
func DSN(cfg database.Config) (string, error) {
	raw := strings.TrimSpace(cfg.URL)
	if scheme, rest, ok := strings.Cut(raw, "://"); ok {
		if base, _, found := strings.Cut(scheme, "+"); found {
			raw = base + "://" + rest
		}
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		if cfg.Schema != "" {
			q := u.Query()
			if q.Get("search_path") == "" {
				q.Set("search_path", cfg.Schema+",public")
				u.RawQuery = q.Encode()
			}
		}
		return u.String(), nil
	}

	// key=value form
	if cfg.Schema != "" && !strings.Contains(raw, "search_path=") {
		raw = strings.TrimSpace(raw + " search_path=" + cfg.Schema + ",public")
	}
	return raw, nil
}

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  database.Config
		want string
	}{
		{
			name: "driver suffix dropped",
			cfg:  database.Config{URL: "postgresql+psycopg2://u:p@localhost:5432/app_sql"},
			want: "postgresql://u:p@localhost:5432/app_sql",
		},
		{
			name: "schema added to search path",
			cfg:  database.Config{URL: "postgres://localhost/app_sql?sslmode=disable", Schema: "app_sql"},
			want: "postgres://localhost/app_sql?search_path=app_sql%2Cpublic&sslmode=disable",
		},
		{
			name: "explicit search path kept",
			cfg:  database.Config{URL: "postgres://localhost/db?search_path=x", Schema: "app_sql"},
			want: "postgres://localhost/db?search_path=x",
		},
		{
			name: "key value form",
			cfg:  database.Config{URL: "host=localhost dbname=app_sql", Schema: "app_sql"},
			want: "host=localhost dbname=app_sql search_path=app_sql,public",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPostgresAdapter(t *testing.T) {
	a, err := NewPostgresAdapter(database.Config{URL: "postgres://localhost/db"})
	require.NoError(t, err)
	assert.Equal(t, domain.PostgreSQL, a.GetDialect())
	assert.Nil(t, a.DB())
}

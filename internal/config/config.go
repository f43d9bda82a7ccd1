// Package config loads settings from a config file, .env files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/appri/incidentdb/internal/adapters/database"
)

var AppFs = afero.NewOsFs()

// Supported providers.
const (
	ProviderPostgres = "postgres"
	ProviderMySQL    = "mysql"
	ProviderSQLite   = "sqlite"
	ProviderDuckDB   = "duckdb"
)

var providers = []string{ProviderPostgres, ProviderMySQL, ProviderSQLite, ProviderDuckDB}

// DefaultPostgresSchema is the schema used when a postgres URL is configured
// without one.
const DefaultPostgresSchema = "app_sql"

// Config holds the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Query    QueryConfig
	ETL      ETLConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Provider       string
	URL            string
	Schema         string
	MaxConnections int
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
}

type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

type QueryConfig struct {
	PreviewLimit  int
	PlanCacheSize int
	PlanCacheTTL  time.Duration
}

type ETLConfig struct {
	DataDir string
}

type LogConfig struct {
	Debug  bool
	Level  string
	Format string
}

// Options controls where configuration is read from.
type Options struct {
	// ConfigFile, when set, is the only config file read.
	ConfigFile string
}

// AdapterConfig converts the database settings for the adapters.
func (c DatabaseConfig) AdapterConfig() database.Config {
	return database.Config{
		Provider:       c.Provider,
		URL:            c.URL,
		Schema:         c.Schema,
		MaxConnections: c.MaxConnections,
		MaxIdleTime:    c.MaxIdleTime,
		ConnectTimeout: c.ConnectTimeout,
		Retry:          database.DefaultRetryConfig(),
	}
}

// LogLevel is the effective log level; log.debug forces debug.
func (c LogConfig) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Level
}

// Load loads configuration from various sources. Precedence, highest first:
// environment (INCIDENTDB_*), .env.local, .env, config file, defaults.
func Load(opts Options) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetFs(AppFs)
	setDefaults(v)

	v.SetEnvPrefix("INCIDENTDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", opts.ConfigFile, err)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(".incidentdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "incidentdb"))

		// Missing config file is fine
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Provider:       v.GetString("database.provider"),
			URL:            v.GetString("database.url"),
			Schema:         v.GetString("database.schema"),
			MaxConnections: v.GetInt("database.max_connections"),
			MaxIdleTime:    v.GetDuration("database.max_idle_time"),
			ConnectTimeout: v.GetDuration("database.connect_timeout"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			AllowedOrigins:  splitList(v.GetStringSlice("server.allowed_origins")),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Query: QueryConfig{
			PreviewLimit:  v.GetInt("query.preview_limit"),
			PlanCacheSize: v.GetInt("query.plan_cache_size"),
			PlanCacheTTL:  v.GetDuration("query.plan_cache_ttl"),
		},
		ETL: ETLConfig{
			DataDir: v.GetString("etl.data_dir"),
		},
		Log: LogConfig{
			Debug:  v.GetBool("log.debug"),
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.Database.Provider == "" {
		cfg.Database.Provider = DetectProvider(cfg.Database.URL)
	}
	cfg.Database.Provider = NormalizeProvider(cfg.Database.Provider)
	if !v.IsSet("database.schema") && cfg.Database.Provider == ProviderPostgres {
		cfg.Database.Schema = DefaultPostgresSchema
	}

	if dir, err := homedir.Expand(cfg.ETL.DataDir); err == nil {
		cfg.ETL.DataDir = dir
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_time", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("query.preview_limit", 20)
	v.SetDefault("query.plan_cache_size", 256)
	v.SetDefault("query.plan_cache_ttl", 5*time.Minute)
	v.SetDefault("etl.data_dir", "DATA")
	v.SetDefault("log.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// loadDotEnv applies .env, then .env.local with higher priority. Variables
// already in the environment are never replaced.
func loadDotEnv() error {
	preset := make(map[string]bool)
	for _, kv := range os.Environ() {
		k, _, _ := strings.Cut(kv, "=")
		preset[k] = true
	}
	for _, name := range []string{".env", ".env.local"} {
		f, err := AppFs.Open(name)
		if err != nil {
			continue
		}
		vars, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for k, val := range vars {
			if preset[k] {
				continue
			}
			if err := os.Setenv(k, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// DetectProvider infers the provider from a connection URL.
func DetectProvider(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.HasPrefix(lower, "mysql"), strings.Contains(lower, "@tcp("):
		return ProviderMySQL
	case strings.HasPrefix(lower, "duckdb"), strings.HasSuffix(lower, ".duckdb"):
		return ProviderDuckDB
	case strings.HasPrefix(lower, "sqlite"), strings.HasPrefix(lower, "file:"),
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), lower == ":memory:":
		return ProviderSQLite
	}
	return ProviderPostgres
}

// NormalizeProvider maps provider aliases to their canonical name.
func NormalizeProvider(provider string) string {
	switch p := strings.ToLower(strings.TrimSpace(provider)); p {
	case "postgresql", "pg", "postgres":
		return ProviderPostgres
	case "sqlite3", "sqlite":
		return ProviderSQLite
	default:
		return p
	}
}

// Validate checks that the database settings are usable.
func (c *Config) Validate() error {
	if !slices.Contains(providers, c.Database.Provider) {
		return fmt.Errorf("unsupported database provider %q (want one of %s)",
			c.Database.Provider, strings.Join(providers, ", "))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("database url is not set: use database.url, INCIDENTDB_DATABASE_URL or DATABASE_URL")
	}
	if c.Query.PreviewLimit <= 0 {
		return fmt.Errorf("query.preview_limit must be positive, got %d", c.Query.PreviewLimit)
	}
	return nil
}

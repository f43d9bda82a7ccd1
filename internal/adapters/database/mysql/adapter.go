// Package mysql implements the MySQL database adapter.
package mysql

import (
	"net/url"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"github.com/appri/incidentdb/internal/adapters/database"
	"github.com/appri/incidentdb/internal/core/filter/domain"
)

// MySQLAdapter implements the database.Adapter interface for MySQL.
type MySQLAdapter struct {
	*database.SQLAdapter
}

// NewMySQLAdapter creates a new MySQL adapter.
func NewMySQLAdapter(config database.Config) (*MySQLAdapter, error) {
	return &MySQLAdapter{
		SQLAdapter: database.NewSQLAdapter("mysql", domain.MySQL, config, database.Hooks{DSN: DSN}),
	}, nil
}

// DSN accepts either a native driver DSN or a mysql:// URL and always enables
// parseTime so DATE columns scan as time.Time.
func DSN(cfg database.Config) (string, error) {
	raw := strings.TrimSpace(cfg.URL)

	var mc *driver.Config
	if strings.HasPrefix(raw, "mysql://") || strings.HasPrefix(raw, "mariadb://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", err
		}
		mc = driver.NewConfig()
		mc.Net = "tcp"
		mc.Addr = u.Host
		if u.Port() == "" {
			mc.Addr = u.Hostname() + ":3306"
		}
		mc.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			mc.User = u.User.Username()
			mc.Passwd, _ = u.User.Password()
		}
		if len(u.Query()) > 0 {
			mc.Params = map[string]string{}
			for k, v := range u.Query() {
				mc.Params[k] = v[0]
			}
		}
	} else {
		var err error
		if mc, err = driver.ParseDSN(raw); err != nil {
			return "", err
		}
	}
	if mc.DBName == "" && cfg.Schema != "" {
		mc.DBName = cfg.Schema
	}
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

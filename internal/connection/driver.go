package connection

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapquery/pkg/core"

	// Adapter packages register both the database/sql driver and the adapter.
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapquery/pkg/adapters/sqlite"
)

// Target is a connection string resolved to a database/sql driver.
type Target struct {
	Driver  string // database/sql driver name
	DSN     string // driver-specific data source name
	Backend string // adapter type
}

var connectionPrefixes = []string{"postgres://", "postgresql://", "mysql://", "sqlite:", "file:", "duckdb:"}

// ParseConnectionString detects the backend from the connection string prefix.
func ParseConnectionString(connString string) (Target, error) {
	switch {
	case strings.HasPrefix(connString, "postgres://"), strings.HasPrefix(connString, "postgresql://"):
		return Target{Driver: "pgx", DSN: connString, Backend: "postgresql"}, nil
	case strings.HasPrefix(connString, "mysql://"):
		dsn, err := mysqlDSN(connString)
		if err != nil {
			return Target{}, err
		}
		return Target{Driver: "mysql", DSN: dsn, Backend: "mysql"}, nil
	case strings.HasPrefix(connString, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(connString, "sqlite:"), "//")
		if path == "" {
			path = ":memory:"
		}
		return Target{Driver: "sqlite", DSN: path, Backend: "sqlite"}, nil
	case strings.HasPrefix(connString, "file:"):
		return Target{Driver: "sqlite", DSN: connString, Backend: "sqlite"}, nil
	case strings.HasPrefix(connString, "duckdb:"):
		path := strings.TrimPrefix(strings.TrimPrefix(connString, "duckdb:"), "//")
		return Target{Driver: "duckdb", DSN: path, Backend: "duckdb"}, nil
	}

	scheme, _, _ := strings.Cut(connString, ":")
	return Target{}, &core.UnsupportedBackendError{Type: scheme, Available: connectionPrefixes}
}

// mysqlDSN converts a mysql:// URL into the go-sql-driver DSN format.
func mysqlDSN(connString string) (string, error) {
	u, err := url.Parse(connString)
	if err != nil {
		return "", fmt.Errorf("invalid mysql connection string: %w", err)
	}

	cfg := driver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true

	if q := u.Query(); len(q) > 0 {
		cfg.Params = make(map[string]string, len(q))
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}
	return cfg.FormatDSN(), nil
}

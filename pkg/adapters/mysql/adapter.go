// Package mysql provides a MySQL database adapter for LeapQuery.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	mysqldialect "github.com/leapstack-labs/leapquery/pkg/adapters/mysql/dialect"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return mysqldialect.MySQL
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = withDatabaseSchema(cfg)
	return nil
}

// AttachDB binds a pool-owned handle, defaulting the schema to the database.
func (a *Adapter) AttachDB(db *sql.DB, cfg core.AdapterConfig) {
	a.BaseSQLAdapter.AttachDB(db, withDatabaseSchema(cfg))
}

// withDatabaseSchema makes the connected database the default schema:
// in MySQL information_schema.table_schema holds the database name.
func withDatabaseSchema(cfg adapter.Config) adapter.Config {
	if cfg.Schema == "" {
		cfg.Schema = cfg.Database
	}
	return cfg
}

// buildMySQLDSN constructs a go-sql-driver DSN such as
// user:pass@tcp(localhost:3306)/shop?parseTime=true.
func buildMySQLDSN(cfg adapter.Config) (string, error) {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return "", err
	}

	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := driver.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Timeout = params.Timeout
	c.ReadTimeout = params.ReadTimeout
	c.Collation = params.Collation
	c.TLSConfig = params.TLS

	extra := make(map[string]string)
	for k, v := range cfg.Options {
		extra[k] = v
	}
	for k, v := range params.Extra {
		extra[k] = v
	}
	if params.Charset != "" {
		extra["charset"] = params.Charset
	}
	if len(extra) > 0 {
		c.Params = extra
	}

	return c.FormatDSN(), nil
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, a.Dialect())
}

// ListTables lists tables and views of a database (the connected one by default).
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]core.TableInfo, error) {
	return a.ListTablesCommon(ctx, schema, a.Dialect())
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

// Package sqlite provides a SQLite database adapter for LeapQuery.
//
// SQLite has no information_schema, so metadata comes from the
// pragma_table_info / pragma_foreign_key_list table-valued functions.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/adapter"
	sqlitedialect "github.com/leapstack-labs/leapquery/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return sqlitedialect.SQLite
}

// Connect opens the database file at cfg.Path, or an in-memory database when empty.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	if IsMemoryPath(path) {
		// every connection to :memory: is a distinct database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// IsMemoryPath reports whether a SQLite DSN names a private in-memory database.
func IsMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}

	schema, tableName := adapter.ParseQualifiedName(table, a.SchemaOrDefault(a.Dialect()))

	rows, err := a.DB.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?, ?) ORDER BY cid`,
		tableName, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var cid, notNull, pk int
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position = cid + 1
		col.Nullable = notNull == 0 && pk == 0
		col.PrimaryKey = pk > 0
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: %w", table, core.ErrTableNotFound)
	}

	foreign, err := a.foreignKeyColumns(ctx, schema, tableName)
	if err != nil {
		a.Logger.Debug("foreign key metadata unavailable", slog.String("table", table), slog.String("error", err.Error()))
	}
	for i := range columns {
		columns[i].ForeignKey = foreign[columns[i].Name]
	}

	return &core.TableMetadata{
		Schema:  schema,
		Name:    tableName,
		Columns: columns,
	}, nil
}

func (a *Adapter) foreignKeyColumns(ctx context.Context, schema, table string) (map[string]bool, error) {
	rows, err := a.DB.QueryContext(ctx, `SELECT "from" FROM pragma_foreign_key_list(?, ?)`, table, schema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	foreign := make(map[string]bool)
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, err
		}
		foreign[column] = true
	}
	return foreign, rows.Err()
}

// ListTables lists tables and views from sqlite_master. Only the main schema is supported.
func (a *Adapter) ListTables(ctx context.Context, schema string) ([]core.TableInfo, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}
	if schema == "" {
		schema = a.SchemaOrDefault(a.Dialect())
	}
	if schema != "main" {
		return nil, fmt.Errorf("sqlite: listing schema %q is not supported", schema)
	}

	rows, err := a.DB.QueryContext(ctx, `
		SELECT name, type FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []core.TableInfo
	for rows.Next() {
		info := core.TableInfo{Schema: schema}
		if err := rows.Scan(&info.Name, &info.Type); err != nil {
			return nil, fmt.Errorf("failed to scan table listing: %w", err)
		}
		tables = append(tables, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table listing: %w", err)
	}
	return tables, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

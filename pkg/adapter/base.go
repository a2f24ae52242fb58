package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// ErrNotConnected is returned by operations on an adapter without a database handle.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Ping and Query implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger

	borrowed bool // DB is owned by someone else, Close must not close it
}

// AttachDB binds an already open handle owned by the caller.
// Close on an attached adapter releases the reference without closing the handle.
func (b *BaseSQLAdapter) AttachDB(db *sql.DB, cfg core.AdapterConfig) {
	b.DB = db
	b.Cfg = cfg
	b.borrowed = true
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB == nil {
		return nil
	}
	if b.borrowed {
		b.DB = nil
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection")
	}
	return b.DB.Close()
}

// Ping runs SELECT 1 against the database.
func (b *BaseSQLAdapter) Ping(ctx context.Context) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	var one int
	if err := b.DB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses defaultSchema if not specified.
func ParseQualifiedName(table, defaultSchema string) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return defaultSchema, table
}

// SchemaOrDefault returns the configured schema, falling back to the dialect default.
func (b *BaseSQLAdapter) SchemaOrDefault(d *dialect.Dialect) string {
	if b.Cfg.Schema != "" {
		return b.Cfg.Schema
	}
	return d.DefaultSchema
}

// GetTableMetadataCommon provides a shared implementation of GetTableMetadata.
// Uses information_schema with dialect-appropriate placeholders.
// Key information is best effort: backends without constraint views still return columns.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table string, d *dialect.Dialect) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}

	schema, tableName := ParseQualifiedName(table, b.SchemaOrDefault(d))

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: %w", table, core.ErrTableNotFound)
	}

	primary, foreign, err := b.keyColumns(ctx, schema, tableName, d)
	if err != nil {
		b.logger().Debug("key metadata unavailable", slog.String("table", table), slog.String("error", err.Error()))
	}
	for i := range columns {
		columns[i].PrimaryKey = primary[columns[i].Name]
		columns[i].ForeignKey = foreign[columns[i].Name]
	}

	return &core.TableMetadata{
		Schema:  schema,
		Name:    tableName,
		Columns: columns,
	}, nil
}

// keyColumns returns the sets of primary key and foreign key columns of a table.
func (b *BaseSQLAdapter) keyColumns(ctx context.Context, schema, table string, d *dialect.Dialect) (primary, foreign map[string]bool, err error) {
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT kcu.column_name, tc.constraint_type
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = %s AND tc.table_name = %s
			AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query key metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	primary = make(map[string]bool)
	foreign = make(map[string]bool)
	for rows.Next() {
		var column, constraintType string
		if err := rows.Scan(&column, &constraintType); err != nil {
			return nil, nil, fmt.Errorf("failed to scan key metadata: %w", err)
		}
		if constraintType == "PRIMARY KEY" {
			primary[column] = true
		} else {
			foreign[column] = true
		}
	}
	return primary, foreign, rows.Err()
}

// ListTablesCommon lists base tables and views through information_schema.tables.
func (b *BaseSQLAdapter) ListTablesCommon(ctx context.Context, schema string, d *dialect.Dialect) ([]core.TableInfo, error) {
	if b.DB == nil {
		return nil, ErrNotConnected
	}
	if schema == "" {
		schema = b.SchemaOrDefault(d)
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = %s
		ORDER BY table_name
	`, d.FormatPlaceholder(1))

	rows, err := b.DB.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []core.TableInfo
	for rows.Next() {
		var info core.TableInfo
		var tableType string
		if err := rows.Scan(&info.Schema, &info.Name, &tableType); err != nil {
			return nil, fmt.Errorf("failed to scan table listing: %w", err)
		}
		info.Type = "table"
		if strings.Contains(strings.ToUpper(tableType), "VIEW") {
			info.Type = "view"
		}
		tables = append(tables, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table listing: %w", err)
	}
	return tables, nil
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

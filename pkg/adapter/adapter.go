// Package adapter provides database adapter interfaces and implementations
// for LeapQuery's query execution layer.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
package adapter

import (
	"context"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all database adapters must implement.
// Adapters are read-only: they run SELECT statements and read catalog metadata.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Ping runs a trivial SELECT 1 round trip.
	Ping(ctx context.Context) error

	// Query executes a SQL statement with bound arguments and returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// GetTableMetadata retrieves metadata for a table given as "table" or "schema.table".
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// ListTables lists tables and views of a schema. An empty schema means the default one.
	ListTables(ctx context.Context, schema string) ([]core.TableInfo, error)

	// Dialect returns the SQL dialect configuration for this adapter.
	// The query renderer uses it for placeholders and identifier quoting.
	Dialect() *dialect.Dialect
}

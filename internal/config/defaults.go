package config

import (
	"strings"

	"github.com/leapstack-labs/leapquery/internal/connection"
	"github.com/leapstack-labs/leapquery/internal/querybuilder"
	"github.com/leapstack-labs/leapquery/internal/report"
	"github.com/leapstack-labs/leapquery/internal/safety"
	"github.com/leapstack-labs/leapquery/internal/schema"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// Default configuration values.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultRateBurst = 5
)

// Defaults returns the default configuration as flat koanf keys.
func Defaults() map[string]any {
	limits := querybuilder.DefaultLimits()
	return map[string]any{
		"query.max_tables":            limits.MaxTables,
		"query.max_filters":           limits.MaxFilters,
		"query.max_limit":             limits.MaxLimit,
		"query.max_identifier_length": safety.DefaultMaxIdentifierLength,
		"query.timeout":               report.DefaultQueryTimeout.String(),
		"query.check_schema":          false,
		"query.schema_concurrency":    schema.DefaultConcurrency,
		"pool.max_size":               connection.DefaultMaxPoolSize,
		"pool.stale_after":            connection.DefaultStaleAfter.String(),
		"pool.sweep_schedule":         connection.DefaultSweepSchedule,
		"rate_limit.per_second":       0,
		"rate_limit.burst":            DefaultRateBurst,
		"log.level":                   DefaultLogLevel,
		"log.format":                  DefaultLogFormat,
		"verbose":                     false,
	}
}

// ApplyDefaults fills unset datasource fields.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	for i := range c.Datasources {
		ApplyDatasourceDefaults(&c.Datasources[i])
	}
}

// ApplyDatasourceDefaults applies type-specific defaults to a datasource.
// A connection-string datasource without a type takes the backend of its URL.
func ApplyDatasourceDefaults(ds *core.DatasourceConfig) {
	if ds == nil {
		return
	}
	if ds.Type == "" && ds.Pooled() {
		if target, err := connection.ParseConnectionString(ds.ConnectionString); err == nil {
			ds.Type = target.Backend
		}
	}
	ds.Type = strings.ToLower(ds.Type)
	if ds.Name == "" {
		ds.Name = ds.ID
	}
	if ds.Schema == "" {
		ds.Schema = DefaultSchemaForType(ds.Type)
	}

	switch ds.Type {
	case "postgres", "postgresql":
		if ds.Port == 0 && ds.Host != "" {
			ds.Port = 5432
		}
	case "mysql":
		if ds.Port == 0 && ds.Host != "" {
			ds.Port = 3306
		}
	}
}

// DefaultSchemaForType returns the default schema for a database type.
// Adapter aliases such as postgresql resolve through the adapter registry;
// unknown types have no default.
func DefaultSchemaForType(dbType string) string {
	if a, err := adapter.NewAdapter(core.AdapterConfig{Type: dbType}, nil); err == nil {
		return a.Dialect().DefaultSchema
	}
	if d, ok := dialect.Get(dbType); ok {
		return d.DefaultSchema
	}
	return ""
}

// Package config provides the leapquery configuration model.
// It is decoupled from the CLI so that embedders of the report service can
// load the same leapquery.yaml the command line uses.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapquery/internal/connection"
	"github.com/leapstack-labs/leapquery/internal/querybuilder"
	"github.com/leapstack-labs/leapquery/internal/report"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Config holds all leapquery configuration.
type Config struct {
	Datasources []core.DatasourceConfig `koanf:"datasources"`

	// Grants maps a datasource id to the caller ids allowed to use it.
	// A datasource without an entry is open to every caller.
	Grants map[string][]string `koanf:"grants"`

	Caller    CallerConfig    `koanf:"caller"`
	Query     QueryConfig     `koanf:"query"`
	Pool      PoolConfig      `koanf:"pool"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`

	// Verbose forces debug logging.
	Verbose bool `koanf:"verbose"`
}

// CallerConfig names the identity runs are attributed to.
// Empty fields fall back to the operating system user.
type CallerConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// QueryConfig bounds query configurations and their execution.
type QueryConfig struct {
	MaxTables           int           `koanf:"max_tables"`
	MaxFilters          int           `koanf:"max_filters"`
	MaxLimit            int           `koanf:"max_limit"`
	MaxIdentifierLength int           `koanf:"max_identifier_length"`
	Timeout             time.Duration `koanf:"timeout"`
	CheckSchema         bool          `koanf:"check_schema"`
	SchemaConcurrency   int           `koanf:"schema_concurrency"`
}

// PoolConfig configures the connection-string pool and its sweeper.
type PoolConfig struct {
	MaxSize       int           `koanf:"max_size"`
	StaleAfter    time.Duration `koanf:"stale_after"`
	SweepSchedule string        `koanf:"sweep_schedule"`
}

// RateLimitConfig configures per-datasource run limiting. PerSecond 0 disables it.
type RateLimitConfig struct {
	PerSecond float64 `koanf:"per_second"`
	Burst     int     `koanf:"burst"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// Validate checks the configuration after defaults were applied.
// Datasource types are checked against the adapter registry.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Datasources))
	for i := range c.Datasources {
		ds := &c.Datasources[i]
		if ds.ID == "" {
			return fmt.Errorf("datasources[%d]: id is required", i)
		}
		if seen[ds.ID] {
			return fmt.Errorf("datasource %q is defined more than once", ds.ID)
		}
		seen[ds.ID] = true

		if err := ValidateDatasource(ds); err != nil {
			return fmt.Errorf("datasource %q: %w", ds.ID, err)
		}
	}

	for id := range c.Grants {
		if !seen[id] {
			return fmt.Errorf("grants: unknown datasource %q", id)
		}
	}

	if c.Query.Timeout < 0 {
		return fmt.Errorf("query.timeout must not be negative")
	}
	if c.RateLimit.PerSecond < 0 {
		return fmt.Errorf("rate_limit.per_second must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ValidateDatasource checks that a datasource names a registered backend.
// Connection-string datasources are checked against the pool's URL schemes.
func ValidateDatasource(ds *core.DatasourceConfig) error {
	if ds.Pooled() {
		if _, err := connection.ParseConnectionString(ds.ConnectionString); err != nil {
			return err
		}
		if ds.Type == "" {
			return nil
		}
	}
	if ds.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !adapter.IsRegistered(ds.Type) {
		return &core.UnsupportedBackendError{
			Type:      ds.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// Datasource returns the datasource with the given id.
func (c *Config) Datasource(id string) (*core.DatasourceConfig, bool) {
	for i := range c.Datasources {
		if c.Datasources[i].ID == id {
			return &c.Datasources[i], true
		}
	}
	return nil, false
}

// Limits returns the query builder limits.
func (c *Config) Limits() querybuilder.Limits {
	return querybuilder.Limits{
		MaxTables:  c.Query.MaxTables,
		MaxFilters: c.Query.MaxFilters,
		MaxLimit:   c.Query.MaxLimit,
	}
}

// ServiceConfig converts the configuration into report service settings.
func (c *Config) ServiceConfig(collab report.Collaborator, logger *slog.Logger) report.Config {
	return report.Config{
		Collaborator:        collab,
		Limits:              c.Limits(),
		QueryTimeout:        c.Query.Timeout,
		MaxIdentifierLength: c.Query.MaxIdentifierLength,
		CheckSchema:         c.Query.CheckSchema,
		SchemaConcurrency:   c.Query.SchemaConcurrency,
		RateLimit:           c.RateLimit.PerSecond,
		RateBurst:           c.RateLimit.Burst,
		Pool: connection.PoolConfig{
			MaxSize:    c.Pool.MaxSize,
			StaleAfter: c.Pool.StaleAfter,
			Logger:     logger,
		},
		SweepSchedule: c.Pool.SweepSchedule,
		Logger:        logger,
	}
}

// ParseLevel converts a level name to a slog.Level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", level)
}

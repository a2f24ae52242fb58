package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapquery/internal/report"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
datasources:
  - id: shop
    type: SQLite
    path: ./shop.db
  - id: sales
    type: postgresql
    host: db.internal
    database: sales
    username: report
    password: ${SALES_PASSWORD}
  - id: events
    connection_string: duckdb:/data/${EVENTS_FILE}
grants:
  sales: [alice]
caller:
  id: alice
query:
  max_filters: 20
  timeout: 10s
pool:
  max_size: 3
  stale_after: 30m
log:
  level: debug
`

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	loaded, err := Load(LoadOptions{Dir: t.TempDir(), Environ: []string{}})
	require.NoError(t, err)

	assert.Empty(t, loaded.File)
	assert.Empty(t, loaded.Datasources)
	assert.Equal(t, 10, loaded.Query.MaxTables)
	assert.Equal(t, 50, loaded.Query.MaxFilters)
	assert.Equal(t, 1_000_000, loaded.Query.MaxLimit)
	assert.Equal(t, 64, loaded.Query.MaxIdentifierLength)
	assert.Equal(t, 30*time.Second, loaded.Query.Timeout)
	assert.Equal(t, 10, loaded.Pool.MaxSize)
	assert.Equal(t, time.Hour, loaded.Pool.StaleAfter)
	assert.Equal(t, "@every 5m", loaded.Pool.SweepSchedule)
	assert.Zero(t, loaded.RateLimit.PerSecond)
	assert.Equal(t, "info", loaded.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, ConfigFileName, sampleConfig)

	loaded, err := Load(LoadOptions{
		Dir:     dir,
		Environ: []string{"SALES_PASSWORD=s3cret", "EVENTS_FILE=events.duckdb"},
	})
	require.NoError(t, err)
	assert.Equal(t, path, loaded.File)

	require.Len(t, loaded.Datasources, 3)

	shop, ok := loaded.Datasource("shop")
	require.True(t, ok)
	assert.Equal(t, "sqlite", shop.Type, "type is lower-cased")
	assert.Equal(t, "main", shop.Schema)
	assert.Equal(t, "shop", shop.Name)

	sales, _ := loaded.Datasource("sales")
	assert.Equal(t, "s3cret", sales.Password)
	assert.Equal(t, 5432, sales.Port)
	assert.Equal(t, "public", sales.Schema)

	events, _ := loaded.Datasource("events")
	assert.Equal(t, "duckdb", events.Type, "type taken from the connection string")
	assert.Equal(t, "duckdb:/data/events.duckdb", events.ConnectionString)

	assert.Equal(t, 20, loaded.Query.MaxFilters)
	assert.Equal(t, 10*time.Second, loaded.Query.Timeout)
	assert.Equal(t, 3, loaded.Pool.MaxSize)
	assert.Equal(t, 30*time.Minute, loaded.Pool.StaleAfter)
	assert.Equal(t, "debug", loaded.Log.Level)
}

func TestLoad_UnsetVariableIsKept(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileName, sampleConfig)

	loaded, err := Load(LoadOptions{Dir: dir, Environ: []string{"EVENTS_FILE=e.duckdb"}})
	require.NoError(t, err)
	sales, _ := loaded.Datasource("sales")
	assert.Equal(t, "${SALES_PASSWORD}", sales.Password)
}

func TestLoad_AlternateNameAndUpwardSearch(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, ConfigFileNameAlt, "query:\n  max_tables: 4\n")
	nested := filepath.Join(root, "reports", "weekly")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Equal(t, root, FindProjectRoot(nested))

	loaded, err := Load(LoadOptions{Dir: nested, Environ: []string{}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), loaded.File)
	assert.Equal(t, 4, loaded.Query.MaxTables)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yaml", "query:\n  timeout: 10s\n  max_limit: 500\nlog:\n  level: warn\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Duration("timeout", 0, "")
	flags.String("log-level", "", "")
	flags.Bool("check-schema", false, "")
	require.NoError(t, flags.Parse([]string{"--timeout=5s", "--check-schema"}))

	loaded, err := Load(LoadOptions{
		File:  path,
		Flags: flags,
		Environ: []string{
			"LEAPQUERY_QUERY__TIMEOUT=20s",
			"LEAPQUERY_LOG__LEVEL=error",
			"LEAPQUERY_RATE_LIMIT__PER_SECOND=2.5",
			"OTHER_QUERY__TIMEOUT=1s",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, loaded.Query.Timeout, "flag beats env")
	assert.Equal(t, "error", loaded.Log.Level, "env beats file")
	assert.Equal(t, 500, loaded.Query.MaxLimit, "file beats defaults")
	assert.Equal(t, 2.5, loaded.RateLimit.PerSecond)
	assert.True(t, loaded.Query.CheckSchema)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errStr  string
	}{
		{
			name:    "missing id",
			content: "datasources:\n  - type: sqlite\n",
			errStr:  "id is required",
		},
		{
			name:    "duplicate id",
			content: "datasources:\n  - {id: a, type: sqlite}\n  - {id: a, type: duckdb}\n",
			errStr:  "more than once",
		},
		{
			name:    "missing type",
			content: "datasources:\n  - id: a\n",
			errStr:  "type is required",
		},
		{
			name:    "unsupported type",
			content: "datasources:\n  - {id: a, type: oracle}\n",
			errStr:  "oracle",
		},
		{
			name:    "unsupported connection string",
			content: "datasources:\n  - {id: a, connection_string: 'mssql://db'}\n",
			errStr:  "mssql",
		},
		{
			name:    "grant for unknown datasource",
			content: "grants:\n  ghost: [alice]\n",
			errStr:  "ghost",
		},
		{
			name:    "bad log level",
			content: "log:\n  level: loud\n",
			errStr:  "log.level",
		},
		{
			name:    "bad log format",
			content: "log:\n  format: xml\n",
			errStr:  "log.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), ConfigFileName, tt.content)
			_, err := Load(LoadOptions{File: path, Environ: []string{}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errStr)
		})
	}
}

func TestValidateDatasource_UnsupportedBackend(t *testing.T) {
	err := ValidateDatasource(&core.DatasourceConfig{ID: "x", Type: "oracle"})
	var unsupported *core.UnsupportedBackendError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, unsupported.Available, "sqlite")
	assert.Contains(t, unsupported.Available, "mysql")
}

func TestDefaultSchemaForType(t *testing.T) {
	assert.Equal(t, "public", DefaultSchemaForType("postgres"))
	assert.Equal(t, "public", DefaultSchemaForType("postgresql"))
	assert.Equal(t, "main", DefaultSchemaForType("duckdb"))
	assert.Equal(t, "main", DefaultSchemaForType("sqlite"))
	assert.Empty(t, DefaultSchemaForType("oracle"))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, "INFO", lvl.String())

	lvl, err = ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, "WARN", lvl.String())

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	cfg := &Config{
		Datasources: []core.DatasourceConfig{
			{ID: "shop", Type: "sqlite"},
			{ID: "sales", Type: "postgres"},
		},
		Grants: map[string][]string{"sales": {"alice"}},
		Caller: CallerConfig{ID: "bob"},
	}
	catalog := NewCatalog(cfg)
	ctx := context.Background()

	caller, err := catalog.Caller(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Identity{ID: "bob", Name: "bob"}, caller)

	ds, err := catalog.Datasource(ctx, "shop", caller)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", ds.Type)

	ds.Type = "mutated"
	again, _ := catalog.Datasource(ctx, "shop", caller)
	assert.Equal(t, "sqlite", again.Type, "callers receive a copy")

	_, err = catalog.Datasource(ctx, "sales", caller)
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = catalog.Datasource(ctx, "sales", report.Identity{ID: "alice"})
	assert.NoError(t, err)

	_, err = catalog.Datasource(ctx, "missing", caller)
	assert.ErrorIs(t, err, ErrDatasourceNotFound)
}

func TestCatalog_DefaultCaller(t *testing.T) {
	caller, err := NewCatalog(&Config{}).Caller(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, caller.ID)
	assert.Equal(t, caller.ID, caller.Name)
}

func TestServiceConfig(t *testing.T) {
	loaded, err := Load(LoadOptions{Dir: t.TempDir(), Environ: []string{}})
	require.NoError(t, err)

	sc := loaded.ServiceConfig(NewCatalog(loaded.Config), nil)
	assert.NotNil(t, sc.Collaborator)
	assert.Equal(t, 50, sc.Limits.MaxFilters)
	assert.Equal(t, 30*time.Second, sc.QueryTimeout)
	assert.Equal(t, 10, sc.Pool.MaxSize)
	assert.Equal(t, time.Hour, sc.Pool.StaleAfter)

	svc, err := report.New(sc)
	require.NoError(t, err)
	assert.NoError(t, svc.Close())
}

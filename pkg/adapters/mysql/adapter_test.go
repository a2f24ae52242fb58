package mysql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapquery/pkg/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMySQLDSN(t *testing.T) {
	tests := []struct {
		name   string
		config adapter.Config
		verify func(t *testing.T, c *driver.Config)
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "db.internal",
				Port:     3307,
				Database: "shop",
				Username: "report",
				Password: "s3cret",
			},
			verify: func(t *testing.T, c *driver.Config) {
				assert.Equal(t, "report", c.User)
				assert.Equal(t, "s3cret", c.Passwd)
				assert.Equal(t, "tcp", c.Net)
				assert.Equal(t, "db.internal:3307", c.Addr)
				assert.Equal(t, "shop", c.DBName)
				assert.True(t, c.ParseTime)
			},
		},
		{
			name:   "defaults",
			config: adapter.Config{Database: "shop"},
			verify: func(t *testing.T, c *driver.Config) {
				assert.Equal(t, "localhost:3306", c.Addr)
			},
		},
		{
			name: "params decoded with mapstructure",
			config: adapter.Config{
				Database: "shop",
				Options:  map[string]string{"sql_mode": "'ANSI_QUOTES'"},
				Params: map[string]any{
					"charset": "utf8mb4",
					"timeout": "5s",
					"extra":   map[string]any{"autocommit": "true"},
				},
			},
			verify: func(t *testing.T, c *driver.Config) {
				assert.Equal(t, 5*time.Second, c.Timeout)
				assert.Equal(t, "utf8mb4", c.Params["charset"])
				assert.Equal(t, "true", c.Params["autocommit"])
				assert.Equal(t, "'ANSI_QUOTES'", c.Params["sql_mode"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, err := buildMySQLDSN(tt.config)
			require.NoError(t, err)

			parsed, err := driver.ParseDSN(dsn)
			require.NoError(t, err)
			tt.verify(t, parsed)
		})
	}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "durations and tls",
			input: map[string]any{
				"read_timeout": "30s",
				"tls":          "skip-verify",
			},
			want: &Params{ReadTimeout: 30 * time.Second, TLS: "skip-verify"},
		},
		{
			name:    "unknown key rejected",
			input:   map[string]any{"pool_size": 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapter_Dialect(t *testing.T) {
	d := New(nil).Dialect()

	assert.Equal(t, "mysql", d.Name)
	assert.Equal(t, "?", d.FormatPlaceholder(2))
	assert.Equal(t, "`order`", d.QuoteIdentifierIfNeeded("order"))
	assert.True(t, d.IsAggregate("GROUP_CONCAT"))
}

func TestAdapter_MetadataUsesDatabaseAsSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(`information_schema.columns\s+WHERE table_schema = \? AND table_name = \?`).
		WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("id", "int", "NO", 1))
	mock.ExpectQuery("information_schema.table_constraints").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "constraint_type"}))

	adp := New(nil)
	adp.AttachDB(db, adapter.Config{Type: "mysql", Database: "shop"})

	meta, err := adp.GetTableMetadata(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, "shop", meta.Schema)

	// Attached handles stay open after Close.
	require.NoError(t, adp.Close())
	assert.NoError(t, db.Ping())
}

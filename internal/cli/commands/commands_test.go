package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapquery/internal/querybuilder"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildCommand(t *testing.T) {
	cmd := NewBuildCommand()

	assert.Equal(t, "build", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"file", "datasource", "inline", "dialect", "pretty", "format"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "f", cmd.Flags().Lookup("file").Shorthand)
}

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	for _, flag := range []string{"file", "datasource", "format", "show-sql"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, FormatTable, cmd.Flags().Lookup("format").DefValue)
}

func TestNewDatasourceCommand(t *testing.T) {
	cmd := NewDatasourceCommand()

	assert.Equal(t, []string{"ds"}, cmd.Aliases)
	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "test", "tables", "schema"}, names)
}

func TestGetRuntime_Missing(t *testing.T) {
	_, err := GetRuntime(context.Background())
	assert.Error(t, err)

	_, err = GetRuntime(WithRuntime(context.Background(), &Runtime{}))
	assert.Error(t, err, "a runtime without configuration is not usable")
}

func TestDecodeQuery(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"json file", `{"datasource_id": "shop", "tables": [{"name": "orders", "alias": "o"}], "limit": 5}`, ".json"},
		{"yaml file", "datasource_id: shop\ntables:\n  - {name: orders, alias: o}\nlimit: 5\n", ".yml"},
		{"sniffed json", ` {"datasource_id": "shop", "tables": [{"name": "orders", "alias": "o"}], "limit": 5}`, ""},
		{"sniffed yaml", "datasource_id: shop\ntables:\n  - name: orders\n    alias: o\nlimit: 5\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := decodeQuery([]byte(tt.data), tt.ext)
			require.NoError(t, err)
			assert.Equal(t, "shop", cfg.DatasourceID)
			require.Len(t, cfg.Tables, 1)
			assert.Equal(t, core.TableConfig{Name: "orders", Alias: "o"}, cfg.Tables[0])
			require.NotNil(t, cfg.Limit)
			assert.Equal(t, 5, *cfg.Limit)
		})
	}
}

func TestDecodeQuery_KeepsNumberText(t *testing.T) {
	cfg, err := decodeQuery([]byte(`{"filters": [{"table_alias": "o", "column": "total", "operator": ">", "value": 12.50, "data_type": "number"}]}`), ".json")
	require.NoError(t, err)
	assert.Equal(t, json.Number("12.50"), cfg.Filters[0].Value)
}

func TestReadQuery_Stdin(t *testing.T) {
	cfg, err := readQuery("-", strings.NewReader(`{"datasource_id": "shop"}`))
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.DatasourceID)

	_, err = readQuery("", strings.NewReader("  \n"))
	assert.ErrorIs(t, err, errNoQuery)
}

func TestRenderRows(t *testing.T) {
	cols := []string{"name", "note"}
	rows := []map[string]any{
		{"name": "Ada", "note": "likes, commas"},
		{"name": "Grace", "note": nil},
	}

	tests := []struct {
		format string
		want   []string
	}{
		{FormatCSV, []string{"name,note\n", "Ada,\"likes, commas\"\n", "Grace,NULL\n"}},
		{FormatMarkdown, []string{"| name | note |", "| Ada | likes, commas |"}},
		{FormatTable, []string{" name ", " note ", "Ada", "Grace", "NULL", "(2 rows)"}},
		{FormatJSON, []string{`"name": "Ada"`, `"note": null`}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderRows(&buf, cols, rows, tt.format))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}

	var buf bytes.Buffer
	require.NoError(t, renderRows(&buf, cols, nil, FormatTable))
	assert.Equal(t, "(0 rows)\n", buf.String())

	buf.Reset()
	require.NoError(t, renderRows(&buf, cols, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())

	assert.Error(t, checkFormat("xml"))
}

func TestRenderRows_HeaderKeepsColumnCase(t *testing.T) {
	cols := []string{"customer", "Revenue_EUR"}
	rows := []map[string]any{{"customer": "Ada", "Revenue_EUR": 42}}

	for _, format := range []string{FormatTable, FormatMarkdown} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderRows(&buf, cols, rows, format))
			out := buf.String()
			assert.Contains(t, out, "customer")
			assert.Contains(t, out, "Revenue_EUR")
			assert.NotContains(t, out, "CUSTOMER")
			assert.NotContains(t, out, "REVENUE")
		})
	}
}

func TestPrintStatement(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStatement(&buf, &querybuilder.Statement{
		SQL:  "SELECT o.id FROM orders AS o WHERE o.status = $1 AND o.total > $2",
		Args: []any{"completed", int64(10)},
	}))
	assert.Equal(t, "SELECT o.id FROM orders AS o WHERE o.status = $1 AND o.total > $2\n  [1] completed\n  [2] 10\n", buf.String())
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://report:***@db:5432/sales", redact("postgres://report:s3cret@db:5432/sales"))
	assert.Equal(t, "postgres://report@db/sales", redact("postgres://report@db/sales"))
	assert.Equal(t, "sqlite:/tmp/shop.db", redact("sqlite:/tmp/shop.db"))
}

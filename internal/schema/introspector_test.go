package schema

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/leapstack-labs/leapquery/internal/querybuilder"
	"github.com/leapstack-labs/leapquery/internal/testutil"
	"github.com/leapstack-labs/leapquery/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	Source
	calls atomic.Int32
}

func (c *countingSource) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	c.calls.Add(1)
	return c.Source.GetTableMetadata(ctx, table)
}

type brokenSource struct{}

func (brokenSource) GetTableMetadata(context.Context, string) (*core.TableMetadata, error) {
	return nil, errors.New("connection reset")
}

func (brokenSource) ListTables(context.Context, string) ([]core.TableInfo, error) {
	return nil, errors.New("connection reset")
}

func seeded(t *testing.T) *sqlite.Adapter {
	t.Helper()
	ctx := context.Background()
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })

	for _, stmt := range []string{
		"CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER, status TEXT)",
	} {
		_, err := adp.DB.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	return adp
}

func TestIntrospector_Exists(t *testing.T) {
	ctx := context.Background()
	in := New(seeded(t), 0, testutil.NewTestLogger(t))

	ok, err := in.TableExists(ctx, "orders", "")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = in.TableExists(ctx, "shipments", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = in.ColumnExists(ctx, "orders", "STATUS", "main")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = in.ColumnExists(ctx, "orders", "total", "")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = in.ColumnExists(ctx, "shipments", "id", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntrospector_SourceErrors(t *testing.T) {
	in := New(brokenSource{}, 0, nil)

	_, err := in.TableExists(context.Background(), "orders", "")
	assert.Error(t, err)

	err = in.CheckStatement(context.Background(), &core.SelectStmt{
		From: core.FromClause{Source: core.TableRef{Name: "orders", Alias: "o"}},
	})
	require.Error(t, err)
	var cfgErr *core.ConfigValidationError
	assert.False(t, errors.As(err, &cfgErr))
}

func TestIntrospector_Cache(t *testing.T) {
	src := &countingSource{Source: seeded(t)}
	in := New(src, 0, nil)

	for i := 0; i < 3; i++ {
		meta, err := in.GetTableSchema(context.Background(), "Orders", "")
		require.NoError(t, err)
		assert.Len(t, meta.Columns, 3)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestIntrospector_ListTables(t *testing.T) {
	tables, err := New(seeded(t), 0, nil).ListTables(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestCheckStatement(t *testing.T) {
	adp := seeded(t)
	base := func() *core.QueryConfiguration {
		return &core.QueryConfiguration{
			DatasourceID: "local",
			Tables: []core.TableConfig{
				{Name: "orders", Alias: "o"},
				{Name: "customers", Alias: "c"},
			},
			Joins:   []core.JoinConfig{{LeftTable: "o", RightTable: "c", LeftColumn: "customer_id", RightColumn: "c.id"}},
			OrderBy: []core.OrderByConfig{{Field: "c.name"}},
			Fields:  []core.FieldConfig{{TableAlias: "o", Column: "id"}, {TableAlias: "c", Column: "name"}},
			Filters: []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "=", Value: "x"}},
		}
	}

	tests := []struct {
		name   string
		modify func(*core.QueryConfiguration)
		rule   string
	}{
		{"valid", func(*core.QueryConfiguration) {}, ""},
		{"missing table", func(c *core.QueryConfiguration) { c.Tables[1].Name = "clients" }, core.RuleTableExists},
		{"missing field column", func(c *core.QueryConfiguration) { c.Fields[1].Column = "email" }, core.RuleColumnExists},
		{"missing filter column", func(c *core.QueryConfiguration) { c.Filters[0].Column = "state" }, core.RuleColumnExists},
		{"missing join column", func(c *core.QueryConfiguration) { c.Joins[0].LeftColumn = "client_id" }, core.RuleColumnExists},
		{"missing free-text join column", func(c *core.QueryConfiguration) {
			c.Joins[0] = core.JoinConfig{LeftTable: "o", RightTable: "c", Condition: "o.client_id = c.id"}
		}, core.RuleColumnExists},
		{"missing order column", func(c *core.QueryConfiguration) { c.OrderBy[0].Field = "c.email" }, core.RuleColumnExists},
		{"output alias needs no catalog lookup", func(c *core.QueryConfiguration) {
			c.Fields[1].Alias = "customer"
			c.OrderBy[0].Field = "customer"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.modify(cfg)
			stmt, err := querybuilder.Compile(cfg, nil)
			require.NoError(t, err)

			err = New(adp, 2, nil).CheckStatement(context.Background(), stmt)
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *core.ConfigValidationError
			require.True(t, errors.As(err, &cfgErr), fmt.Sprint(err))
			assert.Equal(t, tt.rule, cfgErr.Rule)
		})
	}
}

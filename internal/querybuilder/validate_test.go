package querybuilder

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func baseConfig() *core.QueryConfiguration {
	return &core.QueryConfiguration{
		DatasourceID: "warehouse",
		Tables:       []core.TableConfig{{Name: "orders", Alias: "o"}},
		Fields:       []core.FieldConfig{{TableAlias: "o", Column: "id"}},
	}
}

func nTables(n int) []core.TableConfig {
	tables := make([]core.TableConfig, n)
	for i := range tables {
		tables[i] = core.TableConfig{Name: fmt.Sprintf("t%d", i), Alias: fmt.Sprintf("a%d", i)}
	}
	return tables
}

func requireRule(t *testing.T, err error, rule string) {
	t.Helper()
	var cfgErr *core.ConfigValidationError
	require.True(t, errors.As(err, &cfgErr), "expected ConfigValidationError, got %v", err)
	assert.Equal(t, rule, cfgErr.Rule, cfgErr.Message)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *core.QueryConfiguration)
		rule   string // empty means valid
	}{
		{"valid", func(*core.QueryConfiguration) {}, ""},
		{"missing datasource", func(c *core.QueryConfiguration) { c.DatasourceID = "" }, core.RuleDatasource},
		{"no tables", func(c *core.QueryConfiguration) { c.Tables = nil; c.Fields = nil }, core.RuleTableCount},
		{"ten tables", func(c *core.QueryConfiguration) { c.Tables = nTables(10); c.Fields = nil }, ""},
		{"eleven tables", func(c *core.QueryConfiguration) { c.Tables = nTables(11); c.Fields = nil }, core.RuleTableCount},
		{"table without alias", func(c *core.QueryConfiguration) { c.Tables[0].Alias = "" }, core.RuleTableName},
		{"duplicate alias", func(c *core.QueryConfiguration) {
			c.Tables = append(c.Tables, core.TableConfig{Name: "other", Alias: "o"})
		}, core.RuleAliasUnique},
		{"join to undeclared alias", func(c *core.QueryConfiguration) {
			c.Joins = []core.JoinConfig{{LeftTable: "o", RightTable: "c", Condition: "o.customer_id = c.id"}}
		}, core.RuleJoinRef},
		{"bad join type", func(c *core.QueryConfiguration) {
			c.Tables = append(c.Tables, core.TableConfig{Name: "customers", Alias: "c"})
			c.Joins = []core.JoinConfig{{LeftTable: "o", RightTable: "c", JoinType: "CROSS", Condition: "o.customer_id = c.id"}}
		}, core.RuleJoinType},
		{"join without condition", func(c *core.QueryConfiguration) {
			c.Tables = append(c.Tables, core.TableConfig{Name: "customers", Alias: "c"})
			c.Joins = []core.JoinConfig{{LeftTable: "o", RightTable: "c"}}
		}, core.RuleJoinCondition},
		{"structured join missing column", func(c *core.QueryConfiguration) {
			c.Tables = append(c.Tables, core.TableConfig{Name: "customers", Alias: "c"})
			c.Joins = []core.JoinConfig{{LeftTable: "o", RightTable: "c", LeftColumn: "customer_id"}}
		}, core.RuleJoinCondition},
		{"field alias undeclared", func(c *core.QueryConfiguration) { c.Fields[0].TableAlias = "x" }, core.RuleFieldRef},
		{"bad aggregation", func(c *core.QueryConfiguration) { c.Fields[0].Aggregation = "MEDIAN" }, core.RuleAggregation},
		{"filter alias undeclared", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "x", Column: "status", Operator: "=", Value: "a"}}
		}, core.RuleFilterRef},
		{"bad operator", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "~", Value: "a"}}
		}, core.RuleOperator},
		{"IN with scalar", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "IN", Value: "a"}}
		}, core.RuleFilterValue},
		{"IN with empty list", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "IN", Value: []any{}}}
		}, core.RuleFilterValue},
		{"IN with typed slice", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "in", Value: []string{"a", "b"}}}
		}, ""},
		{"BETWEEN with three values", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "total", Operator: "BETWEEN", Value: []any{1, 2, 3}, DataType: "number"}}
		}, core.RuleFilterValue},
		{"BETWEEN with two values", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "total", Operator: "BETWEEN", Value: []any{1, 2}, DataType: "number"}}
		}, ""},
		{"scalar operator with list", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "=", Value: []any{"a"}}}
		}, core.RuleFilterValue},
		{"equals null", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "status", Operator: "="}}
		}, core.RuleFilterValue},
		{"IS NULL ignores value", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "shipped_at", Operator: "is null"}}
		}, ""},
		{"number list element typed as string", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "id", Operator: "IN", Value: []any{1, "two"}, DataType: "number"}}
		}, core.RuleFilterValue},
		{"invalid date", func(c *core.QueryConfiguration) {
			c.Filters = []core.FilterConfig{{TableAlias: "o", Column: "created", Operator: ">", Value: "last week", DataType: "date"}}
		}, core.RuleFilterValue},
		{"too many filters", func(c *core.QueryConfiguration) {
			for i := 0; i < 51; i++ {
				c.Filters = append(c.Filters, core.FilterConfig{TableAlias: "o", Column: "id", Operator: ">", Value: i, DataType: "number"})
			}
		}, core.RuleFilterCount},
		{"group by undeclared alias", func(c *core.QueryConfiguration) { c.GroupBy = []string{"x.status"} }, core.RuleReference},
		{"group by output alias", func(c *core.QueryConfiguration) {
			c.Fields[0].Alias = "order_id"
			c.GroupBy = []string{"order_id"}
		}, ""},
		{"group by unknown bare name", func(c *core.QueryConfiguration) { c.GroupBy = []string{"status"} }, core.RuleReference},
		{"order by unknown bare name", func(c *core.QueryConfiguration) {
			c.OrderBy = []core.OrderByConfig{{Field: "whatever"}}
		}, core.RuleReference},
		{"order by alias of hidden field", func(c *core.QueryConfiguration) {
			hidden := false
			c.Fields = append(c.Fields, core.FieldConfig{TableAlias: "o", Column: "note", Alias: "note", Visible: &hidden})
			c.OrderBy = []core.OrderByConfig{{Field: "note"}}
		}, core.RuleReference},
		{"bad direction", func(c *core.QueryConfiguration) {
			c.OrderBy = []core.OrderByConfig{{Field: "o.id", Direction: "SIDEWAYS"}}
		}, core.RuleDirection},
		{"limit zero", func(c *core.QueryConfiguration) { c.Limit = intPtr(0) }, core.RuleLimit},
		{"limit one", func(c *core.QueryConfiguration) { c.Limit = intPtr(1) }, ""},
		{"limit max", func(c *core.QueryConfiguration) { c.Limit = intPtr(1_000_000) }, ""},
		{"limit over max", func(c *core.QueryConfiguration) { c.Limit = intPtr(1_000_001) }, core.RuleLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.modify(cfg)
			err := Validate(cfg, DefaultLimits())
			if tt.rule == "" {
				assert.NoError(t, err)
				return
			}
			requireRule(t, err, tt.rule)
		})
	}
}

func TestValidate_JoinConditionKeyword(t *testing.T) {
	cfg := baseConfig()
	cfg.Tables = append(cfg.Tables, core.TableConfig{Name: "customers", Alias: "c"})
	cfg.Joins = []core.JoinConfig{{LeftTable: "o", RightTable: "c", Condition: "o.customer_id = c.id; DROP TABLE users"}}

	err := Validate(cfg, DefaultLimits())

	var violation *core.SQLSafetyViolation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "DROP", violation.Keyword)
}

func TestValidate_CustomLimits(t *testing.T) {
	cfg := baseConfig()
	cfg.Tables = nTables(3)
	cfg.Fields = nil

	requireRule(t, Validate(cfg, Limits{MaxTables: 2}), core.RuleTableCount)
	assert.NoError(t, Validate(cfg, Limits{}))
}

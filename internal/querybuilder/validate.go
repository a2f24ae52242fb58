package querybuilder

import (
	"reflect"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/safety"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

// Limits bounds the size of a query configuration.
type Limits struct {
	MaxTables  int
	MaxFilters int
	MaxLimit   int
}

// DefaultLimits returns the limits applied when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxTables: 10, MaxFilters: 50, MaxLimit: 1_000_000}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxTables <= 0 {
		l.MaxTables = d.MaxTables
	}
	if l.MaxFilters <= 0 {
		l.MaxFilters = d.MaxFilters
	}
	if l.MaxLimit <= 0 {
		l.MaxLimit = d.MaxLimit
	}
	return l
}

// Validate checks the structural rules of cfg and returns the first
// violation as a *core.ConfigValidationError. A free-text join condition naming
// a destructive keyword fails with *core.SQLSafetyViolation.
func Validate(cfg *core.QueryConfiguration, limits Limits) error {
	if cfg == nil {
		return core.NewConfigValidationError(core.RuleTableCount, "query configuration is required")
	}
	limits = limits.withDefaults()

	if strings.TrimSpace(cfg.DatasourceID) == "" {
		return core.NewConfigValidationError(core.RuleDatasource, "datasource_id is required")
	}

	if n := len(cfg.Tables); n < 1 || n > limits.MaxTables {
		return core.NewConfigValidationError(core.RuleTableCount,
			"query must reference between 1 and %d tables, got %d", limits.MaxTables, n)
	}

	aliases := make(map[string]bool, len(cfg.Tables))
	for i, t := range cfg.Tables {
		if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Alias) == "" {
			return core.NewConfigValidationError(core.RuleTableName, "table %d must have a name and an alias", i)
		}
		if aliases[t.Alias] {
			return core.NewConfigValidationError(core.RuleAliasUnique, "duplicate table alias %q", t.Alias)
		}
		aliases[t.Alias] = true
	}

	for i, j := range cfg.Joins {
		for _, alias := range []string{j.LeftTable, j.RightTable} {
			if !aliases[alias] {
				return core.NewConfigValidationError(core.RuleJoinRef, "join %d references undeclared table alias %q", i, alias)
			}
		}
		if !j.EffectiveType().Valid() {
			return core.NewConfigValidationError(core.RuleJoinType, "join %d has unsupported type %q", i, j.JoinType)
		}
		if err := validateJoinCondition(i, j); err != nil {
			return err
		}
	}

	for i, f := range cfg.Fields {
		if !aliases[f.TableAlias] {
			return core.NewConfigValidationError(core.RuleFieldRef, "field %d references undeclared table alias %q", i, f.TableAlias)
		}
		if strings.TrimSpace(f.Column) == "" {
			return core.NewConfigValidationError(core.RuleFieldRef, "field %d has no column", i)
		}
		if !f.Aggregation.Valid() {
			return core.NewConfigValidationError(core.RuleAggregation, "field %d has unsupported aggregation %q", i, f.Aggregation)
		}
	}

	for i, f := range cfg.Filters {
		if err := validateFilter(i, f, aliases); err != nil {
			return err
		}
	}
	if len(cfg.Filters) > limits.MaxFilters {
		return core.NewConfigValidationError(core.RuleFilterCount,
			"query has %d filters, at most %d allowed", len(cfg.Filters), limits.MaxFilters)
	}

	outputs := make(map[string]bool, len(cfg.Fields))
	for _, f := range cfg.Fields {
		if f.IsVisible() && strings.TrimSpace(f.Alias) != "" {
			outputs[strings.TrimSpace(f.Alias)] = true
		}
	}

	for _, ref := range cfg.GroupBy {
		if err := validateReference(ref, aliases, outputs); err != nil {
			return err
		}
	}

	for i, o := range cfg.OrderBy {
		if !o.EffectiveDirection().Valid() {
			return core.NewConfigValidationError(core.RuleDirection, "order_by %d has unsupported direction %q", i, o.Direction)
		}
		if err := validateReference(o.Field, aliases, outputs); err != nil {
			return err
		}
	}

	if cfg.Limit != nil && (*cfg.Limit < 1 || *cfg.Limit > limits.MaxLimit) {
		return core.NewConfigValidationError(core.RuleLimit, "limit must be between 1 and %d, got %d", limits.MaxLimit, *cfg.Limit)
	}

	return nil
}

func validateJoinCondition(i int, j core.JoinConfig) error {
	if j.Structured() {
		if j.LeftColumn == "" || j.RightColumn == "" {
			return core.NewConfigValidationError(core.RuleJoinCondition, "join %d needs both left_column and right_column", i)
		}
		if op := joinOperator(j.Operator); !op.Valid() {
			return core.NewConfigValidationError(core.RuleJoinCondition, "join %d has unsupported operator %q", i, j.Operator)
		}
		return nil
	}
	if strings.TrimSpace(j.Condition) == "" {
		return core.NewConfigValidationError(core.RuleJoinCondition, "join %d has no condition", i)
	}
	return safety.CheckJoinCondition(j.Condition)
}

func validateFilter(i int, f core.FilterConfig, aliases map[string]bool) error {
	if !aliases[f.TableAlias] {
		return core.NewConfigValidationError(core.RuleFilterRef, "filter %d references undeclared table alias %q", i, f.TableAlias)
	}
	if strings.TrimSpace(f.Column) == "" {
		return core.NewConfigValidationError(core.RuleFilterRef, "filter %d has no column", i)
	}

	op := f.EffectiveOperator()
	if !op.Valid() {
		return core.NewConfigValidationError(core.RuleOperator, "filter %d has unsupported operator %q", i, f.Operator)
	}
	if op.TakesNoValue() {
		return nil
	}

	values, isList := asList(f.Value)
	switch {
	case op.TakesList():
		if !isList || len(values) == 0 {
			return core.NewConfigValidationError(core.RuleFilterValue, "filter %d: operator %s requires a non-empty list", i, op)
		}
	case op == core.OpBetween:
		if !isList || len(values) != 2 {
			return core.NewConfigValidationError(core.RuleFilterValue, "filter %d: BETWEEN requires exactly 2 values", i)
		}
	default:
		if isList {
			return core.NewConfigValidationError(core.RuleFilterValue, "filter %d: operator %s requires a single value", i, op)
		}
		if f.Value == nil {
			return core.NewConfigValidationError(core.RuleFilterValue, "filter %d: operator %s requires a value, use IS NULL for nulls", i, op)
		}
		values = []any{f.Value}
	}

	dt := f.EffectiveDataType()
	for _, v := range values {
		if v == nil {
			return core.NewConfigValidationError(core.RuleFilterValue, "filter %d: list values may not be null", i)
		}
		if err := safety.CheckValue(v, dt); err != nil {
			return core.NewConfigValidationError(core.RuleFilterValue, "filter %d: %v", i, err)
		}
	}
	return nil
}

// validateReference accepts alias.column for a declared table alias, or a bare
// name that is the output alias of a visible field.
func validateReference(ref string, aliases, outputs map[string]bool) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return core.NewConfigValidationError(core.RuleReference, "empty column reference")
	}
	parts := strings.Split(ref, ".")
	switch len(parts) {
	case 1:
		if !outputs[ref] {
			return core.NewConfigValidationError(core.RuleReference, "reference %q is not an output alias of a visible field", ref)
		}
		return nil
	case 2:
		if !aliases[parts[0]] {
			return core.NewConfigValidationError(core.RuleReference, "reference %q uses undeclared table alias %q", ref, parts[0])
		}
		return nil
	}
	return core.NewConfigValidationError(core.RuleReference, "reference %q must be column or alias.column", ref)
}

// asList converts any slice or array value to []any. Byte slices are not lists.
func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func joinOperator(op string) core.CompareOp {
	op = strings.TrimSpace(op)
	if op == "" {
		return core.CmpEq
	}
	return core.CompareOp(op)
}

package querybuilder

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapquery/internal/safety"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

const identPattern = `[A-Za-z_][A-Za-z0-9_]*`

// joinConditionRe accepts exactly "alias.column OP alias.column".
var joinConditionRe = regexp.MustCompile(`^\s*(` + identPattern + `)\.(` + identPattern + `)\s*(=|!=|<>|>=|<=|>|<)\s*(` + identPattern + `)\.(` + identPattern + `)\s*$`)

// Compile turns a configuration into the closed statement grammar. Every
// identifier passes through s; a nil s uses the default sanitizer.
//
// Compile assumes Validate has passed but still rejects undeclared join
// targets and unsafe identifiers.
func Compile(cfg *core.QueryConfiguration, s *safety.Sanitizer) (*core.SelectStmt, error) {
	if s == nil {
		s = safety.NewSanitizer(0)
	}
	c := &compiler{
		san:     s,
		tables:  make(map[string]core.TableRef, len(cfg.Tables)),
		outputs: make(map[string]bool, len(cfg.Fields)),
	}
	return c.compile(cfg)
}

type compiler struct {
	san     *safety.Sanitizer
	tables  map[string]core.TableRef
	outputs map[string]bool // sanitized output aliases of visible fields
}

func (c *compiler) compile(cfg *core.QueryConfiguration) (*core.SelectStmt, error) {
	if len(cfg.Tables) == 0 {
		return nil, core.NewConfigValidationError(core.RuleTableCount, "query must reference at least one table")
	}

	order := make([]string, 0, len(cfg.Tables))
	for _, t := range cfg.Tables {
		ref, err := c.tableRef(t)
		if err != nil {
			return nil, err
		}
		if _, dup := c.tables[ref.Alias]; dup {
			return nil, core.NewConfigValidationError(core.RuleAliasUnique, "duplicate table alias %q", ref.Alias)
		}
		c.tables[ref.Alias] = ref
		order = append(order, ref.Alias)
	}

	stmt := &core.SelectStmt{
		From: core.FromClause{Source: c.tables[order[0]]},
	}

	for _, j := range cfg.Joins {
		join, err := c.join(j)
		if err != nil {
			return nil, err
		}
		stmt.From.Joins = append(stmt.From.Joins, join)
	}

	for _, f := range cfg.Fields {
		if !f.IsVisible() {
			continue
		}
		item, err := c.selectItem(f)
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, item)
		if item.Alias != "" {
			c.outputs[item.Alias] = true
		}
	}

	for _, f := range cfg.Filters {
		pred, err := c.predicate(f)
		if err != nil {
			return nil, err
		}
		stmt.Where = append(stmt.Where, pred)
	}

	for _, raw := range cfg.GroupBy {
		ref, err := c.reference(raw)
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = append(stmt.GroupBy, ref)
	}

	for _, o := range cfg.OrderBy {
		ref, err := c.reference(o.Field)
		if err != nil {
			return nil, err
		}
		dir := o.EffectiveDirection()
		if !dir.Valid() {
			return nil, core.NewConfigValidationError(core.RuleDirection, "unsupported direction %q", o.Direction)
		}
		stmt.OrderBy = append(stmt.OrderBy, core.OrderByItem{Column: ref, Desc: dir == core.SortDesc})
	}

	if cfg.Limit != nil {
		limit := *cfg.Limit
		stmt.Limit = &limit
	}

	return stmt, nil
}

func (c *compiler) tableRef(t core.TableConfig) (core.TableRef, error) {
	name, err := c.san.Sanitize(t.Name)
	if err != nil {
		return core.TableRef{}, err
	}
	alias, err := c.san.Sanitize(t.Alias)
	if err != nil {
		return core.TableRef{}, err
	}
	ref := core.TableRef{Name: name, Alias: alias}
	if t.Schema != "" {
		if ref.Schema, err = c.san.Sanitize(t.Schema); err != nil {
			return core.TableRef{}, err
		}
	}
	return ref, nil
}

// alias resolves a raw alias to a declared table.
func (c *compiler) alias(raw string) (string, bool, error) {
	alias, err := c.san.Sanitize(raw)
	if err != nil {
		return "", false, err
	}
	_, ok := c.tables[alias]
	return alias, ok, nil
}

func (c *compiler) column(table, raw string) (core.ColumnRef, error) {
	col, err := c.san.Sanitize(raw)
	if err != nil {
		return core.ColumnRef{}, err
	}
	return core.ColumnRef{Table: table, Column: col}, nil
}

func (c *compiler) join(j core.JoinConfig) (core.Join, error) {
	if !j.Structured() {
		// Destructive keywords are refused before anything else is read from the text.
		if err := safety.CheckJoinCondition(j.Condition); err != nil {
			return core.Join{}, err
		}
	}

	right, ok, err := c.alias(j.RightTable)
	if err != nil {
		return core.Join{}, err
	}
	if !ok {
		return core.Join{}, &core.JoinTargetNotFoundError{Alias: j.RightTable}
	}

	joinType := j.EffectiveType()
	if !joinType.Valid() {
		return core.Join{}, core.NewConfigValidationError(core.RuleJoinType, "unsupported join type %q", j.JoinType)
	}

	var on core.JoinCondition
	if j.Structured() {
		on, err = c.structuredCondition(j, right)
	} else {
		on, err = c.parseCondition(j.Condition)
	}
	if err != nil {
		return core.Join{}, err
	}

	return core.Join{Type: joinType, Right: c.tables[right], On: on}, nil
}

// structuredCondition qualifies bare columns with the join's own aliases.
func (c *compiler) structuredCondition(j core.JoinConfig, right string) (core.JoinCondition, error) {
	left, ok, err := c.alias(j.LeftTable)
	if err != nil {
		return core.JoinCondition{}, err
	}
	if !ok {
		return core.JoinCondition{}, &core.JoinTargetNotFoundError{Alias: j.LeftTable}
	}

	lref, err := c.qualified(j.LeftColumn, left)
	if err != nil {
		return core.JoinCondition{}, err
	}
	rref, err := c.qualified(j.RightColumn, right)
	if err != nil {
		return core.JoinCondition{}, err
	}

	op := joinOperator(j.Operator)
	if !op.Valid() {
		return core.JoinCondition{}, core.NewConfigValidationError(core.RuleJoinCondition, "unsupported join operator %q", j.Operator)
	}
	return core.JoinCondition{Left: lref, Op: op, Right: rref}, nil
}

func (c *compiler) qualified(raw, defaultAlias string) (core.ColumnRef, error) {
	if table, col, ok := strings.Cut(raw, "."); ok {
		alias, declared, err := c.alias(table)
		if err != nil {
			return core.ColumnRef{}, err
		}
		if !declared {
			return core.ColumnRef{}, core.NewConfigValidationError(core.RuleJoinCondition, "join column %q uses undeclared alias", raw)
		}
		return c.column(alias, col)
	}
	return c.column(defaultAlias, raw)
}

func (c *compiler) parseCondition(text string) (core.JoinCondition, error) {
	m := joinConditionRe.FindStringSubmatch(text)
	if m == nil {
		return core.JoinCondition{}, core.NewConfigValidationError(core.RuleJoinCondition,
			"join condition %q must have the form alias.column OP alias.column", text)
	}
	for _, alias := range []string{m[1], m[4]} {
		if _, ok := c.tables[alias]; !ok {
			return core.JoinCondition{}, core.NewConfigValidationError(core.RuleJoinCondition,
				"join condition %q uses undeclared alias %q", text, alias)
		}
	}
	left, err := c.column(m[1], m[2])
	if err != nil {
		return core.JoinCondition{}, err
	}
	right, err := c.column(m[4], m[5])
	if err != nil {
		return core.JoinCondition{}, err
	}
	return core.JoinCondition{Left: left, Op: core.CompareOp(m[3]), Right: right}, nil
}

func (c *compiler) selectItem(f core.FieldConfig) (core.SelectItem, error) {
	table, ok, err := c.alias(f.TableAlias)
	if err != nil {
		return core.SelectItem{}, err
	}
	if !ok {
		return core.SelectItem{}, core.NewConfigValidationError(core.RuleFieldRef, "undeclared table alias %q", f.TableAlias)
	}
	col, err := c.column(table, f.Column)
	if err != nil {
		return core.SelectItem{}, err
	}

	agg := f.Aggregation.Normalize()
	if !agg.Valid() {
		return core.SelectItem{}, core.NewConfigValidationError(core.RuleAggregation, "unsupported aggregation %q", f.Aggregation)
	}

	item := core.SelectItem{Column: col, Aggregate: agg}
	if f.Alias != "" {
		if item.Alias, err = c.san.Sanitize(f.Alias); err != nil {
			return core.SelectItem{}, err
		}
	}
	return item, nil
}

func (c *compiler) predicate(f core.FilterConfig) (core.Predicate, error) {
	table, ok, err := c.alias(f.TableAlias)
	if err != nil {
		return core.Predicate{}, err
	}
	if !ok {
		return core.Predicate{}, core.NewConfigValidationError(core.RuleFilterRef, "undeclared table alias %q", f.TableAlias)
	}
	col, err := c.column(table, f.Column)
	if err != nil {
		return core.Predicate{}, err
	}

	op := f.EffectiveOperator()
	dt := f.EffectiveDataType()
	pred := core.Predicate{Left: col, Op: op}

	values, isList := asList(f.Value)
	switch {
	case op.TakesNoValue():
	case op.TakesList():
		if !isList {
			return core.Predicate{}, core.NewConfigValidationError(core.RuleFilterValue, "operator %s requires a list", op)
		}
		list := core.ListLiteral{Values: make([]core.Literal, len(values))}
		for i, v := range values {
			list.Values[i] = core.Literal{Value: v, Type: dt}
		}
		pred.Right = list
	case op == core.OpBetween:
		if !isList || len(values) != 2 {
			return core.Predicate{}, core.NewConfigValidationError(core.RuleFilterValue, "BETWEEN requires exactly 2 values")
		}
		pred.Right = core.RangeLiteral{
			Low:  core.Literal{Value: values[0], Type: dt},
			High: core.Literal{Value: values[1], Type: dt},
		}
	default:
		if isList {
			return core.Predicate{}, core.NewConfigValidationError(core.RuleFilterValue, "operator %s requires a single value", op)
		}
		pred.Right = core.Literal{Value: f.Value, Type: dt}
	}
	return pred, nil
}

// reference resolves a GROUP BY or ORDER BY entry. "alias.column" keeps its
// qualifier; a bare name must be the output alias of a visible field.
func (c *compiler) reference(raw string) (core.ColumnRef, error) {
	table, col, qualified := strings.Cut(strings.TrimSpace(raw), ".")
	if !qualified {
		ref, err := c.column("", table)
		if err != nil {
			return core.ColumnRef{}, err
		}
		if !c.outputs[ref.Column] {
			return core.ColumnRef{}, core.NewConfigValidationError(core.RuleReference, "reference %q is not an output alias of a visible field", raw)
		}
		return ref, nil
	}
	if strings.Contains(col, ".") {
		return core.ColumnRef{}, core.NewConfigValidationError(core.RuleReference, "reference %q must be column or alias.column", raw)
	}
	alias, ok, err := c.alias(table)
	if err != nil {
		return core.ColumnRef{}, err
	}
	if !ok {
		return core.ColumnRef{}, core.NewConfigValidationError(core.RuleReference, "reference %q uses undeclared table alias", raw)
	}
	return c.column(alias, col)
}

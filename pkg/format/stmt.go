package format

import (
	"strconv"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

func (p *Printer) formatSelectStmt(stmt *core.SelectStmt) {
	p.keyword("SELECT")
	p.writeln()

	p.indent()
	if len(stmt.Columns) == 0 {
		p.write("*")
	} else {
		p.formatList(len(stmt.Columns), func(i int) { p.formatSelectItem(stmt.Columns[i]) }, ",", true)
	}
	p.writeln()
	p.dedent()

	p.keyword("FROM")
	p.space()
	p.formatFromClause(stmt.From)
	p.writeln()

	if len(stmt.Where) > 0 {
		p.formatWhere(stmt.Where)
	}

	if len(stmt.GroupBy) > 0 {
		p.keyword("GROUP BY")
		p.writeln()
		p.indent()
		p.formatList(len(stmt.GroupBy), func(i int) { p.formatColumnRef(stmt.GroupBy[i]) }, ",", true)
		p.dedent()
		p.writeln()
	}

	if len(stmt.OrderBy) > 0 {
		p.keyword("ORDER BY")
		p.writeln()
		p.indent()
		p.formatList(len(stmt.OrderBy), func(i int) { p.formatOrderByItem(stmt.OrderBy[i]) }, ",", true)
		p.dedent()
		p.writeln()
	}

	if stmt.Limit != nil {
		p.keyword("LIMIT")
		p.space()
		p.write(strconv.Itoa(*stmt.Limit))
		p.writeln()
	}
}

func (p *Printer) formatSelectItem(item core.SelectItem) {
	if item.Aggregate != core.AggNone {
		agg := string(item.Aggregate.Normalize())
		if !p.dialect.IsAggregate(agg) {
			p.fail(core.NewConfigValidationError(core.RuleAggregation,
				"aggregation %s is not supported by the %s dialect", agg, p.dialect.Name))
			return
		}
		p.keyword(agg)
		p.write("(")
		p.formatColumnRef(item.Column)
		p.write(")")
	} else {
		p.formatColumnRef(item.Column)
	}

	if item.Alias != "" {
		p.space()
		p.keyword("AS")
		p.space()
		p.ident(item.Alias)
	}
}

func (p *Printer) formatFromClause(from core.FromClause) {
	p.formatTableRef(from.Source)
	for _, join := range from.Joins {
		p.writeln()
		p.formatJoin(join)
	}
}

func (p *Printer) formatTableRef(t core.TableRef) {
	if t.Schema != "" {
		p.ident(t.Schema)
		p.write(".")
	}
	p.ident(t.Name)
	if t.Alias != "" {
		p.space()
		p.keyword("AS")
		p.space()
		p.ident(t.Alias)
	}
}

func (p *Printer) formatJoin(join core.Join) {
	joinType := join.Type
	if joinType == "" {
		joinType = core.JoinInner
	}
	if !joinType.Valid() {
		p.fail(core.NewConfigValidationError(core.RuleJoinType, "unsupported join type %q", joinType))
		return
	}

	p.keyword(string(joinType))
	p.space()
	p.keyword("JOIN")
	p.space()
	p.formatTableRef(join.Right)
	p.space()
	p.keyword("ON")
	p.space()
	p.formatJoinCondition(join.On)
}

func (p *Printer) formatJoinCondition(on core.JoinCondition) {
	if !on.Op.Valid() {
		p.fail(core.NewConfigValidationError(core.RuleJoinCondition, "unsupported join operator %q", on.Op))
		return
	}
	p.formatColumnRef(on.Left)
	p.space()
	p.write(string(on.Op))
	p.space()
	p.formatColumnRef(on.Right)
}

func (p *Printer) formatWhere(preds []core.Predicate) {
	p.keyword("WHERE")
	p.writeln()
	p.indent()
	for i, pred := range preds {
		if i > 0 {
			p.writeln()
			p.keyword("AND")
			p.space()
		}
		p.formatPredicate(pred)
	}
	p.dedent()
	p.writeln()
}

func (p *Printer) formatOrderByItem(item core.OrderByItem) {
	p.formatColumnRef(item.Column)
	p.space()
	if item.Desc {
		p.keyword("DESC")
	} else {
		p.keyword("ASC")
	}
}

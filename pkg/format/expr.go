package format

import (
	"github.com/leapstack-labs/leapquery/internal/safety"
	"github.com/leapstack-labs/leapquery/pkg/core"
)

func (p *Printer) formatColumnRef(col core.ColumnRef) {
	if col.Table != "" {
		p.ident(col.Table)
		p.write(".")
	}
	p.ident(col.Column)
}

func (p *Printer) formatPredicate(pred core.Predicate) {
	if !pred.Op.Valid() {
		p.fail(core.NewConfigValidationError(core.RuleOperator, "unsupported operator %q", pred.Op))
		return
	}

	p.formatColumnRef(pred.Left)
	p.space()
	p.keyword(string(pred.Op))

	switch right := pred.Right.(type) {
	case nil:
		if !pred.Op.TakesNoValue() {
			p.fail(core.NewConfigValidationError(core.RuleFilterValue, "operator %s requires a value", pred.Op))
		}
	case core.Literal:
		p.space()
		p.formatLiteral(right)
	case core.ListLiteral:
		if len(right.Values) == 0 {
			p.fail(core.NewConfigValidationError(core.RuleFilterValue, "operator %s requires a non-empty list", pred.Op))
			return
		}
		p.space()
		p.write("(")
		p.formatList(len(right.Values), func(i int) { p.formatLiteral(right.Values[i]) }, ", ", false)
		p.write(")")
	case core.RangeLiteral:
		p.space()
		p.formatLiteral(right.Low)
		p.space()
		p.keyword("AND")
		p.space()
		p.formatLiteral(right.High)
	}
}

// formatLiteral writes a placeholder in bind mode and quoted text in inline mode.
func (p *Printer) formatLiteral(lit core.Literal) {
	if p.opts.Mode == ModeInline {
		text, err := safety.FormatValue(lit.Value, lit.Type)
		if err != nil {
			p.fail(core.NewConfigValidationError(core.RuleFilterValue, "%v", err))
			return
		}
		p.write(text)
		return
	}

	arg, err := safety.BindValue(lit.Value, lit.Type)
	if err != nil {
		p.fail(core.NewConfigValidationError(core.RuleFilterValue, "%v", err))
		return
	}
	p.args = append(p.args, arg)
	p.write(p.dialect.FormatPlaceholder(len(p.args)))
}

package format

import (
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

// Mode selects how literal values are rendered.
type Mode int

const (
	// ModeBind renders each literal as a dialect placeholder and collects the
	// values as driver arguments.
	ModeBind Mode = iota
	// ModeInline renders each literal as quoted SQL text.
	ModeInline
)

// Options controls rendering.
type Options struct {
	Mode   Mode
	Pretty bool // indented multi-line layout
}

// Output is a rendered statement.
type Output struct {
	SQL  string
	Args []any
}

// Format renders stmt for dialect d. A nil dialect selects dialect.Default().
func Format(stmt *core.SelectStmt, d *dialect.Dialect, opts Options) (Output, error) {
	if d == nil {
		d = dialect.Default()
	}
	if stmt == nil {
		return Output{}, core.NewConfigValidationError(core.RuleTableCount, "no statement to render")
	}

	p := newPrinter(d, opts)
	p.formatSelectStmt(stmt)
	if p.err != nil {
		return Output{}, p.err
	}
	return Output{SQL: p.String(), Args: p.args}, nil
}

// Package format renders a core.SelectStmt into SQL text for a dialect.
package format

import (
	"bytes"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

const indentSize = 2

// Printer writes SQL with either a compact single-line layout or an
// indented multi-line layout.
type Printer struct {
	dialect      *dialect.Dialect
	opts         Options
	output       *bytes.Buffer
	depth        int
	atLineStart  bool
	pendingSpace bool

	args []any
	err  error
}

func newPrinter(d *dialect.Dialect, opts Options) *Printer {
	return &Printer{
		dialect:     d,
		opts:        opts,
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the rendered output.
func (p *Printer) String() string {
	if p.opts.Pretty {
		return strings.TrimRight(p.output.String(), "\n") + "\n"
	}
	return p.output.String()
}

func (p *Printer) write(s string) {
	if s == "" {
		return
	}
	if p.atLineStart {
		p.writeIndent()
	} else if p.pendingSpace {
		p.output.WriteByte(' ')
	}
	p.pendingSpace = false
	p.output.WriteString(s)
	p.atLineStart = false
}

// writeln ends the line in pretty mode; in compact mode the next write is
// separated by a single space.
func (p *Printer) writeln() {
	if !p.opts.Pretty {
		p.pendingSpace = true
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *Printer) writeIndent() {
	if p.opts.Pretty {
		for i := 0; i < p.depth*indentSize; i++ {
			p.output.WriteByte(' ')
		}
	}
	p.atLineStart = false
}

func (p *Printer) keyword(s string) {
	p.write(strings.ToUpper(s))
}

func (p *Printer) indent() {
	p.depth++
}

func (p *Printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

func (p *Printer) space() {
	p.pendingSpace = true
}

func (p *Printer) ident(name string) {
	p.write(p.dialect.QuoteIdentifierIfNeeded(name))
}

// fail records the first error; rendering continues but the output is discarded.
func (p *Printer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// formatList prints a list of items with separators.
// count is the number of items, format is called for each index,
// sep is the separator string, multiline adds newlines after separators.
func (p *Printer) formatList(count int, format func(i int), sep string, multiline bool) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
			if multiline {
				p.writeln()
			}
		}
	}
}

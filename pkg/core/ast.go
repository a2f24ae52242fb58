package core

// SelectStmt is the closed grammar a QueryConfiguration compiles to.
// Only pkg/format turns it into SQL text.
type SelectStmt struct {
	Columns []SelectItem // empty means SELECT *
	From    FromClause
	Where   []Predicate // ANDed
	GroupBy []ColumnRef
	OrderBy []OrderByItem
	Limit   *int
}

// SelectItem is one projected expression.
type SelectItem struct {
	Column    ColumnRef
	Aggregate AggregationType // AggNone for a bare column
	Alias     string
}

// ColumnRef references a column, optionally qualified by a table alias.
// An unqualified ref names an output alias.
type ColumnRef struct {
	Table  string
	Column string
}

func (ColumnRef) operandNode() {}

// Qualified reports whether the reference carries a table alias.
func (c ColumnRef) Qualified() bool {
	return c.Table != ""
}

// TableRef is a physical table bound to an alias.
type TableRef struct {
	Schema string
	Name   string
	Alias  string
}

// FromClause is the source table followed by its joins in order.
type FromClause struct {
	Source TableRef
	Joins  []Join
}

// Join attaches Right to the FROM clause.
type Join struct {
	Type  JoinType
	Right TableRef
	On    JoinCondition
}

// JoinCondition is a single column-to-column comparison.
type JoinCondition struct {
	Left  ColumnRef
	Op    CompareOp
	Right ColumnRef
}

// CompareOp is a comparison allowed in a join condition.
type CompareOp string

// Join comparison operators.
const (
	CmpEq    CompareOp = "="
	CmpNotEq CompareOp = "!="
	CmpNe    CompareOp = "<>"
	CmpGt    CompareOp = ">"
	CmpGte   CompareOp = ">="
	CmpLt    CompareOp = "<"
	CmpLte   CompareOp = "<="
)

// Valid reports whether op is a supported join comparison.
func (op CompareOp) Valid() bool {
	switch op {
	case CmpEq, CmpNotEq, CmpNe, CmpGt, CmpGte, CmpLt, CmpLte:
		return true
	}
	return false
}

// Predicate is one WHERE condition: Left Op Right.
type Predicate struct {
	Left  ColumnRef
	Op    FilterOperator
	Right Operand // nil for IS NULL / IS NOT NULL
}

// Operand is the right-hand side of a predicate.
// The set of implementations is closed: Literal, ListLiteral and RangeLiteral.
type Operand interface {
	operandNode()
}

// Literal is a typed scalar value.
type Literal struct {
	Value any
	Type  DataType
}

func (Literal) operandNode() {}

// ListLiteral is the parenthesized value list of IN / NOT IN.
type ListLiteral struct {
	Values []Literal
}

func (ListLiteral) operandNode() {}

// RangeLiteral is the pair of bounds of BETWEEN.
type RangeLiteral struct {
	Low  Literal
	High Literal
}

func (RangeLiteral) operandNode() {}

// OrderByItem is one ORDER BY term.
type OrderByItem struct {
	Column ColumnRef
	Desc   bool
}

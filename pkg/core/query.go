package core

import "strings"

// QueryConfiguration is the declarative description of one relational query.
// It is immutable for the duration of a build-and-execute cycle.
type QueryConfiguration struct {
	DatasourceID string          `json:"datasource_id" yaml:"datasource_id"`
	Tables       []TableConfig   `json:"tables" yaml:"tables"`
	Joins        []JoinConfig    `json:"joins,omitempty" yaml:"joins,omitempty"`
	Fields       []FieldConfig   `json:"fields,omitempty" yaml:"fields,omitempty"`
	Filters      []FilterConfig  `json:"filters,omitempty" yaml:"filters,omitempty"`
	GroupBy      []string        `json:"group_by,omitempty" yaml:"group_by,omitempty"`
	OrderBy      []OrderByConfig `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit        *int            `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// TableConfig declares a table participating in the query under an alias.
type TableConfig struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Alias  string `json:"alias" yaml:"alias"`
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// JoinConfig joins the table declared as RightTable to the query.
//
// The ON condition is given either as free text in Condition
// ("o.customer_id = c.id") or as the structured triple
// LeftColumn/Operator/RightColumn. Free text is parsed into the triple.
type JoinConfig struct {
	LeftTable   string   `json:"left_table" yaml:"left_table"`
	RightTable  string   `json:"right_table" yaml:"right_table"`
	JoinType    JoinType `json:"join_type,omitempty" yaml:"join_type,omitempty"`
	Condition   string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	LeftColumn  string   `json:"left_column,omitempty" yaml:"left_column,omitempty"`
	Operator    string   `json:"operator,omitempty" yaml:"operator,omitempty"`
	RightColumn string   `json:"right_column,omitempty" yaml:"right_column,omitempty"`
}

// EffectiveType returns the join type, defaulting to INNER.
func (j JoinConfig) EffectiveType() JoinType {
	if j.JoinType == "" {
		return JoinInner
	}
	return JoinType(strings.ToUpper(string(j.JoinType)))
}

// Structured reports whether the condition was given as a triple.
func (j JoinConfig) Structured() bool {
	return j.LeftColumn != "" || j.Operator != "" || j.RightColumn != ""
}

// FieldConfig projects a column into the result.
type FieldConfig struct {
	TableAlias  string          `json:"table_alias" yaml:"table_alias"`
	Column      string          `json:"column" yaml:"column"`
	Alias       string          `json:"alias,omitempty" yaml:"alias,omitempty"`
	Aggregation AggregationType `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Visible     *bool           `json:"visible,omitempty" yaml:"visible,omitempty"`
}

// IsVisible reports whether the field appears in the SELECT list. Defaults to true.
func (f FieldConfig) IsVisible() bool {
	return f.Visible == nil || *f.Visible
}

// FilterConfig is one predicate of the WHERE clause.
type FilterConfig struct {
	TableAlias string         `json:"table_alias" yaml:"table_alias"`
	Column     string         `json:"column" yaml:"column"`
	Operator   FilterOperator `json:"operator" yaml:"operator"`
	Value      any            `json:"value,omitempty" yaml:"value,omitempty"`
	DataType   DataType       `json:"data_type,omitempty" yaml:"data_type,omitempty"`
}

// EffectiveDataType returns the data type, defaulting to string.
func (f FilterConfig) EffectiveDataType() DataType {
	if f.DataType == "" {
		return DataTypeString
	}
	return DataType(strings.ToLower(string(f.DataType)))
}

// EffectiveOperator returns the operator normalized to upper case.
func (f FilterConfig) EffectiveOperator() FilterOperator {
	return FilterOperator(strings.ToUpper(strings.TrimSpace(string(f.Operator))))
}

// OrderByConfig orders the result by a column reference or output alias.
type OrderByConfig struct {
	Field     string        `json:"field" yaml:"field"`
	Direction SortDirection `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// EffectiveDirection returns the direction, defaulting to ASC.
func (o OrderByConfig) EffectiveDirection() SortDirection {
	if o.Direction == "" {
		return SortAsc
	}
	return SortDirection(strings.ToUpper(string(o.Direction)))
}

// JoinType is the kind of join between two tables.
type JoinType string

// Join types.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// Valid reports whether the join type is one of the supported kinds.
func (t JoinType) Valid() bool {
	switch t {
	case JoinInner, JoinLeft, JoinRight, JoinFull:
		return true
	}
	return false
}

// AggregationType is an aggregate function applied to a projected field.
type AggregationType string

// Aggregations.
const (
	AggNone        AggregationType = ""
	AggCount       AggregationType = "COUNT"
	AggSum         AggregationType = "SUM"
	AggAvg         AggregationType = "AVG"
	AggMin         AggregationType = "MIN"
	AggMax         AggregationType = "MAX"
	AggGroupConcat AggregationType = "GROUP_CONCAT"
)

// Normalize returns the aggregation in upper case.
func (a AggregationType) Normalize() AggregationType {
	return AggregationType(strings.ToUpper(strings.TrimSpace(string(a))))
}

// Valid reports whether the aggregation is supported. The empty value is valid.
func (a AggregationType) Valid() bool {
	switch a.Normalize() {
	case AggNone, AggCount, AggSum, AggAvg, AggMin, AggMax, AggGroupConcat:
		return true
	}
	return false
}

// FilterOperator is the comparison applied by a filter.
type FilterOperator string

// Filter operators.
const (
	OpEq        FilterOperator = "="
	OpNotEq     FilterOperator = "!="
	OpGt        FilterOperator = ">"
	OpGte       FilterOperator = ">="
	OpLt        FilterOperator = "<"
	OpLte       FilterOperator = "<="
	OpLike      FilterOperator = "LIKE"
	OpNotLike   FilterOperator = "NOT LIKE"
	OpIn        FilterOperator = "IN"
	OpNotIn     FilterOperator = "NOT IN"
	OpIsNull    FilterOperator = "IS NULL"
	OpIsNotNull FilterOperator = "IS NOT NULL"
	OpBetween   FilterOperator = "BETWEEN"
)

// Valid reports whether the operator is supported.
func (o FilterOperator) Valid() bool {
	switch o {
	case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte, OpLike, OpNotLike,
		OpIn, OpNotIn, OpIsNull, OpIsNotNull, OpBetween:
		return true
	}
	return false
}

// TakesList reports whether the operator expects a list value.
func (o FilterOperator) TakesList() bool {
	return o == OpIn || o == OpNotIn
}

// TakesNoValue reports whether the operator ignores the filter value.
func (o FilterOperator) TakesNoValue() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// DataType tells the value formatter how to treat a filter value.
type DataType string

// Data types.
const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeDate    DataType = "date"
	DataTypeBoolean DataType = "boolean"
)

// SortDirection is the ORDER BY direction.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Valid reports whether the direction is ASC or DESC.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTableNotFound is wrapped by adapters when a table has no catalog entry.
var ErrTableNotFound = errors.New("table not found")

// Validation rules reported by ConfigValidationError.
const (
	RuleDatasource    = "datasource"
	RuleTableCount    = "table_count"
	RuleTableName     = "table_name"
	RuleAliasUnique   = "alias_unique"
	RuleJoinRef       = "join_reference"
	RuleJoinType      = "join_type"
	RuleJoinCondition = "join_condition"
	RuleFieldRef      = "field_reference"
	RuleAggregation   = "aggregation"
	RuleFilterRef     = "filter_reference"
	RuleOperator      = "operator"
	RuleFilterValue   = "filter_value"
	RuleFilterCount   = "filter_count"
	RuleReference     = "reference"
	RuleDirection     = "order_direction"
	RuleLimit         = "limit"
	RuleTableExists   = "table_exists"
	RuleColumnExists  = "column_exists"
)

// ConfigValidationError reports a structural violation in a QueryConfiguration.
type ConfigValidationError struct {
	Rule    string
	Message string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid query configuration (%s): %s", e.Rule, e.Message)
}

// NewConfigValidationError builds a ConfigValidationError with a formatted message.
func NewConfigValidationError(rule, format string, args ...any) *ConfigValidationError {
	return &ConfigValidationError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// UnsafeIdentifierError is returned when an identifier cannot be made safe.
type UnsafeIdentifierError struct {
	Identifier string
	Reason     string
}

func (e *UnsafeIdentifierError) Error() string {
	return fmt.Sprintf("unsafe identifier %q: %s", e.Identifier, e.Reason)
}

// SQLSafetyViolation is returned when SQL text matches a dangerous keyword or injection pattern.
type SQLSafetyViolation struct {
	Keyword string // set for keyword matches
	Pattern string // set for injection pattern matches
}

func (e *SQLSafetyViolation) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("dangerous SQL keyword detected: %s", e.Keyword)
	}
	return fmt.Sprintf("potential SQL injection detected: pattern %s", e.Pattern)
}

// JoinTargetNotFoundError is returned when a join references an undeclared alias.
type JoinTargetNotFoundError struct {
	Alias string
}

func (e *JoinTargetNotFoundError) Error() string {
	return fmt.Sprintf("join target table alias %q not found", e.Alias)
}

// UnsupportedBackendError is returned when a datasource type has no registered adapter.
type UnsupportedBackendError struct {
	Type      string
	Available []string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("unsupported database type %q (available: %s)", e.Type, strings.Join(e.Available, ", "))
}

// ConnectionError wraps a failure to open or reach a backend.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ExecutionError wraps a failure while running a statement.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

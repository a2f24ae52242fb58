// Package dialect provides the SQLite SQL dialect definition.
package dialect

import (
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect configuration.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`, dialect.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	Aggregates("SUM", "COUNT", "AVG", "MIN", "MAX", "GROUP_CONCAT", "TOTAL").
	WithReservedWords(
		"abort", "action", "add", "all", "alter", "and", "as", "asc", "between",
		"by", "case", "check", "collate", "column", "commit", "constraint", "create",
		"cross", "default", "delete", "desc", "distinct", "drop", "else", "end",
		"escape", "except", "exists", "foreign", "from", "full", "glob", "group",
		"having", "in", "index", "inner", "insert", "intersect", "into", "is",
		"isnull", "join", "key", "left", "like", "limit", "match", "natural", "not",
		"notnull", "null", "offset", "on", "or", "order", "outer", "primary",
		"references", "regexp", "right", "select", "set", "table", "then", "to",
		"union", "unique", "update", "using", "values", "when", "where", "with",
	).
	Build()

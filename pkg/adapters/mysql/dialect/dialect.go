// Package dialect provides the MySQL SQL dialect definition.
package dialect

import (
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(MySQL)
}

var mysqlReservedWords = []string{
	"accessible", "add", "all", "alter", "and", "as", "asc", "between", "by",
	"call", "case", "change", "check", "column", "condition", "constraint",
	"create", "cross", "database", "default", "delete", "desc", "describe",
	"distinct", "div", "drop", "else", "exists", "explain", "false", "fetch",
	"for", "force", "foreign", "from", "fulltext", "group", "having", "if",
	"ignore", "in", "index", "inner", "insert", "interval", "into", "is", "join",
	"key", "keys", "kill", "left", "like", "limit", "lines", "load", "lock",
	"match", "mod", "natural", "not", "null", "on", "option", "or", "order",
	"outer", "primary", "range", "read", "references", "regexp", "rename",
	"replace", "require", "right", "rlike", "schema", "select", "set", "show",
	"table", "then", "to", "true", "union", "unique", "update", "usage", "use",
	"using", "values", "when", "where", "while", "with", "write", "xor",
}

// MySQL is the MySQL dialect configuration.
// The default schema is the connected database, resolved by the adapter.
var MySQL = dialect.NewDialect("mysql").
	Identifiers("`", "`", "``", dialect.NormCaseSensitive).
	PlaceholderStyle(dialect.PlaceholderQuestion).
	Aggregates(
		"SUM", "COUNT", "AVG", "MIN", "MAX",
		"GROUP_CONCAT", "STD", "STDDEV", "VARIANCE", "BIT_AND", "BIT_OR", "BIT_XOR",
		"JSON_ARRAYAGG", "JSON_OBJECTAGG",
	).
	WithReservedWords(mysqlReservedWords...).
	Build()

// Package dialect provides the DuckDB SQL dialect definition.
// This package is lightweight and has no database driver dependencies.
package dialect

import (
	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect configuration.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`, dialect.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	Aggregates(
		"SUM", "COUNT", "AVG", "MIN", "MAX",
		"STDDEV", "VARIANCE", "LIST", "ARRAY_AGG", "STRING_AGG", "GROUP_CONCAT",
		"FIRST", "LAST", "ANY_VALUE", "MEDIAN", "MODE", "BOOL_AND", "BOOL_OR",
	).
	WithReservedWords(
		"all", "analyse", "analyze", "and", "any", "array", "as", "asc", "asymmetric",
		"both", "case", "cast", "check", "collate", "column", "constraint", "create",
		"default", "deferrable", "desc", "describe", "distinct", "do", "else", "end",
		"except", "false", "fetch", "for", "foreign", "from", "grant", "group",
		"having", "in", "initially", "intersect", "into", "lateral", "leading",
		"limit", "not", "null", "offset", "on", "only", "or", "order", "pivot",
		"placing", "primary", "qualify", "references", "returning", "select",
		"show", "some", "summarize", "symmetric", "table", "then", "to", "trailing",
		"true", "union", "unique", "unpivot", "using", "variadic", "when", "where",
		"window", "with",
	).
	Build()

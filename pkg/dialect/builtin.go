package dialect

// builtinANSI is the backend-neutral dialect used for offline previews.
// It accepts every aggregation a query configuration can name.
var builtinANSI = NewDialect("ansi").
	Identifiers(`"`, `"`, `""`, NormLowercase).
	PlaceholderStyle(PlaceholderQuestion).
	Aggregates("COUNT", "SUM", "AVG", "MIN", "MAX", "GROUP_CONCAT").
	WithReservedWords(
		"all", "and", "as", "asc", "between", "by", "case", "check", "column",
		"constraint", "create", "cross", "default", "delete", "desc", "distinct",
		"drop", "else", "end", "exists", "false", "for", "foreign", "from", "full",
		"group", "having", "in", "inner", "insert", "into", "is", "join", "key",
		"left", "like", "limit", "not", "null", "on", "or", "order", "outer",
		"primary", "references", "right", "select", "table", "then", "to", "true",
		"union", "unique", "update", "user", "using", "values", "when", "where", "with",
	).
	Build()

func init() {
	Register(builtinANSI)
	SetDefault(builtinANSI)
}

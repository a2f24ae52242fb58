package safety

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// DangerousKeywords may not appear as words anywhere in a generated statement.
var DangerousKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER",
	"TRUNCATE", "EXEC", "EXECUTE", "UNION", "SCRIPT",
}

// JoinConditionKeywords may not appear in a free-text join condition.
var JoinConditionKeywords = []string{"DROP", "DELETE", "UPDATE", "INSERT", "UNION"}

// InjectionPatterns are matched against the upper-cased statement with literals masked.
var InjectionPatterns = []string{
	`(\s|^)(OR|AND)\s+\d+\s*=\s*\d+`,
	`(\s|^)(OR|AND)\s+\w+\s*=\s*\w+`,
	`(\s|^)(OR|AND)\s+'[^']*'\s*=\s*'[^']*'`,
	`--`,
	`/\*`,
	`;\s*(DROP|DELETE|UPDATE|INSERT)`,
}

// stringLiteral matches a single-quoted SQL literal, '' escapes included.
var stringLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)

// maskLiterals empties every string literal so inline values are not read as SQL.
func maskLiterals(sql string) string {
	return stringLiteral.ReplaceAllLiteralString(sql, "''")
}

type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp
}

// Validator is the final check over a fully assembled statement.
type Validator struct {
	keywords []keywordMatcher
	patterns []*regexp.Regexp
}

// NewValidator compiles the keyword blacklist and injection patterns.
func NewValidator() *Validator {
	v := &Validator{}
	for _, kw := range DangerousKeywords {
		v.keywords = append(v.keywords, keywordMatcher{keyword: kw, re: wordRegexp(kw)})
	}
	for _, p := range InjectionPatterns {
		v.patterns = append(v.patterns, regexp.MustCompile(p))
	}
	return v
}

// Validate returns a *core.SQLSafetyViolation for the first keyword or pattern matched.
// String literals are masked first, so inline and bound renderings of the same
// statement get the same verdict.
func (v *Validator) Validate(sql string) error {
	upper := strings.ToUpper(maskLiterals(sql))
	for _, kw := range v.keywords {
		if kw.re.MatchString(upper) {
			return &core.SQLSafetyViolation{Keyword: kw.keyword}
		}
	}
	for _, re := range v.patterns {
		if re.MatchString(upper) {
			return &core.SQLSafetyViolation{Pattern: re.String()}
		}
	}
	return nil
}

var joinConditionMatchers = func() []keywordMatcher {
	m := make([]keywordMatcher, 0, len(JoinConditionKeywords))
	for _, kw := range JoinConditionKeywords {
		m = append(m, keywordMatcher{keyword: kw, re: wordRegexp(kw)})
	}
	return m
}()

// CheckJoinCondition rejects free-text join conditions naming a destructive keyword.
func CheckJoinCondition(condition string) error {
	upper := strings.ToUpper(condition)
	for _, kw := range joinConditionMatchers {
		if kw.re.MatchString(upper) {
			return &core.SQLSafetyViolation{Keyword: kw.keyword}
		}
	}
	return nil
}

// wordRegexp matches kw as a whole word, so UPDATED_AT does not match UPDATE.
func wordRegexp(kw string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
}

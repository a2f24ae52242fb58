// Package safety implements the identifier, literal and statement checks that
// stand between a query configuration and the SQL text sent to a database.
package safety

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

// DefaultMaxIdentifierLength is the longest identifier accepted by default.
const DefaultMaxIdentifierLength = 64

// controlSequences are rejected outright instead of stripped: an identifier
// carrying them was written to escape its position in the statement.
var controlSequences = []string{";", "'", `"`, "`", "--", "/*", "*/", "(", ")", "="}

// Sanitizer cleans raw identifiers against the [A-Za-z0-9_] allow-list.
type Sanitizer struct {
	MaxLength int
}

// NewSanitizer returns a Sanitizer. maxLength <= 0 selects DefaultMaxIdentifierLength.
func NewSanitizer(maxLength int) *Sanitizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxIdentifierLength
	}
	return &Sanitizer{MaxLength: maxLength}
}

var defaultSanitizer = NewSanitizer(DefaultMaxIdentifierLength)

// SanitizeIdentifier cleans raw with the default Sanitizer.
func SanitizeIdentifier(raw string) (string, error) {
	return defaultSanitizer.Sanitize(raw)
}

// Sanitize strips every character outside [A-Za-z0-9_] and returns the result.
// It fails with *core.UnsafeIdentifierError when raw contains a statement
// control sequence, or when the cleaned name is empty, starts with a digit or
// is longer than MaxLength.
func (s *Sanitizer) Sanitize(raw string) (string, error) {
	for _, seq := range controlSequences {
		if strings.Contains(raw, seq) {
			return "", &core.UnsafeIdentifierError{Identifier: raw, Reason: fmt.Sprintf("contains %q", seq)}
		}
	}

	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, raw)

	switch {
	case clean == "":
		return "", &core.UnsafeIdentifierError{Identifier: raw, Reason: "empty after sanitization"}
	case clean[0] >= '0' && clean[0] <= '9':
		return "", &core.UnsafeIdentifierError{Identifier: raw, Reason: "must start with a letter or underscore"}
	case s.MaxLength > 0 && len(clean) > s.MaxLength:
		return "", &core.UnsafeIdentifierError{Identifier: raw, Reason: fmt.Sprintf("longer than %d characters", s.MaxLength)}
	}
	return clean, nil
}

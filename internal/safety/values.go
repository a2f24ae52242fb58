package safety

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/leapquery/pkg/core"
)

var numberText = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

// FormatValue renders value as SQL literal text for the declared data type.
//
//	nil      -> NULL
//	string   -> 'text' with ' doubled
//	number   -> decimal text, unquoted
//	date     -> 'ISO text', unchanged
//	boolean  -> 1 or 0
//
// Unknown data types use the string rule.
func FormatValue(value any, dataType core.DataType) (string, error) {
	if value == nil {
		return "NULL", nil
	}

	switch dataType {
	case core.DataTypeNumber:
		n, err := toNumberText(value)
		if err != nil {
			return "", err
		}
		return n, nil
	case core.DataTypeBoolean:
		b, err := toBool(value)
		if err != nil {
			return "", err
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case core.DataTypeDate:
		d, err := toDateText(value)
		if err != nil {
			return "", err
		}
		return quote(d), nil
	default:
		s, err := toText(value)
		if err != nil {
			return "", err
		}
		return quote(s), nil
	}
}

// BindValue converts value into a driver argument for the declared data type.
// It accepts exactly the values FormatValue accepts.
func BindValue(value any, dataType core.DataType) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch dataType {
	case core.DataTypeNumber:
		n, err := toNumberText(value)
		if err != nil {
			return nil, err
		}
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("number %s out of range: %w", n, err)
		}
		return f, nil
	case core.DataTypeBoolean:
		return toBool(value)
	case core.DataTypeDate:
		return toDateText(value)
	default:
		return toText(value)
	}
}

// CheckValue reports whether value is acceptable for the declared data type.
func CheckValue(value any, dataType core.DataType) error {
	_, err := FormatValue(value, dataType)
	return err
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func toNumberText(value any) (string, error) {
	var s string
	switch v := value.(type) {
	case json.Number:
		s = v.String()
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case string:
		s = strings.TrimSpace(v)
	default:
		return "", fmt.Errorf("value %v (%T) is not a number", value, value)
	}
	if !numberText.MatchString(s) {
		return "", fmt.Errorf("value %q is not a number", s)
	}
	return s, nil
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
	case json.Number:
		switch v.String() {
		case "1":
			return true, nil
		case "0":
			return false, nil
		}
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return false, fmt.Errorf("value %v (%T) is not a boolean", value, value)
}

func toDateText(value any) (string, error) {
	switch v := value.(type) {
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format("2006-01-02"), nil
		}
		return v.Format(time.RFC3339), nil
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return s, nil
			}
		}
		return "", fmt.Errorf("value %q is not an ISO date", v)
	}
	return "", fmt.Errorf("value %v (%T) is not a date", value, value)
}

func toText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	case time.Time:
		return v.Format(time.RFC3339), nil
	}
	return "", fmt.Errorf("value %v (%T) is not a scalar", value, value)
}

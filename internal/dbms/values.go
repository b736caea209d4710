// ABOUTME: Conversions between Go values and engine column/binding values
// ABOUTME: Follows SQLite's own coercions so both backends read alike

package dbms

import (
	"database/sql/driver"
	"math"
	"strconv"
	"strings"
	"time"
)

// toDriverValue maps a caller value onto the binding set
// {int32, int64, double, bool, string, null}.
func toDriverValue(v any) (driver.Value, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		return x, nil
	default:
		return nil, ErrUnsupportedType
	}
}

func toInt64(v driver.Value) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case float64:
		if math.IsNaN(x) {
			return 0
		}
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return parseInt(x)
	case []byte:
		return parseInt(string(x))
	case time.Time:
		return x.Unix()
	default:
		return 0
	}
}

func toFloat64(v driver.Value) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return parseFloat(x)
	case []byte:
		return parseFloat(string(x))
	default:
		return 0
	}
}

func toString(v driver.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatReal(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// formatReal renders a REAL the way sqlite3_column_text does ("%!.15g"):
// 15 significant digits, and always a fractional part, so 1.0 reads "1.0"
// and 1e20 reads "1.0e+20".
func formatReal(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	mantissa, exp, hasExp := strings.Cut(s, "e")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	if hasExp {
		return mantissa + "e" + exp
	}
	return mantissa
}

// parseInt reads the longest integer prefix of s, as sqlite3_column_int does.
func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		if f := parseFloat(s); f != 0 {
			return int64(f)
		}
		return 0
	}
	return n
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

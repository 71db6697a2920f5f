// internal/rules/coercion.go
package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solatis/expenserules/internal/types"
)

/*
 * Type coercion for rule evaluation.
 *
 * Expense records arrive as loosely typed maps (JSON numbers as float64,
 * amounts as strings from OCR, dates as strings or time.Time). Each
 * condition type needs one comparison domain:
 *
 *   - NUMERIC: decimal.Decimal. Accepts numbers and numeric strings,
 *     rejects booleans. Decimal avoids 0.1+0.2 style surprises on money.
 *   - DATE: calendar day (UTC midnight). Accepts time.Time, 2006-01-02 and
 *     RFC3339 strings.
 *   - TEXT: lenient, every scalar becomes its string form.
 *   - BOOLEAN: bool or a strconv.ParseBool string.
 *
 * A value that cannot enter its domain returns ErrCoercionFailed, which the
 * evaluator turns into a non-match. Nothing here panics.
 */

// Kind is the comparison domain of a condition type.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindDate
	KindBoolean
)

// KindOf maps a condition type to its comparison domain.
func KindOf(ct types.ConditionType) Kind {
	switch ct {
	case types.ConditionAmount:
		return KindNumeric
	case types.ConditionDate:
		return KindDate
	case types.ConditionAlcoholMention:
		return KindBoolean
	default:
		return KindText
	}
}

// dateLayouts are tried in order when parsing date strings.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// Coerce converts value into the domain of kind.
func Coerce(value any, kind Kind) (any, error) {
	if value == nil {
		return nil, types.ErrCoercionFailed
	}
	switch kind {
	case KindNumeric:
		return coerceNumeric(value)
	case KindDate:
		return coerceDate(value)
	case KindBoolean:
		return coerceBoolean(value)
	default:
		return coerceText(value)
	}
}

// maxExponent bounds the decimal exponent of a coerced number. Comparing
// decimals rescales through big.Int, so an exponent like 1e2000000000
// would stall evaluation.
const maxExponent = 64

// coerceNumeric converts to decimal.Decimal. Whitespace-only strings,
// booleans, NaN, infinities and exponents beyond maxExponent fail.
func coerceNumeric(value any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, types.ErrCoercionFailed
		}
		d = decimal.NewFromFloat(v)
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Decimal{}, types.ErrCoercionFailed
		}
		d = decimal.NewFromFloat32(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int32:
		d = decimal.NewFromInt32(v)
	case int64:
		d = decimal.NewFromInt(v)
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return decimal.Decimal{}, types.ErrCoercionFailed
		}
		parsed, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Decimal{}, types.ErrCoercionFailed
		}
		d = parsed
	default:
		return decimal.Decimal{}, types.ErrCoercionFailed
	}
	if exp := d.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Decimal{}, types.ErrCoercionFailed
	}
	return d, nil
}

// coerceDate truncates to the calendar day so "=" means "on date".
func coerceDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return truncateDay(v), nil
	case string:
		v = strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return truncateDay(t), nil
			}
		}
		return time.Time{}, types.ErrCoercionFailed
	default:
		return time.Time{}, types.ErrCoercionFailed
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// coerceText converts every scalar to its string representation.
func coerceText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	case decimal.Decimal:
		return v.String(), nil
	case time.Time:
		return v.Format("2006-01-02"), nil
	case fmt.Stringer:
		return v.String(), nil
	case map[string]any, []any:
		return "", types.ErrCoercionFailed
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// coerceBoolean accepts bools and ParseBool strings ("true", "1", "F", ...).
func coerceBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, types.ErrCoercionFailed
		}
		return b, nil
	default:
		return false, types.ErrCoercionFailed
	}
}

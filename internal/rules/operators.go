// internal/rules/operators.go
package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solatis/expenserules/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Values reach Compare already coerced into one domain (decimal, day,
 * string or bool). Target shape depends on the operator:
 *
 *   - =, !=, >, <, >=, <=, contains, ...: a single coerced value
 *   - between: Bounds{Lower, Upper}, inclusive on both ends
 *   - in, notIn: []any of coerced values
 *
 * Ordering operators only apply to decimals and days; anything else is
 * incomparable and yields false, as does a target of the wrong shape.
 * Text equality and substring tests are case-insensitive.
 */

// Bounds is the target of a between comparison.
type Bounds struct {
	Lower any
	Upper any
}

// Compare applies op to value and target. Unknown operators return false.
func Compare(op types.Operator, value, target any) bool {
	switch op {
	case types.OpEq:
		return compareEqual(value, target)
	case types.OpNeq:
		return sameDomain(value, target) && !compareEqual(value, target)
	case types.OpGt:
		c, ok := compareOrder(value, target)
		return ok && c > 0
	case types.OpLt:
		c, ok := compareOrder(value, target)
		return ok && c < 0
	case types.OpGte:
		c, ok := compareOrder(value, target)
		return ok && c >= 0
	case types.OpLte:
		c, ok := compareOrder(value, target)
		return ok && c <= 0
	case types.OpBetween:
		return compareBetween(value, target)
	case types.OpContains:
		return compareText(value, target, strings.Contains)
	case types.OpDoesNotContain:
		return compareText(value, target, func(s, sub string) bool { return !strings.Contains(s, sub) })
	case types.OpStartsWith:
		return compareText(value, target, strings.HasPrefix)
	case types.OpEndsWith:
		return compareText(value, target, strings.HasSuffix)
	case types.OpIn:
		set, ok := target.([]any)
		return ok && compareIn(value, set)
	case types.OpNotIn:
		set, ok := target.([]any)
		return ok && !compareIn(value, set)
	default:
		return false
	}
}

// sameDomain reports whether both values live in the same domain, so a
// negated comparison does not turn a type mismatch into a match.
func sameDomain(a, b any) bool {
	switch a.(type) {
	case decimal.Decimal:
		_, ok := b.(decimal.Decimal)
		return ok
	case time.Time:
		_, ok := b.(time.Time)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	default:
		return false
	}
}

// compareEqual performs domain-aware equality.
func compareEqual(a, b any) bool {
	switch av := a.(type) {
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		return ok && av.Equal(bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case string:
		bv, ok := b.(string)
		return ok && strings.EqualFold(strings.TrimSpace(av), strings.TrimSpace(bv))
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// compareOrder performs three-way comparison for decimals and days.
// ok is false for incomparable values.
func compareOrder(a, b any) (int, bool) {
	switch av := a.(type) {
	case decimal.Decimal:
		bv, ok := b.(decimal.Decimal)
		if !ok {
			return 0, false
		}
		return av.Cmp(bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	default:
		return 0, false
	}
}

// compareBetween checks Lower <= value <= Upper.
func compareBetween(value, target any) bool {
	b, ok := target.(Bounds)
	if !ok {
		return false
	}
	lo, ok := compareOrder(value, b.Lower)
	if !ok || lo < 0 {
		return false
	}
	hi, ok := compareOrder(value, b.Upper)
	return ok && hi <= 0
}

// compareText lower-cases both strings before applying test.
// Returns false for non-string values.
func compareText(value, target any, test func(s, sub string) bool) bool {
	vs, ok1 := value.(string)
	ts, ok2 := target.(string)
	if !ok1 || !ok2 {
		return false
	}
	return test(strings.ToLower(vs), strings.ToLower(ts))
}

// compareIn checks if value equals any element of set.
func compareIn(value any, set []any) bool {
	for _, elem := range set {
		if compareEqual(value, elem) {
			return true
		}
	}
	return false
}

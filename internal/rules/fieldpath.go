// internal/rules/fieldpath.go
package rules

import (
	"strconv"
	"strings"

	"github.com/solatis/expenserules/internal/types"
)

/*
 * Field resolution for expense records.
 *
 * Well-known fields are top-level keys. Custom fields may name a dotted
 * path into nested maps or lists ("custom.project.code", "attendees.0"),
 * bounded by MaxPathDepth.
 *
 * An exact top-level key always wins over path splitting, so a field
 * literally named "cost.center" still resolves.
 */

// ResolveResult contains the resolved value and whether it was found.
type ResolveResult struct {
	Value any
	Found bool
}

// Resolve looks up field in expense.
// Returns ErrPathTooDeep if the path exceeds MaxPathDepth segments.
// Returns ErrFieldNotFound if any segment does not exist.
func Resolve(field string, expense types.Expense) (ResolveResult, error) {
	if field == "" {
		return ResolveResult{}, types.ErrFieldNotFound
	}
	if v, ok := expense[field]; ok {
		if v == nil {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return ResolveResult{Value: v, Found: true}, nil
	}

	segments := strings.Split(field, ".")
	if len(segments) > types.MaxPathDepth {
		return ResolveResult{}, types.ErrPathTooDeep
	}
	if len(segments) == 1 {
		return ResolveResult{}, types.ErrFieldNotFound
	}
	return resolveRecursive(segments, map[string]any(expense))
}

// resolveRecursive walks one segment at a time through maps and lists.
func resolveRecursive(segments []string, current any) (ResolveResult, error) {
	if len(segments) == 0 {
		if current == nil {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return ResolveResult{Value: current, Found: true}, nil
	}

	seg := segments[0]
	remaining := segments[1:]

	switch v := current.(type) {
	case map[string]any:
		next, ok := v[seg]
		if !ok {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, next)
	case types.Expense:
		return resolveRecursive(segments, map[string]any(v))
	case map[string]string:
		next, ok := v[seg]
		if !ok {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, next)
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[idx])
	default:
		// Scalar value but path continues
		return ResolveResult{}, types.ErrFieldNotFound
	}
}

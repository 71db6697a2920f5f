// internal/rules/validate.go
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/expenserules/internal/types"
)

/*
 * Rule validation.
 *
 * Validate walks a whole rule and reports every problem it finds instead
 * of stopping at the first one, so an editor can mark all offending nodes
 * at once. It never mutates the rule.
 *
 * Checks:
 *   1. Rule: non-empty name, non-empty countries, "All" not mixed with
 *      explicit countries, root group present
 *   2. Tree: well-formed nodes, non-empty unique ids, depth bounded by
 *      MaxTreeDepth, AND/OR group operators
 *   3. Leaves: registered condition type and operator, field named,
 *      value shape matching the operator, values parseable in the
 *      condition's comparison domain
 *   4. Actions: registered types, requireAdditionalInfo carries fields,
 *      field names unique per action, select fields carry options
 *
 * Ids are unique across nodes, actions and fields of one rule since the
 * mutation API addresses all of them by id.
 *
 * Evaluation never depends on validation; an invalid rule simply fails
 * closed at the offending condition.
 */

// Problem is one validation finding. NodeID names the condition, group,
// action or field at fault and is empty for rule-level problems.
type Problem struct {
	NodeID  string
	Err     error
	Message string
}

// Error returns the human-readable message.
func (p Problem) Error() string {
	if p.NodeID == "" {
		return p.Message
	}
	return p.NodeID + ": " + p.Message
}

// Unwrap returns the sentinel error.
func (p Problem) Unwrap() error { return p.Err }

// ValidationError aggregates the problems of one rule. It matches
// types.ErrInvalidRule and every problem sentinel under errors.Is.
type ValidationError struct {
	RuleID   types.RuleID
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("rule %s: %d problem(s): %s", e.RuleID, len(e.Problems), strings.Join(msgs, "; "))
}

// Unwrap exposes types.ErrInvalidRule followed by every problem.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Problems)+1)
	errs = append(errs, types.ErrInvalidRule)
	for _, p := range e.Problems {
		errs = append(errs, p)
	}
	return errs
}

// AsValidationError extracts a *ValidationError from err's chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Validate returns every problem in rule. An empty result means the rule
// is well-formed.
func Validate(rule *types.Rule) []Problem {
	if rule == nil {
		return []Problem{{Err: types.ErrMissingRoot, Message: "rule is nil"}}
	}
	v := &validator{seen: make(map[string]struct{})}
	v.rule(rule)
	return v.problems
}

// Check wraps Validate: nil when rule is valid, a *ValidationError
// otherwise.
func Check(rule *types.Rule) error {
	problems := Validate(rule)
	if len(problems) == 0 {
		return nil
	}
	var id types.RuleID
	if rule != nil {
		id = rule.ID
	}
	return &ValidationError{RuleID: id, Problems: problems}
}

type validator struct {
	problems []Problem
	seen     map[string]struct{}
}

func (v *validator) add(nodeID string, err error, format string, args ...any) {
	v.problems = append(v.problems, Problem{
		NodeID:  nodeID,
		Err:     err,
		Message: fmt.Sprintf(format, args...),
	})
}

// id checks that id is non-empty and unused.
func (v *validator) id(id, what string) {
	if id == "" {
		v.add("", types.ErrEmptyID, "%s has no id", what)
		return
	}
	if _, dup := v.seen[id]; dup {
		v.add(id, types.ErrDuplicateID, "%s id is used more than once", what)
		return
	}
	v.seen[id] = struct{}{}
}

func (v *validator) rule(r *types.Rule) {
	if strings.TrimSpace(r.Name) == "" {
		v.add("", types.ErrEmptyName, "rule name is empty")
	}

	switch {
	case len(r.Countries) == 0:
		v.add("", types.ErrNoCountries, "rule has no countries")
	case r.Unrestricted() && len(r.Countries) > 1:
		v.add("", types.ErrMixedCountries, "%q cannot be combined with %s",
			types.AllCountries, strings.Join(r.Countries, ", "))
	}

	if r.RootCondition == nil {
		v.add("", types.ErrMissingRoot, "rule has no root condition")
	} else {
		v.group(r.RootCondition, 0)
	}

	for i := range r.Actions {
		v.action(&r.Actions[i])
	}
}

func (v *validator) node(n types.Node, depth int) {
	switch {
	case n.Kind == types.KindLeaf && n.Leaf != nil && n.Group == nil:
		v.leaf(n.Leaf)
	case n.Kind == types.KindGroup && n.Group != nil && n.Leaf == nil:
		v.group(n.Group, depth)
	default:
		v.add(n.ID(), types.ErrMalformedNode, "node of kind %q does not hold exactly one matching payload", n.Kind)
	}
}

func (v *validator) group(g *types.GroupCondition, depth int) {
	if depth > types.MaxTreeDepth {
		v.add(g.ID, types.ErrTreeTooDeep, "group nested deeper than %d levels", types.MaxTreeDepth)
		return
	}
	v.id(g.ID, "group")
	if !g.LogicalOperator.Valid() {
		v.add(g.ID, types.ErrInvalidLogicalOperator, "logical operator %q is not AND or OR", g.LogicalOperator)
	}
	for _, child := range g.Children {
		v.node(child, depth+1)
	}
}

func (v *validator) leaf(c *types.SimpleCondition) {
	v.id(c.ID, "condition")

	if !c.ConditionType.Valid() {
		v.add(c.ID, types.ErrUnknownConditionType, "condition type %q is not registered", c.ConditionType)
		return
	}
	if !c.ConditionType.Allows(c.Operator) {
		v.add(c.ID, types.ErrInvalidOperator, "operator %q is not allowed for %s", c.Operator, c.ConditionType.Label())
		return
	}
	if strings.TrimSpace(c.Field) == "" {
		v.add(c.ID, types.ErrEmptyField, "condition names no field")
	}

	kind := KindOf(c.ConditionType)
	switch c.Operator {
	case types.OpBetween:
		if c.Value.IsList {
			v.add(c.ID, types.ErrListNotAllowed, "between takes a single lower bound")
			return
		}
		if strings.TrimSpace(c.ValueSecondary) == "" {
			v.add(c.ID, types.ErrMissingSecondary, "between requires an upper bound")
		} else {
			v.value(c, kind, c.ValueSecondary)
		}
		v.value(c, kind, c.Value.Text)
	case types.OpIn, types.OpNotIn:
		items := c.Value.Strings()
		if len(items) > types.MaxInValues {
			v.add(c.ID, types.ErrTooManyInValues, "%d values exceed the limit of %d", len(items), types.MaxInValues)
			return
		}
		for _, item := range items {
			v.value(c, kind, item)
		}
	default:
		if c.Value.IsList {
			v.add(c.ID, types.ErrListNotAllowed, "operator %q takes a single value", c.Operator)
			return
		}
		if kind == KindBoolean && strings.TrimSpace(c.Value.Text) == "" {
			return
		}
		v.value(c, kind, c.Value.Text)
	}
}

// value checks that text enters the comparison domain of kind.
func (v *validator) value(c *types.SimpleCondition, kind Kind, text string) {
	if _, err := Coerce(text, kind); err == nil {
		return
	}
	switch kind {
	case KindNumeric:
		v.add(c.ID, types.ErrInvalidNumber, "%q is not a number", text)
	case KindDate:
		v.add(c.ID, types.ErrInvalidDate, "%q is not a date", text)
	case KindBoolean:
		v.add(c.ID, types.ErrInvalidBoolean, "%q is not a boolean", text)
	}
}

func (v *validator) action(a *types.RuleAction) {
	v.id(a.ID, "action")
	if !a.ActionType.Valid() {
		v.add(a.ID, types.ErrUnknownActionType, "action type %q is not registered", a.ActionType)
	}
	if a.ActionType == types.ActionRequireAdditionalInfo && len(a.Fields) == 0 {
		v.add(a.ID, types.ErrMissingFields, "%s requires at least one field", a.ActionType.Label())
	}

	names := make(map[string]struct{}, len(a.Fields))
	for i := range a.Fields {
		f := &a.Fields[i]
		v.id(f.ID, "field")
		name := strings.TrimSpace(f.Name)
		if name == "" {
			v.add(f.ID, types.ErrEmptyFieldName, "field has no name")
		} else if _, dup := names[name]; dup {
			v.add(f.ID, types.ErrDuplicateFieldName, "field name %q is used more than once", name)
		} else {
			names[name] = struct{}{}
		}
		if !f.FieldType.Valid() {
			v.add(f.ID, types.ErrUnknownFieldType, "field type %q is not registered", f.FieldType)
		} else if f.FieldType.NeedsOptions() && len(f.Options) == 0 {
			v.add(f.ID, types.ErrMissingOptions, "%s field requires options", f.FieldType)
		}
	}
}

// internal/rules/evaluate.go
package rules

import (
	"sort"
	"strings"

	"github.com/solatis/expenserules/internal/types"
)

/*
 * Rule evaluation.
 *
 * Applies a rule to one expense record:
 *   1. Inactive rules never match.
 *   2. Country gate: unless the rule lists "All", the expense country must
 *      be one of the rule's countries (trimmed, case-insensitive).
 *   3. Condition tree: empty group = true, AND = all children, OR = any
 *      child, short-circuit, cheapest child first (see cost.go).
 *   4. Leaf: registered operator -> resolve field -> coerce -> build
 *      target -> compare.
 *   5. On match, every action of the rule fires in display order.
 *
 * Failure policy: every malformed input (unregistered operator, missing
 * field, uncoercible value, between without upper bound, node kind
 * mismatch, runaway depth) makes the affected condition false. Evaluation
 * never returns an error and never panics, so one broken rule cannot stop
 * the others from being evaluated.
 */

// Result is the outcome of applying one rule to one expense.
type Result struct {
	RuleID       types.RuleID
	RuleName     string
	Matches      bool
	FiredActions []types.RuleAction
}

// Applies evaluates rule against expense.
func Applies(rule *types.Rule, expense types.Expense) Result {
	if rule == nil {
		return Result{}
	}
	result := Result{
		RuleID:   rule.ID,
		RuleName: rule.Name,
	}
	if !rule.IsActive {
		return result
	}
	if !countryApplies(rule, expense) {
		return result
	}
	if rule.RootCondition == nil {
		return result
	}
	if !evaluateGroup(rule.RootCondition, expense, 0) {
		return result
	}

	result.Matches = true
	result.FiredActions = make([]types.RuleAction, len(rule.Actions))
	for i, a := range rule.Actions {
		result.FiredActions[i] = a.Clone()
	}
	return result
}

// EvaluateAll applies every rule and returns the matching results in
// input order.
func EvaluateAll(rules []*types.Rule, expense types.Expense) []Result {
	var matched []Result
	for _, rule := range rules {
		if r := Applies(rule, expense); r.Matches {
			matched = append(matched, r)
		}
	}
	return matched
}

// countryApplies implements the country gate. An empty country list
// fails closed.
func countryApplies(rule *types.Rule, expense types.Expense) bool {
	if rule.Unrestricted() {
		return true
	}
	raw, ok := expense[types.FieldCountry]
	if !ok {
		return false
	}
	country, ok := raw.(string)
	if !ok {
		return false
	}
	country = strings.TrimSpace(country)
	for _, c := range rule.Countries {
		if strings.EqualFold(strings.TrimSpace(c), country) {
			return true
		}
	}
	return false
}

// evaluateNode dispatches on the node variant. Malformed nodes are false.
func evaluateNode(n types.Node, expense types.Expense, depth int) bool {
	switch {
	case n.IsLeaf():
		matched, _ := evaluateCondition(n.Leaf, expense)
		return matched
	case n.IsGroup():
		return evaluateGroup(n.Group, expense, depth+1)
	default:
		return false
	}
}

// evaluateGroup combines children with AND/OR, short-circuiting.
func evaluateGroup(g *types.GroupCondition, expense types.Expense, depth int) bool {
	if depth > types.MaxTreeDepth {
		return false
	}
	if len(g.Children) == 0 {
		return true
	}

	switch g.LogicalOperator {
	case types.LogicalAnd:
		for _, child := range byCost(g.Children) {
			if !evaluateNode(child, expense, depth) {
				return false
			}
		}
		return true
	case types.LogicalOr:
		for _, child := range byCost(g.Children) {
			if evaluateNode(child, expense, depth) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// byCost returns children ordered by ascending NodeCost. Stable sort keeps
// equal-cost children in display order.
func byCost(children []types.Node) []types.Node {
	if len(children) < 2 {
		return children
	}
	type costed struct {
		node types.Node
		cost int
	}
	tmp := make([]costed, len(children))
	for i, child := range children {
		tmp[i] = costed{child, NodeCost(child)}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		return tmp[i].cost < tmp[j].cost
	})
	out := make([]types.Node, len(tmp))
	for i, c := range tmp {
		out[i] = c.node
	}
	return out
}

// Reasons reported by evaluateCondition when a leaf does not match for a
// reason other than the comparison itself.
const (
	reasonInvalidOperator = "operator not registered for condition type"
	reasonMissingField    = "field missing from expense"
	reasonCoercion        = "expense value has the wrong type"
	reasonInvalidTarget   = "condition value unusable for operator"
	reasonNoMatch         = "comparison false"
)

// evaluateCondition evaluates one leaf. The reason is empty on a match.
func evaluateCondition(c *types.SimpleCondition, expense types.Expense) (bool, string) {
	if !c.ConditionType.Allows(c.Operator) {
		return false, reasonInvalidOperator
	}

	resolved, err := Resolve(c.Field, expense)
	if err != nil || !resolved.Found {
		return false, reasonMissingField
	}

	kind := KindOf(c.ConditionType)
	value, err := Coerce(resolved.Value, kind)
	if err != nil {
		return false, reasonCoercion
	}

	target, ok := buildTarget(c, kind)
	if !ok {
		return false, reasonInvalidTarget
	}

	if !Compare(c.Operator, value, target) {
		return false, reasonNoMatch
	}
	return true, ""
}

// buildTarget coerces the condition value into the comparison domain in
// the shape Compare expects for the operator.
func buildTarget(c *types.SimpleCondition, kind Kind) (any, bool) {
	switch c.Operator {
	case types.OpBetween:
		if c.Value.IsList || c.ValueSecondary == "" {
			return nil, false
		}
		lo, err := Coerce(c.Value.Text, kind)
		if err != nil {
			return nil, false
		}
		hi, err := Coerce(c.ValueSecondary, kind)
		if err != nil {
			return nil, false
		}
		return Bounds{Lower: lo, Upper: hi}, true

	case types.OpIn, types.OpNotIn:
		items := c.Value.Strings()
		set := make([]any, 0, len(items))
		for _, item := range items {
			v, err := Coerce(item, kind)
			if err != nil {
				return nil, false
			}
			set = append(set, v)
		}
		return set, true

	default:
		if c.Value.IsList {
			return nil, false
		}
		text := c.Value.Text
		if kind == KindBoolean && strings.TrimSpace(text) == "" {
			// "Is Detected" with no explicit value means detected.
			text = "true"
		}
		v, err := Coerce(text, kind)
		if err != nil {
			return nil, false
		}
		return v, true
	}
}

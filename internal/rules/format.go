package rules

import (
	"strings"

	"github.com/solatis/expenserules/internal/types"
)

// Format renders a condition tree as a boolean expression.
//
// Leaves render as "<field> <operator label> <value>", between as
// "<field> <operator label> <value> and <valueSecondary>". Groups join
// their children with " AND " / " OR ". The node passed in is the top of
// the expression and is never parenthesised; every nested group is.
func Format(n types.Node) string {
	return formatNode(n, true)
}

// FormatGroup is Format for a root group.
func FormatGroup(root *types.GroupCondition) string {
	if root == nil {
		return ""
	}
	return Format(types.GroupNode(root))
}

// FormatRule renders the rule's root condition.
func FormatRule(rule *types.Rule) string {
	return FormatGroup(rule.RootCondition)
}

func formatNode(n types.Node, top bool) string {
	switch {
	case n.IsLeaf():
		return formatLeaf(n.Leaf)
	case n.IsGroup():
		parts := make([]string, len(n.Group.Children))
		for i, child := range n.Group.Children {
			parts[i] = formatNode(child, false)
		}
		expr := strings.Join(parts, " "+string(n.Group.LogicalOperator)+" ")
		if top {
			return expr
		}
		return "(" + expr + ")"
	default:
		return ""
	}
}

func formatLeaf(c *types.SimpleCondition) string {
	field := c.Field
	if field == "" {
		field = c.ConditionType.Label()
	}
	op := c.ConditionType.OperatorLabel(c.Operator)
	if c.Operator == types.OpBetween {
		return field + " " + op + " " + c.Value.String() + " and " + c.ValueSecondary
	}
	return field + " " + op + " " + c.Value.String()
}

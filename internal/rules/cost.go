// internal/rules/cost.go
package rules

import "github.com/solatis/expenserules/internal/types"

/*
 * Cost model for condition evaluation.
 *
 * Children of a group are visited cheapest-first so AND/OR short-circuit
 * as early as possible. The result of a group never depends on the order
 * its children are visited in.
 *
 * Leaf cost = operator_cost * kind_multiplier
 * Group cost = group overhead + sum of child costs
 */

const (
	// Operator base costs
	CostEq       = 5
	CostOrdering = 7
	CostIn       = 8
	CostText     = 10
	CostBetween  = 14

	// Comparison domain multipliers
	MultiplierBool    = 1
	MultiplierNumeric = 4
	MultiplierDate    = 6 // layout parsing
	MultiplierText    = 12

	// CostGroup is the fixed overhead of descending into a group.
	CostGroup = 16
)

// NodeCost computes the evaluation cost of a node and its subtree.
func NodeCost(n types.Node) int {
	switch {
	case n.IsLeaf():
		return operatorCost(n.Leaf.Operator) * kindMultiplier(KindOf(n.Leaf.ConditionType))
	case n.IsGroup():
		total := CostGroup
		for _, child := range n.Group.Children {
			total += NodeCost(child)
		}
		return total
	default:
		return 0
	}
}

// operatorCost returns base cost for operator execution.
func operatorCost(op types.Operator) int {
	switch op {
	case types.OpEq, types.OpNeq:
		return CostEq
	case types.OpGt, types.OpLt, types.OpGte, types.OpLte:
		return CostOrdering
	case types.OpIn, types.OpNotIn:
		return CostIn
	case types.OpContains, types.OpDoesNotContain, types.OpStartsWith, types.OpEndsWith:
		return CostText
	case types.OpBetween:
		return CostBetween
	default:
		return CostEq
	}
}

// kindMultiplier scales cost by how expensive coercion into the domain is.
func kindMultiplier(k Kind) int {
	switch k {
	case KindBoolean:
		return MultiplierBool
	case KindNumeric:
		return MultiplierNumeric
	case KindDate:
		return MultiplierDate
	default:
		return MultiplierText
	}
}

package rules

import (
	"fmt"
	"math/rand"

	"github.com/solatis/expenserules/internal/types"
)

// Builders shared by the package tests.

func leaf(id string, ct types.ConditionType, field string, op types.Operator, value string) types.Node {
	return types.LeafNode(&types.SimpleCondition{
		ID:            id,
		ConditionType: ct,
		Field:         field,
		Operator:      op,
		Value:         types.StringValue(value),
	})
}

func listLeaf(id string, ct types.ConditionType, field string, op types.Operator, items ...string) types.Node {
	return types.LeafNode(&types.SimpleCondition{
		ID:            id,
		ConditionType: ct,
		Field:         field,
		Operator:      op,
		Value:         types.ListValue(items...),
	})
}

func betweenLeaf(id string, ct types.ConditionType, field, lo, hi string) types.Node {
	return types.LeafNode(&types.SimpleCondition{
		ID:             id,
		ConditionType:  ct,
		Field:          field,
		Operator:       types.OpBetween,
		Value:          types.StringValue(lo),
		ValueSecondary: hi,
	})
}

func group(id string, op types.LogicalOperator, children ...types.Node) *types.GroupCondition {
	if children == nil {
		children = []types.Node{}
	}
	return &types.GroupCondition{ID: id, LogicalOperator: op, Children: children}
}

func activeRule(id string, root *types.GroupCondition, actions ...types.RuleAction) *types.Rule {
	if actions == nil {
		actions = []types.RuleAction{}
	}
	return &types.Rule{
		ID:            types.RuleID(id),
		Name:          "rule " + id,
		Countries:     []string{types.AllCountries},
		RootCondition: root,
		Actions:       actions,
		IsActive:      true,
	}
}

// sampleTree is amount > 500 OR (country = France AND category = Meals).
func sampleTree() *types.GroupCondition {
	return group("root", types.LogicalOr,
		leaf("c1", types.ConditionAmount, types.FieldAmount, types.OpGt, "500"),
		types.GroupNode(group("g1", types.LogicalAnd,
			leaf("c2", types.ConditionCountry, types.FieldCountry, types.OpEq, "France"),
			leaf("c3", types.ConditionCategory, types.FieldCategory, types.OpEq, "Meals"),
		)),
	)
}

// randomTree builds a deterministic well-formed tree from seed. Node ids
// are "n0", "n1", ... in creation order; the root is always "n0".
func randomTree(seed int64) *types.GroupCondition {
	r := rand.New(rand.NewSource(seed))
	next := 0
	newID := func() string {
		id := fmt.Sprintf("n%d", next)
		next++
		return id
	}

	var build func(depth int) *types.GroupCondition
	build = func(depth int) *types.GroupCondition {
		op := types.LogicalAnd
		if r.Intn(2) == 1 {
			op = types.LogicalOr
		}
		g := group(newID(), op)
		n := r.Intn(4)
		for i := 0; i < n; i++ {
			if depth < 3 && r.Intn(3) == 0 {
				g.Children = append(g.Children, types.GroupNode(build(depth+1)))
				continue
			}
			g.Children = append(g.Children, randomLeaf(r, newID()))
		}
		return g
	}
	return build(0)
}

func randomLeaf(r *rand.Rand, id string) types.Node {
	switch r.Intn(5) {
	case 0:
		return leaf(id, types.ConditionAmount, types.FieldAmount, types.OpGt, fmt.Sprint(r.Intn(1000)))
	case 1:
		return betweenLeaf(id, types.ConditionAmount, types.FieldAmount, "10", fmt.Sprint(10+r.Intn(500)))
	case 2:
		return listLeaf(id, types.ConditionCountry, types.FieldCountry, types.OpIn, "France", "Germany")
	case 3:
		return leaf(id, types.ConditionMerchant, types.FieldMerchant, types.OpContains, "air")
	default:
		return leaf(id, types.ConditionCategory, types.FieldCategory, types.OpNeq, "Meals")
	}
}

// nodeIDs lists every id in tree in pre-order, root included.
func nodeIDs(tree *types.GroupCondition) []string {
	var ids []string
	Walk(tree, func(n types.Node, _ int) bool {
		ids = append(ids, n.ID())
		return true
	})
	return ids
}

// subtreeSize counts n and every node below it.
func subtreeSize(n types.Node) int {
	size := 1
	if n.IsGroup() {
		for _, child := range n.Group.Children {
			size += subtreeSize(child)
		}
	}
	return size
}

// randomExpense builds an expense that may lack fields or carry the wrong
// types.
func randomExpense(seed int64) types.Expense {
	r := rand.New(rand.NewSource(seed))
	e := types.Expense{}
	switch r.Intn(4) {
	case 0:
		e[types.FieldAmount] = float64(r.Intn(1000))
	case 1:
		e[types.FieldAmount] = fmt.Sprint(r.Intn(1000))
	case 2:
		e[types.FieldAmount] = true
	}
	countries := []any{"France", "germany", " Spain ", 42, nil}
	if r.Intn(3) > 0 {
		e[types.FieldCountry] = countries[r.Intn(len(countries))]
	}
	if r.Intn(2) == 0 {
		e[types.FieldCategory] = "Meals"
	}
	if r.Intn(2) == 0 {
		e[types.FieldMerchant] = "Air France"
	}
	return e
}

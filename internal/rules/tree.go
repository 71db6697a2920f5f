// internal/rules/tree.go
package rules

import (
	"github.com/solatis/expenserules/internal/types"
)

/*
 * Copy-on-write condition tree mutation.
 *
 * Every mutation is expressed through MapTree, a bottom-up rewrite that
 * visits children before their parent and rebuilds only the groups whose
 * subtree actually changed. Untouched subtrees are returned by pointer, so
 * a missing id yields the very same root and a hit copies one spine.
 *
 * Operations:
 *   - AddCondition / AddGroup: append to the group with the given id
 *   - UpdateCondition: shallow merge into the leaf with the given id
 *   - UpdateGroup: shallow merge into the group with the given id
 *   - RemoveCondition: drop the child (and its subtree) with the given id
 *
 * The root is visited like any group but is never anyone's child, so
 * RemoveCondition can never delete it.
 */

// Visitor rewrites a node after its children have been rewritten.
// Returning the node unchanged (same pointers) signals "no change".
type Visitor func(types.Node) types.Node

// MapTree applies visit bottom-up to every node reachable from root,
// including root itself. Returns root unchanged when nothing changed.
// A visitor that turns the root into a leaf is ignored for the root.
func MapTree(root *types.GroupCondition, visit Visitor) *types.GroupCondition {
	if root == nil {
		return nil
	}
	out := mapNode(types.GroupNode(root), visit)
	if !out.IsGroup() {
		return root
	}
	return out.Group
}

// mapNode rewrites children first, then hands the (possibly rebuilt) node
// to visit.
func mapNode(n types.Node, visit Visitor) types.Node {
	if n.IsGroup() {
		if children, changed := mapChildren(n.Group.Children, visit); changed {
			g := *n.Group
			g.Children = children
			n = types.GroupNode(&g)
		}
	}
	return visit(n)
}

// mapChildren copies the child slice lazily on the first changed child.
func mapChildren(children []types.Node, visit Visitor) ([]types.Node, bool) {
	var out []types.Node
	for i, child := range children {
		mapped := mapNode(child, visit)
		if out == nil && !mapped.Same(child) {
			out = make([]types.Node, len(children))
			copy(out, children[:i])
		}
		if out != nil {
			out[i] = mapped
		}
	}
	if out == nil {
		return children, false
	}
	return out, true
}

// NewDefaultCondition returns the leaf an editor inserts by default:
// amount > "" with a fresh id.
func NewDefaultCondition() *types.SimpleCondition {
	return &types.SimpleCondition{
		ID:            types.NewNodeID(),
		ConditionType: types.ConditionAmount,
		Field:         types.FieldAmount,
		Operator:      types.OpGt,
		Value:         types.StringValue(""),
	}
}

// AddCondition appends cond (or a default leaf when nil) to the group with
// groupID. Unknown groupID returns tree unchanged.
func AddCondition(groupID string, tree *types.GroupCondition, cond *types.SimpleCondition) *types.GroupCondition {
	if cond == nil {
		cond = NewDefaultCondition()
	}
	return appendChild(groupID, tree, types.LeafNode(cond))
}

// AddGroup appends a new empty group combining with op to the group with
// parentGroupID. Unknown parentGroupID returns tree unchanged.
func AddGroup(parentGroupID string, op types.LogicalOperator, tree *types.GroupCondition) *types.GroupCondition {
	group := &types.GroupCondition{
		ID:              types.NewNodeID(),
		LogicalOperator: op,
		Children:        []types.Node{},
	}
	return appendChild(parentGroupID, tree, types.GroupNode(group))
}

func appendChild(groupID string, tree *types.GroupCondition, child types.Node) *types.GroupCondition {
	return MapTree(tree, func(n types.Node) types.Node {
		if !n.IsGroup() || n.Group.ID != groupID {
			return n
		}
		g := *n.Group
		g.Children = make([]types.Node, 0, len(n.Group.Children)+1)
		g.Children = append(g.Children, n.Group.Children...)
		g.Children = append(g.Children, child)
		return types.GroupNode(&g)
	})
}

// ConditionUpdate lists leaf fields to overwrite. Nil fields are preserved.
type ConditionUpdate struct {
	ConditionType  *types.ConditionType
	Field          *string
	Operator       *types.Operator
	Value          *types.Value
	ValueSecondary *string
}

// apply returns a merged copy of c.
func (u ConditionUpdate) apply(c *types.SimpleCondition) *types.SimpleCondition {
	out := c.Clone()
	if u.ConditionType != nil {
		out.ConditionType = *u.ConditionType
	}
	if u.Field != nil {
		out.Field = *u.Field
	}
	if u.Operator != nil {
		out.Operator = *u.Operator
	}
	if u.Value != nil {
		out.Value = *u.Value
	}
	if u.ValueSecondary != nil {
		out.ValueSecondary = *u.ValueSecondary
	}
	return out
}

// UpdateCondition merges updates into the leaf with conditionID.
// Groups never match. Unknown conditionID returns tree unchanged.
func UpdateCondition(conditionID string, updates ConditionUpdate, tree *types.GroupCondition) *types.GroupCondition {
	return MapTree(tree, func(n types.Node) types.Node {
		if !n.IsLeaf() || n.Leaf.ID != conditionID {
			return n
		}
		return types.LeafNode(updates.apply(n.Leaf))
	})
}

// GroupUpdate lists group fields to overwrite. Children are never touched.
type GroupUpdate struct {
	LogicalOperator *types.LogicalOperator
}

// UpdateGroup merges updates into the group with groupID (the root
// included). Unknown groupID returns tree unchanged.
func UpdateGroup(groupID string, updates GroupUpdate, tree *types.GroupCondition) *types.GroupCondition {
	return MapTree(tree, func(n types.Node) types.Node {
		if !n.IsGroup() || n.Group.ID != groupID {
			return n
		}
		g := *n.Group
		if updates.LogicalOperator != nil {
			g.LogicalOperator = *updates.LogicalOperator
		}
		return types.GroupNode(&g)
	})
}

// RemoveCondition removes the child with id, leaf or group with its whole
// subtree, wherever it sits. The root is never a child and so is never
// removed. Unknown id returns tree unchanged.
func RemoveCondition(id string, tree *types.GroupCondition) *types.GroupCondition {
	return MapTree(tree, func(n types.Node) types.Node {
		if !n.IsGroup() {
			return n
		}
		idx := -1
		for i, child := range n.Group.Children {
			if child.ID() == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return n
		}
		g := *n.Group
		g.Children = make([]types.Node, 0, len(n.Group.Children)-1)
		for _, child := range n.Group.Children {
			if child.ID() != id {
				g.Children = append(g.Children, child)
			}
		}
		return types.GroupNode(&g)
	})
}

// FindNode returns the node with id, searching depth-first from the root.
// The root itself is returned as a group node.
func FindNode(tree *types.GroupCondition, id string) (types.Node, bool) {
	if tree == nil {
		return types.Node{}, false
	}
	return findNode(types.GroupNode(tree), id)
}

func findNode(n types.Node, id string) (types.Node, bool) {
	if n.ID() == id {
		return n, true
	}
	if !n.IsGroup() {
		return types.Node{}, false
	}
	for _, child := range n.Group.Children {
		if found, ok := findNode(child, id); ok {
			return found, true
		}
	}
	return types.Node{}, false
}

// Walk calls fn for every node in depth-first pre-order with its depth
// (root = 0). Returning false from fn skips the node's children.
func Walk(tree *types.GroupCondition, fn func(n types.Node, depth int) bool) {
	if tree == nil {
		return
	}
	walk(types.GroupNode(tree), 0, fn)
}

func walk(n types.Node, depth int, fn func(types.Node, int) bool) {
	if !fn(n, depth) || !n.IsGroup() {
		return
	}
	for _, child := range n.Group.Children {
		walk(child, depth+1, fn)
	}
}

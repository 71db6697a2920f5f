package rules

import "github.com/solatis/expenserules/internal/types"

// EnsureIDs returns rule with a fresh id on every rule, node, action and
// field whose id is empty. Hand-written rule documents may omit ids; the
// mutation API cannot address a node without one. A rule that already
// carries every id is returned as-is.
func EnsureIDs(rule *types.Rule) *types.Rule {
	if rule == nil {
		return nil
	}

	root := MapTree(rule.RootCondition, func(n types.Node) types.Node {
		switch {
		case n.IsLeaf() && n.Leaf.ID == "":
			c := *n.Leaf
			c.ID = types.NewNodeID()
			return types.LeafNode(&c)
		case n.IsGroup() && n.Group.ID == "":
			g := *n.Group
			g.ID = types.NewNodeID()
			return types.GroupNode(&g)
		default:
			return n
		}
	})

	missing := rule.ID == "" || root != rule.RootCondition
	for _, a := range rule.Actions {
		if a.ID == "" {
			missing = true
		}
		for _, f := range a.Fields {
			if f.ID == "" {
				missing = true
			}
		}
	}
	if !missing {
		return rule
	}

	out := *rule
	if out.ID == "" {
		out.ID = types.NewRuleID()
	}
	out.RootCondition = root
	if rule.Actions != nil {
		out.Actions = make([]types.RuleAction, len(rule.Actions))
		for i, a := range rule.Actions {
			a = a.Clone()
			if a.ID == "" {
				a.ID = types.NewNodeID()
			}
			for j := range a.Fields {
				if a.Fields[j].ID == "" {
					a.Fields[j].ID = types.NewNodeID()
				}
			}
			out.Actions[i] = a
		}
	}
	return &out
}

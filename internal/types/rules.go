// internal/types/rules.go
package types

/*
 * Domain types for expense rules.
 *
 * Provides Rule, GroupCondition, SimpleCondition, Node and RuleAction used by
 * internal/rules for mutation, formatting, validation and evaluation.
 *
 * Key types:
 *   - Rule: countries gate + condition tree + ordered actions
 *   - Node: tagged variant holding exactly one of Leaf or Group
 *   - GroupCondition: AND/OR over an ordered list of child nodes
 *   - SimpleCondition: single field/operator/value comparison
 *
 * Ownership: a Rule owns its whole tree. Mutations in internal/rules share
 * untouched subtrees between successive versions of the same rule; Clone
 * produces a fully independent copy for handing across owners.
 */

// NodeKind discriminates the Node variant.
type NodeKind string

const (
	KindLeaf  NodeKind = "leaf"
	KindGroup NodeKind = "group"
)

// SimpleCondition is a leaf comparison against one expense field.
type SimpleCondition struct {
	ID             string        `json:"id" yaml:"id"`
	ConditionType  ConditionType `json:"conditionType" yaml:"conditionType"`
	Field          string        `json:"field" yaml:"field"`
	Operator       Operator      `json:"operator" yaml:"operator"`
	Value          Value         `json:"value" yaml:"value"`
	ValueSecondary string        `json:"valueSecondary,omitempty" yaml:"valueSecondary,omitempty"` // upper bound for between
}

// GroupCondition combines its children with a logical operator.
type GroupCondition struct {
	ID              string          `json:"id" yaml:"id"`
	LogicalOperator LogicalOperator `json:"logicalOperator" yaml:"logicalOperator"`
	Children        []Node          `json:"children" yaml:"children"`
}

// Node is one child of a group. Exactly one of Leaf or Group is set,
// matching Kind.
type Node struct {
	Kind  NodeKind         `json:"kind" yaml:"kind"`
	Leaf  *SimpleCondition `json:"leaf,omitempty" yaml:"leaf,omitempty"`
	Group *GroupCondition  `json:"group,omitempty" yaml:"group,omitempty"`
}

// LeafNode wraps a leaf condition.
func LeafNode(c *SimpleCondition) Node {
	return Node{Kind: KindLeaf, Leaf: c}
}

// GroupNode wraps a group condition.
func GroupNode(g *GroupCondition) Node {
	return Node{Kind: KindGroup, Group: g}
}

// ID returns the identifier of whichever variant is set.
func (n Node) ID() string {
	switch {
	case n.Kind == KindLeaf && n.Leaf != nil:
		return n.Leaf.ID
	case n.Kind == KindGroup && n.Group != nil:
		return n.Group.ID
	default:
		return ""
	}
}

// IsLeaf reports whether n is a well-formed leaf.
func (n Node) IsLeaf() bool { return n.Kind == KindLeaf && n.Leaf != nil }

// IsGroup reports whether n is a well-formed group.
func (n Node) IsGroup() bool { return n.Kind == KindGroup && n.Group != nil }

// Same reports whether both nodes point at the same underlying value.
// Used to detect untouched subtrees after a rewrite.
func (n Node) Same(o Node) bool {
	return n.Kind == o.Kind && n.Leaf == o.Leaf && n.Group == o.Group
}

// Clone deep-copies the node.
func (n Node) Clone() Node {
	out := Node{Kind: n.Kind}
	if n.Leaf != nil {
		out.Leaf = n.Leaf.Clone()
	}
	if n.Group != nil {
		out.Group = n.Group.Clone()
	}
	return out
}

// Clone deep-copies the leaf.
func (c *SimpleCondition) Clone() *SimpleCondition {
	if c == nil {
		return nil
	}
	out := *c
	out.Value = c.Value.clone()
	return &out
}

// Clone deep-copies the group and its whole subtree.
func (g *GroupCondition) Clone() *GroupCondition {
	if g == nil {
		return nil
	}
	out := *g
	if g.Children != nil {
		out.Children = make([]Node, len(g.Children))
		for i, child := range g.Children {
			out.Children[i] = child.Clone()
		}
	}
	return &out
}

// ActionField is an extra input requested by requireAdditionalInfo.
type ActionField struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`   // machine key
	Label     string    `json:"label" yaml:"label"` // display
	FieldType FieldType `json:"fieldType" yaml:"fieldType"`
	Required  bool      `json:"required" yaml:"required"`
	Options   []string  `json:"options,omitempty" yaml:"options,omitempty"` // select/multiselect choices
}

// RuleAction is a behavior fired when a rule matches.
type RuleAction struct {
	ID            string        `json:"id" yaml:"id"`
	ActionType    ActionType    `json:"actionType" yaml:"actionType"`
	Message       string        `json:"message,omitempty" yaml:"message,omitempty"`
	Fields        []ActionField `json:"fields,omitempty" yaml:"fields,omitempty"`
	DocumentTypes []string      `json:"documentTypes,omitempty" yaml:"documentTypes,omitempty"`
	ApprovalRoles []string      `json:"approvalRoles,omitempty" yaml:"approvalRoles,omitempty"`
}

// Clone deep-copies the action.
func (a RuleAction) Clone() RuleAction {
	out := a
	if a.Fields != nil {
		out.Fields = make([]ActionField, len(a.Fields))
		for i, f := range a.Fields {
			f.Options = cloneStrings(f.Options)
			out.Fields[i] = f
		}
	}
	out.DocumentTypes = cloneStrings(a.DocumentTypes)
	out.ApprovalRoles = cloneStrings(a.ApprovalRoles)
	return out
}

// Rule is a complete expense rule.
type Rule struct {
	ID            RuleID          `json:"id" yaml:"id"`
	Name          string          `json:"name" yaml:"name"`
	Description   string          `json:"description" yaml:"description"`
	Countries     []string        `json:"countries" yaml:"countries"` // ["All"] or an explicit list
	RootCondition *GroupCondition `json:"rootCondition" yaml:"rootCondition"`
	Actions       []RuleAction    `json:"actions" yaml:"actions"` // display order, not priority
	IsActive      bool            `json:"isActive" yaml:"isActive"`
}

// NewEmptyRule returns a fresh, active, unrestricted rule with an empty
// AND root group and no actions.
func NewEmptyRule() *Rule {
	return &Rule{
		ID:        NewRuleID(),
		Countries: []string{AllCountries},
		RootCondition: &GroupCondition{
			ID:              NewNodeID(),
			LogicalOperator: LogicalAnd,
			Children:        []Node{},
		},
		Actions:  []RuleAction{},
		IsActive: true,
	}
}

// Unrestricted reports whether the rule applies to every country.
func (r *Rule) Unrestricted() bool {
	for _, c := range r.Countries {
		if c == AllCountries {
			return true
		}
	}
	return false
}

// Clone deep-copies the rule.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	out := *r
	out.Countries = cloneStrings(r.Countries)
	out.RootCondition = r.RootCondition.Clone()
	if r.Actions != nil {
		out.Actions = make([]RuleAction, len(r.Actions))
		for i, a := range r.Actions {
			out.Actions[i] = a.Clone()
		}
	}
	return &out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

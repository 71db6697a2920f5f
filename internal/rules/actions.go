package rules

import (
	"fmt"
	"time"

	"github.com/solatis/expenserules/internal/types"
)

// Rule-level copy-on-write edits. Each returns a new *types.Rule sharing
// untouched parts with the input; the input is never modified. Unknown
// action or field ids are no-ops returning the input rule.

// RuleUpdate lists rule header fields to overwrite. Nil fields are preserved.
type RuleUpdate struct {
	Name        *string
	Description *string
	Countries   []string // nil keeps the current list
	IsActive    *bool
}

// UpdateRule merges header updates into a copy of rule.
func UpdateRule(rule *types.Rule, updates RuleUpdate) *types.Rule {
	out := *rule
	if updates.Name != nil {
		out.Name = *updates.Name
	}
	if updates.Description != nil {
		out.Description = *updates.Description
	}
	if updates.Countries != nil {
		out.Countries = append([]string{}, updates.Countries...)
	}
	if updates.IsActive != nil {
		out.IsActive = *updates.IsActive
	}
	return &out
}

// WithRootCondition returns a copy of rule using tree as its root.
func WithRootCondition(rule *types.Rule, tree *types.GroupCondition) *types.Rule {
	if tree == rule.RootCondition {
		return rule
	}
	out := *rule
	out.RootCondition = tree
	return &out
}

// NewDefaultAction returns the action an editor inserts by default.
func NewDefaultAction() types.RuleAction {
	return types.RuleAction{
		ID:         types.NewNodeID(),
		ActionType: types.ActionShowMessage,
	}
}

// NewDefaultField returns the additional-info field an editor inserts by
// default: an optional text field keyed by the current time.
func NewDefaultField() types.ActionField {
	return types.ActionField{
		ID:        types.NewNodeID(),
		Name:      fmt.Sprintf("field_%d", time.Now().UnixMilli()),
		Label:     "New Field",
		FieldType: types.FieldTypeText,
	}
}

// AddAction appends action (or a default showMessage action when nil).
func AddAction(rule *types.Rule, action *types.RuleAction) *types.Rule {
	a := NewDefaultAction()
	if action != nil {
		a = action.Clone()
	}
	out := *rule
	out.Actions = make([]types.RuleAction, 0, len(rule.Actions)+1)
	out.Actions = append(out.Actions, rule.Actions...)
	out.Actions = append(out.Actions, a)
	return &out
}

// ActionUpdate lists action fields to overwrite. Nil fields are preserved.
type ActionUpdate struct {
	ActionType    *types.ActionType
	Message       *string
	DocumentTypes []string
	ApprovalRoles []string
}

// UpdateAction merges updates into the action with actionID.
func UpdateAction(rule *types.Rule, actionID string, updates ActionUpdate) *types.Rule {
	return mapAction(rule, actionID, func(a types.RuleAction) types.RuleAction {
		if updates.ActionType != nil {
			a.ActionType = *updates.ActionType
		}
		if updates.Message != nil {
			a.Message = *updates.Message
		}
		if updates.DocumentTypes != nil {
			a.DocumentTypes = append([]string{}, updates.DocumentTypes...)
		}
		if updates.ApprovalRoles != nil {
			a.ApprovalRoles = append([]string{}, updates.ApprovalRoles...)
		}
		return a
	})
}

// RemoveAction drops the action with actionID.
func RemoveAction(rule *types.Rule, actionID string) *types.Rule {
	idx := actionIndex(rule, actionID)
	if idx < 0 {
		return rule
	}
	out := *rule
	out.Actions = make([]types.RuleAction, 0, len(rule.Actions)-1)
	out.Actions = append(out.Actions, rule.Actions[:idx]...)
	out.Actions = append(out.Actions, rule.Actions[idx+1:]...)
	return &out
}

// AddField appends field (or a default text field when nil) to the action
// with actionID.
func AddField(rule *types.Rule, actionID string, field *types.ActionField) *types.Rule {
	f := NewDefaultField()
	if field != nil {
		f = *field
		f.Options = append([]string(nil), field.Options...)
	}
	return mapAction(rule, actionID, func(a types.RuleAction) types.RuleAction {
		fields := make([]types.ActionField, 0, len(a.Fields)+1)
		fields = append(fields, a.Fields...)
		a.Fields = append(fields, f)
		return a
	})
}

// FieldUpdate lists action field attributes to overwrite. Nil fields are
// preserved.
type FieldUpdate struct {
	Name      *string
	Label     *string
	FieldType *types.FieldType
	Required  *bool
	Options   []string
}

// UpdateField merges updates into field fieldID of action actionID.
func UpdateField(rule *types.Rule, actionID, fieldID string, updates FieldUpdate) *types.Rule {
	if fieldIndex(rule, actionID, fieldID) < 0 {
		return rule
	}
	return mapAction(rule, actionID, func(a types.RuleAction) types.RuleAction {
		fields := make([]types.ActionField, len(a.Fields))
		copy(fields, a.Fields)
		for i, f := range fields {
			if f.ID != fieldID {
				continue
			}
			if updates.Name != nil {
				f.Name = *updates.Name
			}
			if updates.Label != nil {
				f.Label = *updates.Label
			}
			if updates.FieldType != nil {
				f.FieldType = *updates.FieldType
			}
			if updates.Required != nil {
				f.Required = *updates.Required
			}
			if updates.Options != nil {
				f.Options = append([]string{}, updates.Options...)
			}
			fields[i] = f
		}
		a.Fields = fields
		return a
	})
}

// RemoveField drops field fieldID from action actionID.
func RemoveField(rule *types.Rule, actionID, fieldID string) *types.Rule {
	if fieldIndex(rule, actionID, fieldID) < 0 {
		return rule
	}
	return mapAction(rule, actionID, func(a types.RuleAction) types.RuleAction {
		fields := make([]types.ActionField, 0, len(a.Fields)-1)
		for _, f := range a.Fields {
			if f.ID != fieldID {
				fields = append(fields, f)
			}
		}
		a.Fields = fields
		return a
	})
}

// mapAction replaces the action with actionID by fn's result in a copy of
// rule. fn receives a shallow copy and must not modify shared slices.
func mapAction(rule *types.Rule, actionID string, fn func(types.RuleAction) types.RuleAction) *types.Rule {
	idx := actionIndex(rule, actionID)
	if idx < 0 {
		return rule
	}
	out := *rule
	out.Actions = make([]types.RuleAction, len(rule.Actions))
	copy(out.Actions, rule.Actions)
	out.Actions[idx] = fn(rule.Actions[idx])
	return &out
}

func actionIndex(rule *types.Rule, actionID string) int {
	for i, a := range rule.Actions {
		if a.ID == actionID {
			return i
		}
	}
	return -1
}

func fieldIndex(rule *types.Rule, actionID, fieldID string) int {
	idx := actionIndex(rule, actionID)
	if idx < 0 {
		return -1
	}
	for i, f := range rule.Actions[idx].Fields {
		if f.ID == fieldID {
			return i
		}
	}
	return -1
}

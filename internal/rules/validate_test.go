package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/expenserules/internal/types"
)

func TestValidate_Valid(t *testing.T) {
	for name, r := range map[string]*types.Rule{
		"sample":     actionRule(),
		"empty rule": func() *types.Rule { r := types.NewEmptyRule(); r.Name = "staged"; return r }(),
		"between": activeRule("r", group("root", types.LogicalAnd,
			betweenLeaf("b", types.ConditionDate, "date", "2024-01-01", "2024-12-31"))),
		"alcohol without value": activeRule("r", group("root", types.LogicalAnd,
			leaf("a", types.ConditionAlcoholMention, "alcoholMention", types.OpEq, ""))),
	} {
		t.Run(name, func(t *testing.T) {
			if problems := Validate(r); len(problems) != 0 {
				t.Errorf("Validate() = %v, want none", problems)
			}
			if err := Check(r); err != nil {
				t.Errorf("Check() error = %v", err)
			}
		})
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *types.Rule)
		want   error
		nodeID string
	}{
		{name: "empty name", mutate: func(r *types.Rule) { r.Name = "  " }, want: types.ErrEmptyName},
		{name: "no countries", mutate: func(r *types.Rule) { r.Countries = nil }, want: types.ErrNoCountries},
		{name: "All mixed", mutate: func(r *types.Rule) { r.Countries = []string{"All", "France"} }, want: types.ErrMixedCountries},
		{name: "no root", mutate: func(r *types.Rule) { r.RootCondition = nil }, want: types.ErrMissingRoot},
		{
			name:   "bad logical operator",
			mutate: func(r *types.Rule) { r.RootCondition.Children[1].Group.LogicalOperator = "NAND" },
			want:   types.ErrInvalidLogicalOperator,
			nodeID: "g1",
		},
		{
			name:   "duplicate node id",
			mutate: func(r *types.Rule) { r.RootCondition.Children[1].Group.Children[1].Leaf.ID = "c2" },
			want:   types.ErrDuplicateID,
			nodeID: "c2",
		},
		{
			name:   "action id clashes with node id",
			mutate: func(r *types.Rule) { r.Actions[0].ID = "c1" },
			want:   types.ErrDuplicateID,
			nodeID: "c1",
		},
		{
			name:   "empty node id",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.ID = "" },
			want:   types.ErrEmptyID,
		},
		{
			name: "malformed node",
			mutate: func(r *types.Rule) {
				r.RootCondition.Children = append(r.RootCondition.Children, types.Node{Kind: types.KindLeaf})
			},
			want: types.ErrMalformedNode,
		},
		{
			name: "node with both payloads",
			mutate: func(r *types.Rule) {
				n := r.RootCondition.Children[0]
				n.Group = group("x", types.LogicalAnd)
				r.RootCondition.Children[0] = n
			},
			want:   types.ErrMalformedNode,
			nodeID: "c1",
		},
		{
			name:   "unknown condition type",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.ConditionType = "mood" },
			want:   types.ErrUnknownConditionType,
			nodeID: "c1",
		},
		{
			name:   "operator not allowed",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.Operator = types.OpContains },
			want:   types.ErrInvalidOperator,
			nodeID: "c1",
		},
		{
			name:   "empty field",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.Field = "" },
			want:   types.ErrEmptyField,
			nodeID: "c1",
		},
		{
			name:   "amount not a number",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.Value = types.StringValue("lots") },
			want:   types.ErrInvalidNumber,
			nodeID: "c1",
		},
		{
			name:   "amount exponent out of range",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.Value = types.StringValue("1e20000000") },
			want:   types.ErrInvalidNumber,
			nodeID: "c1",
		},
		{
			name:   "list for scalar operator",
			mutate: func(r *types.Rule) { r.RootCondition.Children[0].Leaf.Value = types.ListValue("1", "2") },
			want:   types.ErrListNotAllowed,
			nodeID: "c1",
		},
		{
			name: "between without secondary",
			mutate: func(r *types.Rule) {
				c := r.RootCondition.Children[0].Leaf
				c.Operator = types.OpBetween
			},
			want:   types.ErrMissingSecondary,
			nodeID: "c1",
		},
		{
			name: "between with list",
			mutate: func(r *types.Rule) {
				c := r.RootCondition.Children[0].Leaf
				c.Operator = types.OpBetween
				c.Value = types.ListValue("1")
				c.ValueSecondary = "5"
			},
			want:   types.ErrListNotAllowed,
			nodeID: "c1",
		},
		{
			name: "date not parseable",
			mutate: func(r *types.Rule) {
				r.RootCondition.Children[0] = leaf("d", types.ConditionDate, "date", types.OpGt, "tomorrow")
			},
			want:   types.ErrInvalidDate,
			nodeID: "d",
		},
		{
			name: "alcohol not a boolean",
			mutate: func(r *types.Rule) {
				r.RootCondition.Children[0] = leaf("a", types.ConditionAlcoholMention, "alcoholMention", types.OpEq, "maybe")
			},
			want:   types.ErrInvalidBoolean,
			nodeID: "a",
		},
		{
			name: "too many in values",
			mutate: func(r *types.Rule) {
				items := make([]string, types.MaxInValues+1)
				for i := range items {
					items[i] = "c"
				}
				r.RootCondition.Children[1].Group.Children[0] = listLeaf("in", types.ConditionCountry, "country", types.OpIn, items...)
			},
			want:   types.ErrTooManyInValues,
			nodeID: "in",
		},
		{
			name:   "unknown action type",
			mutate: func(r *types.Rule) { r.Actions[0].ActionType = "sendEmail" },
			want:   types.ErrUnknownActionType,
			nodeID: "a1",
		},
		{
			name:   "additional info without fields",
			mutate: func(r *types.Rule) { r.Actions[1].Fields = nil },
			want:   types.ErrMissingFields,
			nodeID: "a2",
		},
		{
			name:   "field without name",
			mutate: func(r *types.Rule) { r.Actions[1].Fields[0].Name = "" },
			want:   types.ErrEmptyFieldName,
			nodeID: "f1",
		},
		{
			name: "duplicate field name",
			mutate: func(r *types.Rule) {
				r.Actions[1].Fields = append(r.Actions[1].Fields,
					types.ActionField{ID: "f2", Name: " attendees ", FieldType: types.FieldTypeText})
			},
			want:   types.ErrDuplicateFieldName,
			nodeID: "f2",
		},
		{
			name:   "unknown field type",
			mutate: func(r *types.Rule) { r.Actions[1].Fields[0].FieldType = "slider" },
			want:   types.ErrUnknownFieldType,
			nodeID: "f1",
		},
		{
			name:   "select without options",
			mutate: func(r *types.Rule) { r.Actions[1].Fields[0].FieldType = types.FieldTypeSelect },
			want:   types.ErrMissingOptions,
			nodeID: "f1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := actionRule().Clone()
			tt.mutate(r)

			problems := Validate(r)
			var found *Problem
			for i := range problems {
				if errors.Is(problems[i], tt.want) {
					found = &problems[i]
					break
				}
			}
			if found == nil {
				t.Fatalf("Validate() = %v, want a problem matching %v", problems, tt.want)
			}
			if found.NodeID != tt.nodeID {
				t.Errorf("NodeID = %q, want %q", found.NodeID, tt.nodeID)
			}
			if found.Message == "" {
				t.Error("problem has no message")
			}
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	r := activeRule("r", group("root", types.LogicalAnd,
		leaf("c1", types.ConditionAlcoholMention, "alcoholMention", types.OpContains, "x"),
		betweenLeaf("c2", types.ConditionAmount, "amount", "10", ""),
	), types.RuleAction{ID: "a", ActionType: types.ActionRequireAdditionalInfo})
	r.Name = ""

	problems := Validate(r)
	for _, want := range []error{types.ErrEmptyName, types.ErrInvalidOperator, types.ErrMissingSecondary, types.ErrMissingFields} {
		found := false
		for _, p := range problems {
			if errors.Is(p, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("Validate() = %v, missing %v", problems, want)
		}
	}
}

func TestCheck(t *testing.T) {
	r := actionRule().Clone()
	r.Name = ""
	r.Actions[1].Fields = nil

	err := Check(r)
	if !errors.Is(err, types.ErrInvalidRule) {
		t.Fatalf("Check() error = %v, want ErrInvalidRule", err)
	}
	if !errors.Is(err, types.ErrEmptyName) || !errors.Is(err, types.ErrMissingFields) {
		t.Errorf("Check() error = %v, want both problem sentinels", err)
	}
	ve, ok := AsValidationError(err)
	if !ok {
		t.Fatal("AsValidationError() = false")
	}
	if ve.RuleID != "r1" || len(ve.Problems) != 2 {
		t.Errorf("ValidationError = %+v", ve)
	}
	if !strings.Contains(err.Error(), "2 problem(s)") || !strings.Contains(err.Error(), "a2: ") {
		t.Errorf("Error() = %q", err.Error())
	}

	if _, ok := AsValidationError(errors.New("other")); ok {
		t.Error("AsValidationError() matched a plain error")
	}
	if !errors.Is(Check(nil), types.ErrMissingRoot) {
		t.Error("Check(nil) does not report a missing root")
	}
}

func TestValidate_DeepTree(t *testing.T) {
	r := activeRule("r", group("g0", types.LogicalAnd))
	cur := r.RootCondition
	for i := 1; i <= types.MaxTreeDepth+1; i++ {
		next := group("g"+strings.Repeat("x", i), types.LogicalAnd)
		cur.Children = append(cur.Children, types.GroupNode(next))
		cur = next
	}
	if err := Check(r); !errors.Is(err, types.ErrTreeTooDeep) {
		t.Errorf("Check() error = %v, want ErrTreeTooDeep", err)
	}
}

func TestValidate_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("generated trees validate and validation never mutates", prop.ForAll(
		func(seed int64) bool {
			r := activeRule("r", randomTree(seed))
			before := FormatRule(r)
			ok := len(Validate(r)) == 0
			return ok && FormatRule(r) == before
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

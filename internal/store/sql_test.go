package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/solatis/expenserules/internal/logging"
	"github.com/solatis/expenserules/internal/rules"
	"github.com/solatis/expenserules/internal/store"
	"github.com/solatis/expenserules/internal/types"
)

func openTestSQL(t *testing.T) *store.SQL {
	t.Helper()
	s, err := store.OpenSQL(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "rules.db"))
	if err != nil {
		t.Fatalf("OpenSQL() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_RejectsUnknownScheme(t *testing.T) {
	if _, err := store.Open(context.Background(), "mysql://localhost/rules"); err == nil {
		t.Error("Open(mysql) error = nil")
	}
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	s := openTestSQL(t)

	ran, err := store.MigrateUp(ctx, s.DB())
	if err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if len(ran) != 0 {
		t.Errorf("second MigrateUp() applied %v, want nothing", ran)
	}

	statuses, err := store.MigrateStatus(ctx, s.DB())
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() returned no migrations")
	}
	for _, st := range statuses {
		if !st.Applied || st.Checksum == "" || st.AppliedAt == "" {
			t.Errorf("migration %s = %+v, want applied", st.ID, st)
		}
	}
}

func TestSQL_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestSQL(t)

	want := testRule("r1")
	want.Description = "large purchases"
	want.RootCondition.Children = append(want.RootCondition.Children,
		types.LeafNode(&types.SimpleCondition{
			ID:            "c-list",
			ConditionType: types.ConditionCountry,
			Field:         types.FieldCountry,
			Operator:      types.OpIn,
			Value:         types.ListValue("France", "Spain"),
		}))
	if err := s.PutRule(ctx, want); err != nil {
		t.Fatalf("PutRule() error = %v", err)
	}

	got, err := s.GetRule(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if got.Name != want.Name || got.Description != want.Description || !got.IsActive {
		t.Errorf("GetRule() = %+v", got)
	}
	if len(got.Countries) != 1 || got.Countries[0] != "France" {
		t.Errorf("Countries = %v", got.Countries)
	}
	if got.RootCondition == nil || got.RootCondition.ID != "root-r1" || len(got.RootCondition.Children) != 2 {
		t.Fatalf("RootCondition = %+v", got.RootCondition)
	}
	list := got.RootCondition.Children[1]
	if !list.IsLeaf() || !list.Leaf.Value.Equal(types.ListValue("France", "Spain")) {
		t.Errorf("list leaf = %+v", list.Leaf)
	}
	if len(got.Actions) != 1 || got.Actions[0].ApprovalRoles[0] != "manager" {
		t.Errorf("Actions = %+v", got.Actions)
	}
}

func TestSQL_UpsertListDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestSQL(t)

	for _, id := range []string{"c", "a", "b"} {
		if err := s.PutRule(ctx, testRule(id)); err != nil {
			t.Fatalf("PutRule(%s) error = %v", id, err)
		}
	}

	draft := testRule("b")
	draft.Name = "renamed"
	draft.IsActive = false
	draft.Actions = nil
	if err := s.PutRule(ctx, draft); err != nil {
		t.Fatalf("PutRule(replace) error = %v", err)
	}

	all, err := s.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if ids := ruleIDs(all); len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ListRules() ids = %v", ids)
	}
	if all[1].Name != "renamed" || all[1].IsActive || all[1].Actions == nil || len(all[1].Actions) != 0 {
		t.Errorf("replaced rule = %+v", all[1])
	}

	active, err := s.ListActiveRules(ctx)
	if err != nil {
		t.Fatalf("ListActiveRules() error = %v", err)
	}
	if ids := ruleIDs(active); len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("ListActiveRules() ids = %v", ids)
	}

	if err := s.DeleteRule(ctx, "a"); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if err := s.DeleteRule(ctx, "a"); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("second DeleteRule() error = %v, want ErrRuleNotFound", err)
	}
	if _, err := s.GetRule(ctx, "a"); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("GetRule(deleted) error = %v, want ErrRuleNotFound", err)
	}
	if err := s.PutRule(ctx, &types.Rule{}); !errors.Is(err, types.ErrEmptyID) {
		t.Errorf("PutRule(empty id) error = %v, want ErrEmptyID", err)
	}
}

func TestSQL_EngineEvaluatesStoredRules(t *testing.T) {
	ctx := context.Background()
	s := openTestSQL(t)
	engine := rules.NewEngine(s, rules.WithLogger(logging.NewNop()))

	if err := engine.SaveRule(ctx, testRule("large")); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}
	off := testRule("off")
	off.IsActive = false
	if err := engine.SaveRule(ctx, off); err != nil {
		t.Fatalf("SaveRule(inactive) error = %v", err)
	}

	results, err := engine.EvaluateExpense(ctx, types.Expense{
		types.FieldAmount:  900.0,
		types.FieldCountry: "france",
	})
	if err != nil {
		t.Fatalf("EvaluateExpense() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("EvaluateExpense() = %d results, want only the active rule", len(results))
	}
	r := results[0]
	if r.RuleID != "large" || !r.Matches || len(r.FiredActions) != 1 {
		t.Errorf("result = %+v", r)
	}
}

package rules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/solatis/expenserules/internal/logging"
	"github.com/solatis/expenserules/internal/metrics"
	"github.com/solatis/expenserules/internal/store"
	"github.com/solatis/expenserules/internal/types"
)

type recordingRecorder struct {
	mu        sync.Mutex
	evaluated int
	matched   int
	fired     []types.ActionType
	problems  []error
	expenses  int
}

func (r *recordingRecorder) RuleEvaluated(matched bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluated++
	if matched {
		r.matched++
	}
}

func (r *recordingRecorder) ActionFired(at types.ActionType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, at)
}

func (r *recordingRecorder) ValidationProblem(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems = append(r.problems, err)
}

func (r *recordingRecorder) ExpenseEvaluated(time.Duration, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses++
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	opts = append([]Option{WithLogger(logging.NewNop())}, opts...)
	return NewEngine(s, opts...), s
}

func TestEngine_SaveRule(t *testing.T) {
	ctx := context.Background()
	rec := &recordingRecorder{}
	engine, s := newTestEngine(t, WithRecorder(rec))

	valid := actionRule()
	if err := engine.SaveRule(ctx, valid); err != nil {
		t.Fatalf("SaveRule(valid) error = %v", err)
	}
	got, err := engine.GetRule(ctx, valid.ID)
	if err != nil {
		t.Fatalf("GetRule() error = %v", err)
	}
	if got.Name != valid.Name || FormatRule(got) != FormatRule(valid) {
		t.Errorf("GetRule() = %+v, want the saved rule", got)
	}

	invalid := actionRule().Clone()
	invalid.ID = "r2"
	invalid.Actions[1].Fields = nil
	err = engine.SaveRule(ctx, invalid)
	if !errors.Is(err, types.ErrInvalidRule) || !errors.Is(err, types.ErrMissingFields) {
		t.Fatalf("SaveRule(invalid) error = %v, want ErrInvalidRule wrapping ErrMissingFields", err)
	}
	if _, err := s.GetRule(ctx, "r2"); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("refused rule was stored: %v", err)
	}
	if len(rec.problems) != 1 {
		t.Errorf("recorded problems = %v, want 1", rec.problems)
	}

	draft := invalid.Clone()
	draft.IsActive = false
	if err := engine.SaveRule(ctx, draft); err != nil {
		t.Errorf("SaveRule(inactive draft) error = %v", err)
	}

	if err := engine.SaveRule(ctx, &types.Rule{}); !errors.Is(err, types.ErrEmptyID) {
		t.Errorf("SaveRule(no id) error = %v, want ErrEmptyID", err)
	}
	if err := engine.SaveRule(ctx, nil); !errors.Is(err, types.ErrEmptyID) {
		t.Errorf("SaveRule(nil) error = %v, want ErrEmptyID", err)
	}
}

func TestEngine_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	for _, id := range []string{"b", "a", "c"} {
		if err := engine.SaveRule(ctx, activeRule(id, group("root-"+id, types.LogicalAnd))); err != nil {
			t.Fatalf("SaveRule(%s) error = %v", id, err)
		}
	}
	all, err := engine.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "a" || all[2].ID != "c" {
		t.Errorf("ListRules() ids = %v, want [a b c]", ruleIDs(all))
	}

	if err := engine.DeleteRule(ctx, "b"); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if err := engine.DeleteRule(ctx, "b"); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("DeleteRule(again) error = %v, want ErrRuleNotFound", err)
	}
	if _, err := engine.GetRule(ctx, "b"); !errors.Is(err, types.ErrRuleNotFound) {
		t.Errorf("GetRule(deleted) error = %v, want ErrRuleNotFound", err)
	}
}

func ruleIDs(rules []*types.Rule) []types.RuleID {
	ids := make([]types.RuleID, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}

// seedPolicy stores a small policy: large expenses need approval, French
// meals need a receipt, and an inactive rule that would match everything.
func seedPolicy(t *testing.T, engine *Engine) {
	t.Helper()
	ctx := context.Background()

	large := activeRule("large", group("g-large", types.LogicalAnd,
		leaf("c-large", types.ConditionAmount, "amount", types.OpGt, "500")),
		types.RuleAction{ID: "a-large", ActionType: types.ActionRequireApproval, ApprovalRoles: []string{"manager"}})

	meals := activeRule("meals", group("g-meals", types.LogicalAnd,
		leaf("c-meals", types.ConditionCategory, "category", types.OpEq, "Meals")),
		types.RuleAction{ID: "a-meals", ActionType: types.ActionRequireDocument, DocumentTypes: []string{"receipt"}})
	meals.Countries = []string{"France"}

	off := activeRule("off", group("g-off", types.LogicalAnd))
	off.IsActive = false

	for _, r := range []*types.Rule{large, meals, off} {
		if err := engine.SaveRule(ctx, r); err != nil {
			t.Fatalf("SaveRule(%s) error = %v", r.ID, err)
		}
	}
}

func TestEngine_EvaluateExpense(t *testing.T) {
	ctx := context.Background()
	rec := &recordingRecorder{}
	engine, _ := newTestEngine(t, WithRecorder(rec))
	seedPolicy(t, engine)

	got, err := engine.EvaluateExpense(ctx, types.Expense{"amount": 750.0, "country": "France", "category": "Meals"})
	if err != nil {
		t.Fatalf("EvaluateExpense() error = %v", err)
	}
	if len(got) != 2 || got[0].RuleID != "large" || got[1].RuleID != "meals" {
		t.Fatalf("EvaluateExpense() = %+v, want [large meals]", got)
	}
	if got[1].FiredActions[0].DocumentTypes[0] != "receipt" {
		t.Errorf("meals action = %+v", got[1].FiredActions[0])
	}

	got, err = engine.EvaluateExpense(ctx, types.Expense{"amount": 20.0, "country": "Germany", "category": "Meals"})
	if err != nil {
		t.Fatalf("EvaluateExpense() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("EvaluateExpense() = %+v, want none", got)
	}

	if rec.evaluated != 4 || rec.matched != 2 || rec.expenses != 2 {
		t.Errorf("recorder = evaluated %d, matched %d, expenses %d; want 4, 2, 2", rec.evaluated, rec.matched, rec.expenses)
	}
	if len(rec.fired) != 2 {
		t.Errorf("fired = %v, want 2 actions", rec.fired)
	}
}

func TestEngine_EvaluateBatch(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, WithConcurrency(3))
	seedPolicy(t, engine)

	expenses := make([]types.Expense, 50)
	for i := range expenses {
		expenses[i] = types.Expense{"amount": float64(i * 20), "country": "France", "category": "Taxi"}
	}
	expenses[7]["category"] = "Meals"

	results, err := engine.EvaluateBatch(ctx, expenses)
	if err != nil {
		t.Fatalf("EvaluateBatch() error = %v", err)
	}
	if len(results) != len(expenses) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(expenses))
	}
	for i, matched := range results {
		want := 0
		if i*20 > 500 {
			want++
		}
		if i == 7 {
			want++
		}
		if len(matched) != want {
			t.Errorf("results[%d] = %d matches, want %d", i, len(matched), want)
		}
	}
	if results[7][0].RuleID != "meals" {
		t.Errorf("results[7] = %+v, want meals", results[7])
	}
}

func TestEngine_EvaluateBatch_Cancelled(t *testing.T) {
	engine, _ := newTestEngine(t)
	seedPolicy(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.EvaluateBatch(ctx, []types.Expense{{}}); !errors.Is(err, context.Canceled) {
		t.Errorf("EvaluateBatch() error = %v, want context.Canceled", err)
	}
	if _, err := engine.EvaluateExpense(ctx, types.Expense{}); !errors.Is(err, context.Canceled) {
		t.Errorf("EvaluateExpense() error = %v, want context.Canceled", err)
	}
}

// failingStore fails every read.
type failingStore struct{}

var errDiskOnFire = errors.New("disk on fire")

func (failingStore) PutRule(context.Context, *types.Rule) error { return nil }
func (failingStore) GetRule(context.Context, types.RuleID) (*types.Rule, error) {
	return nil, errDiskOnFire
}
func (failingStore) ListRules(context.Context) ([]*types.Rule, error) { return nil, errDiskOnFire }
func (failingStore) DeleteRule(context.Context, types.RuleID) error   { return errDiskOnFire }

func TestEngine_StoreError(t *testing.T) {
	engine := NewEngine(failingStore{}, WithLogger(logging.NewNop()))
	if _, err := engine.EvaluateBatch(context.Background(), []types.Expense{{}}); !errors.Is(err, errDiskOnFire) {
		t.Errorf("EvaluateBatch() error = %v, want store error", err)
	}
	if _, err := engine.EvaluateExpense(context.Background(), types.Expense{}); !errors.Is(err, errDiskOnFire) {
		t.Errorf("EvaluateExpense() error = %v, want store error", err)
	}
}

func TestEngine_Metrics(t *testing.T) {
	ctx := context.Background()
	collector := metrics.NewCollector(logging.NewNop())
	engine, _ := newTestEngine(t, WithRecorder(collector))
	seedPolicy(t, engine)

	if _, err := engine.EvaluateBatch(ctx, []types.Expense{
		{"amount": 900.0},
		{"amount": 10.0},
	}); err != nil {
		t.Fatalf("EvaluateBatch() error = %v", err)
	}

	reg := collector.Registry()
	tests := []struct {
		metric string
		label  string
		want   float64
	}{
		{"expenserules_rule_evaluations_total", "matched", 1},
		{"expenserules_rule_evaluations_total", "unmatched", 3},
		{"expenserules_actions_fired_total", string(types.ActionRequireApproval), 1},
		{"expenserules_active_rules", "", 2},
	}
	for _, tt := range tests {
		if got := gatheredValue(t, reg, tt.metric, tt.label); got != tt.want {
			t.Errorf("%s{%s} = %v, want %v", tt.metric, tt.label, got, tt.want)
		}
	}
	n, err := testutil.GatherAndCount(reg, "expenserules_expense_evaluation_duration_seconds")
	if err != nil || n != 1 {
		t.Errorf("GatherAndCount(duration) = %d, %v; want 1 series", n, err)
	}
}

// gatheredValue returns the counter or gauge value of the series of metric
// carrying label as its only label value ("" for unlabelled metrics).
func gatheredValue(t *testing.T, reg prometheus.Gatherer, metric, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != metric {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && (len(m.GetLabel()) != 1 || m.GetLabel()[0].GetValue() != label) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("series %s{%s} not found", metric, label)
	return 0
}

package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/expenserules/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel expense evaluation in EvaluateBatch.
const DefaultConcurrency = 8

// RuleStore persists rules by id. Implementations hand out copies, so a
// returned rule may be mutated freely by the caller.
type RuleStore interface {
	PutRule(ctx context.Context, rule *types.Rule) error
	GetRule(ctx context.Context, id types.RuleID) (*types.Rule, error)
	ListRules(ctx context.Context) ([]*types.Rule, error)
	DeleteRule(ctx context.Context, id types.RuleID) error
}

// ActiveLister is implemented by stores that can filter on is_active
// themselves. The engine prefers it over ListRules.
type ActiveLister interface {
	ListActiveRules(ctx context.Context) ([]*types.Rule, error)
}

// Recorder receives engine instrumentation. *metrics.Collector satisfies it.
type Recorder interface {
	RuleEvaluated(matched bool)
	ActionFired(at types.ActionType)
	ValidationProblem(err error)
	ExpenseEvaluated(d time.Duration, activeRules int)
}

type nopRecorder struct{}

func (nopRecorder) RuleEvaluated(bool)                  {}
func (nopRecorder) ActionFired(types.ActionType)        {}
func (nopRecorder) ValidationProblem(error)             {}
func (nopRecorder) ExpenseEvaluated(time.Duration, int) {}

// Engine ties a rule store to validation and evaluation.
type Engine struct {
	store       RuleStore
	logger      *slog.Logger
	recorder    Recorder
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithConcurrency bounds EvaluateBatch parallelism. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates an engine over store.
func NewEngine(store RuleStore, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		logger:      slog.Default(),
		recorder:    nopRecorder{},
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SaveRule stores rule, replacing any rule with the same id.
//
// Active rules must validate; an invalid active rule is refused with a
// *ValidationError (errors.Is(err, types.ErrInvalidRule) holds). Inactive
// rules are drafts and are stored as-is.
func (e *Engine) SaveRule(ctx context.Context, rule *types.Rule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("save rule: %w", types.ErrEmptyID)
	}

	if rule.IsActive {
		if err := Check(rule); err != nil {
			if ve, ok := AsValidationError(err); ok {
				for _, p := range ve.Problems {
					e.recorder.ValidationProblem(p)
				}
			}
			e.logger.Warn("rule refused",
				slog.String("rule_id", string(rule.ID)),
				slog.String("error", err.Error()))
			return err
		}
	}

	if err := e.store.PutRule(ctx, rule); err != nil {
		return fmt.Errorf("save rule %s: %w", rule.ID, err)
	}
	e.logger.Info("rule saved",
		slog.String("rule_id", string(rule.ID)),
		slog.String("name", rule.Name),
		slog.Bool("active", rule.IsActive))
	return nil
}

// GetRule returns the rule with id or types.ErrRuleNotFound.
func (e *Engine) GetRule(ctx context.Context, id types.RuleID) (*types.Rule, error) {
	return e.store.GetRule(ctx, id)
}

// ListRules returns every stored rule, active or not.
func (e *Engine) ListRules(ctx context.Context) ([]*types.Rule, error) {
	return e.store.ListRules(ctx)
}

// DeleteRule removes the rule with id or returns types.ErrRuleNotFound.
func (e *Engine) DeleteRule(ctx context.Context, id types.RuleID) error {
	if err := e.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	e.logger.Info("rule deleted", slog.String("rule_id", string(id)))
	return nil
}

// EvaluateExpense applies every active rule to expense and returns the
// matching results in store order.
func (e *Engine) EvaluateExpense(ctx context.Context, expense types.Expense) ([]Result, error) {
	active, err := e.activeRules(ctx)
	if err != nil {
		return nil, err
	}
	return e.evaluate(active, expense), nil
}

// EvaluateBatch evaluates expenses in parallel against one snapshot of the
// active rules. results[i] belongs to expenses[i]. Cancellation of ctx
// stops scheduling further expenses and returns ctx.Err().
func (e *Engine) EvaluateBatch(ctx context.Context, expenses []types.Expense) ([][]Result, error) {
	active, err := e.activeRules(ctx)
	if err != nil {
		return nil, err
	}

	results := make([][]Result, len(expenses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, expense := range expenses {
		if gctx.Err() != nil {
			break
		}
		i, expense := i, expense
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.evaluate(active, expense)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("batch evaluated",
		slog.Int("expenses", len(expenses)),
		slog.Int("active_rules", len(active)))
	return results, nil
}

func (e *Engine) activeRules(ctx context.Context) ([]*types.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if al, ok := e.store.(ActiveLister); ok {
		active, err := al.ListActiveRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active rules: %w", err)
		}
		return active, nil
	}

	all, err := e.store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	active := all[:0]
	for _, r := range all {
		if r.IsActive {
			active = append(active, r)
		}
	}
	return active, nil
}

func (e *Engine) evaluate(active []*types.Rule, expense types.Expense) []Result {
	start := time.Now()
	var matched []Result
	for _, rule := range active {
		r := Applies(rule, expense)
		e.recorder.RuleEvaluated(r.Matches)
		if !r.Matches {
			continue
		}
		for _, a := range r.FiredActions {
			e.recorder.ActionFired(a.ActionType)
		}
		matched = append(matched, r)
	}
	e.recorder.ExpenseEvaluated(time.Since(start), len(active))
	return matched
}

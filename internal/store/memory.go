package store

import (
	"context"
	"sort"
	"sync"

	"github.com/solatis/expenserules/internal/types"
)

// Memory is an in-process rule store. Rules are cloned on the way in and
// on the way out, so callers never share a tree with the store.
type Memory struct {
	mu    sync.RWMutex
	rules map[types.RuleID]*types.Rule
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{rules: make(map[types.RuleID]*types.Rule)}
}

// PutRule stores a copy of rule, replacing any rule with the same id.
func (m *Memory) PutRule(ctx context.Context, rule *types.Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rule == nil || rule.ID == "" {
		return types.ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule.Clone()
	return nil
}

// GetRule returns a copy of the rule with id.
func (m *Memory) GetRule(ctx context.Context, id types.RuleID) (*types.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, types.ErrRuleNotFound
	}
	return r.Clone(), nil
}

// ListRules returns copies of every rule ordered by id, which for UUIDv7
// ids is creation order.
func (m *Memory) ListRules(ctx context.Context) ([]*types.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]*types.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteRule removes the rule with id.
func (m *Memory) DeleteRule(ctx context.Context, id types.RuleID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return types.ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

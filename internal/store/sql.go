package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/expenserules/internal/types"
)

// SQL stores rules in the rules table created by MigrateUp. The condition
// tree, actions and countries are JSON documents; the remaining columns
// are plain so they can be filtered on.
type SQL struct {
	db      *sqlx.DB
	queries *Queries
}

// ruleRow mirrors one row of the rules table.
type ruleRow struct {
	RuleID        string `db:"rule_id"`
	Name          string `db:"name"`
	Description   string `db:"description"`
	Countries     []byte `db:"countries"`
	RootCondition []byte `db:"root_condition"`
	Actions       []byte `db:"actions"`
	IsActive      bool   `db:"is_active"`
}

// NewSQL wraps an open connection. The schema must already be migrated.
func NewSQL(db *sqlx.DB) (*SQL, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &SQL{db: db, queries: q}, nil
}

// OpenSQL opens dbURL, applies pending migrations and returns the store.
func OpenSQL(ctx context.Context, dbURL string) (*SQL, error) {
	db, err := Open(ctx, dbURL)
	if err != nil {
		return nil, err
	}
	if _, err := MigrateUp(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	s, err := NewSQL(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying connection.
func (s *SQL) DB() *sqlx.DB { return s.db }

// Close closes the underlying connection.
func (s *SQL) Close() error { return s.db.Close() }

// PutRule inserts or replaces the rule with rule.ID.
func (s *SQL) PutRule(ctx context.Context, rule *types.Rule) error {
	if rule == nil || rule.ID == "" {
		return types.ErrEmptyID
	}

	countries, err := json.Marshal(nonNilStrings(rule.Countries))
	if err != nil {
		return fmt.Errorf("encode countries: %w", err)
	}
	root, err := json.Marshal(rule.RootCondition)
	if err != nil {
		return fmt.Errorf("encode root condition: %w", err)
	}
	actions, err := json.Marshal(nonNilActions(rule.Actions))
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}

	now := timestamp(s.db.DriverName(), time.Now())
	// JSON travels as text: lib/pq would send []byte as bytea.
	_, err = s.queries.Exec(ctx, "upsert-rule",
		string(rule.ID), rule.Name, rule.Description,
		string(countries), string(root), string(actions),
		rule.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert rule %s: %w", rule.ID, err)
	}
	return nil
}

// GetRule loads the rule with id.
func (s *SQL) GetRule(ctx context.Context, id types.RuleID) (*types.Rule, error) {
	var row ruleRow
	if err := s.queries.Get(ctx, "get-rule", &row, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrRuleNotFound
		}
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}
	return row.decode()
}

// ListRules loads every rule ordered by id.
func (s *SQL) ListRules(ctx context.Context) ([]*types.Rule, error) {
	var rows []ruleRow
	if err := s.queries.Select(ctx, "list-rules", &rows); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return decodeRows(rows)
}

// ListActiveRules loads the active rules ordered by id.
func (s *SQL) ListActiveRules(ctx context.Context) ([]*types.Rule, error) {
	var rows []ruleRow
	if err := s.queries.Select(ctx, "list-active-rules", &rows, true); err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}
	return decodeRows(rows)
}

// DeleteRule removes the rule with id.
func (s *SQL) DeleteRule(ctx context.Context, id types.RuleID) error {
	res, err := s.queries.Exec(ctx, "delete-rule", string(id))
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	if n == 0 {
		return types.ErrRuleNotFound
	}
	return nil
}

func decodeRows(rows []ruleRow) ([]*types.Rule, error) {
	out := make([]*types.Rule, 0, len(rows))
	for _, row := range rows {
		r, err := row.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (row ruleRow) decode() (*types.Rule, error) {
	r := &types.Rule{
		ID:          types.RuleID(row.RuleID),
		Name:        row.Name,
		Description: row.Description,
		IsActive:    row.IsActive,
	}
	if err := json.Unmarshal(row.Countries, &r.Countries); err != nil {
		return nil, fmt.Errorf("decode countries of rule %s: %w", row.RuleID, err)
	}
	if err := json.Unmarshal(row.RootCondition, &r.RootCondition); err != nil {
		return nil, fmt.Errorf("decode root condition of rule %s: %w", row.RuleID, err)
	}
	if err := json.Unmarshal(row.Actions, &r.Actions); err != nil {
		return nil, fmt.Errorf("decode actions of rule %s: %w", row.RuleID, err)
	}
	return r, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilActions(a []types.RuleAction) []types.RuleAction {
	if a == nil {
		return []types.RuleAction{}
	}
	return a
}

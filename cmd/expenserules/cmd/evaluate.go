package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/solatis/expenserules/internal/rules"
	"github.com/solatis/expenserules/internal/store"
	"github.com/solatis/expenserules/internal/types"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [EXPENSES.json]",
	Short: "Evaluate expense records against the active rules",
	Long: `Reads one JSON expense object or an array of them (from the file or
stdin) and prints every rule that matches each expense with the actions it
fires. With --rules the rules come from a document instead of the store.`,
	Example: `  echo '{"amount": 750, "country": "France", "category": "Meals"}' | expenserules evaluate
  expenserules evaluate expenses.json --rules policy.yaml -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("rules", "", "evaluate against this rule document instead of the store")
	evaluateCmd.Flags().StringP("output", "o", "table", "output format (table, json)")
}

// evaluation is the JSON output shape for one expense.
type evaluation struct {
	Index   int           `json:"index"`
	Matches []matchedRule `json:"matches"`
	Expense types.Expense `json:"-"`
}

type matchedRule struct {
	RuleID  types.RuleID       `json:"ruleId"`
	Name    string             `json:"name"`
	Actions []types.RuleAction `json:"actions"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unknown output format %q (expected table or json)", output)
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	in, closeIn, err := openInput(cmd, path)
	if err != nil {
		return err
	}
	defer closeIn()
	expenses, err := decodeExpenses(in)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var engine *rules.Engine
	if docPath, _ := cmd.Flags().GetString("rules"); docPath != "" {
		engine, err = documentEngine(ctx, docPath)
		if err != nil {
			return err
		}
	} else {
		var closeStore func()
		engine, closeStore, err = openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
	}

	results, err := engine.EvaluateBatch(ctx, expenses)
	if err != nil {
		return err
	}

	evals := make([]evaluation, len(expenses))
	for i, matched := range results {
		evals[i] = evaluation{Index: i, Expense: expenses[i], Matches: []matchedRule{}}
		for _, r := range matched {
			evals[i].Matches = append(evals[i].Matches, matchedRule{
				RuleID:  r.RuleID,
				Name:    r.RuleName,
				Actions: r.FiredActions,
			})
		}
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(evals)
	}
	renderEvaluations(cmd, evals)
	return nil
}

// documentEngine loads a rule document into a throwaway in-memory store.
// Active rules must validate, as they would on import.
func documentEngine(ctx context.Context, path string) (*rules.Engine, error) {
	loaded, err := loadDocuments([]string{path})
	if err != nil {
		return nil, err
	}
	engine := rules.NewEngine(store.NewMemory(),
		rules.WithLogger(logger),
		rules.WithRecorder(collector),
		rules.WithConcurrency(cfg.Engine.Concurrency),
	)
	for _, r := range loaded {
		if err := engine.SaveRule(ctx, r); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return engine, nil
}

// decodeExpenses accepts a single JSON object or an array of objects.
func decodeExpenses(r io.Reader) ([]types.Expense, error) {
	var raw any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode expenses: %w", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return []types.Expense{v}, nil
	case []any:
		out := make([]types.Expense, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decode expenses: element %d is not an object", i)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("decode expenses: expected an object or an array of objects")
	}
}

func renderEvaluations(cmd *cobra.Command, evals []evaluation) {
	t := newTable(cmd)
	t.AppendHeader(table.Row{"#", "Expense", "Rule", "Actions"})
	for _, e := range evals {
		summary := expenseSummary(e.Expense)
		if len(e.Matches) == 0 {
			t.AppendRow(table.Row{e.Index, summary, faint("no rule matched"), ""})
			continue
		}
		for _, m := range e.Matches {
			t.AppendRow(table.Row{e.Index, summary, bold(m.Name), actionSummary(m.Actions)})
		}
	}
	t.Render()
}

func expenseSummary(e types.Expense) string {
	var parts []string
	for _, key := range []string{types.FieldAmount, types.FieldCountry, types.FieldCategory, types.FieldMerchant} {
		if v, ok := e[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return truncate(strings.Join(parts, " "), 48)
}

func actionSummary(actions []types.RuleAction) string {
	parts := make([]string, len(actions))
	for i, a := range actions {
		parts[i] = a.ActionType.Label()
		if a.Message != "" {
			parts[i] += ": " + truncate(a.Message, 40)
		}
	}
	return strings.Join(parts, "\n")
}

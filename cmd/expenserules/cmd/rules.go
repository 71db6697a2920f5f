package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/solatis/expenserules/internal/ruledoc"
	"github.com/solatis/expenserules/internal/rules"
	"github.com/solatis/expenserules/internal/types"
	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage stored rules",
}

var rulesNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Print a new empty rule document to edit and import",
	Long: `Prints a rule document holding one fresh rule: unrestricted countries,
an empty AND root group and no actions. Add conditions and actions, then
load it with 'expenserules rules import'.`,
	Example: `  expenserules rules new --name "Large meals" > large-meals.yaml`,
	RunE:    runRulesNew,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check rule documents without storing them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRulesValidate,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Store every rule of the given documents, replacing rules with the same id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRulesImport,
}

var rulesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored rule as one document",
	RunE:  runRulesExport,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rules",
	RunE:  runRulesList,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show RULE_ID",
	Short: "Show one rule as a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesShow,
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete RULE_ID...",
	Short: "Delete rules",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRulesDelete,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable RULE_ID",
	Short: "Activate a rule (it must validate)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, types.RuleID(args[0]), true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable RULE_ID",
	Short: "Deactivate a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setActive(cmd, types.RuleID(args[0]), false)
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesNewCmd, rulesValidateCmd, rulesImportCmd, rulesExportCmd,
		rulesListCmd, rulesShowCmd, rulesDeleteCmd, rulesEnableCmd, rulesDisableCmd)

	rulesNewCmd.Flags().String("name", "", "rule name")
	rulesNewCmd.Flags().StringSlice("country", nil, "restrict to these countries (default: All)")
	rulesNewCmd.Flags().StringP("output", "o", "yaml", "document format (yaml, json)")
	rulesExportCmd.Flags().StringP("output", "o", "yaml", "document format (yaml, json)")
	rulesShowCmd.Flags().StringP("output", "o", "yaml", "document format (yaml, json)")
}

func outputFormat(cmd *cobra.Command) (ruledoc.Format, error) {
	s, _ := cmd.Flags().GetString("output")
	return ruledoc.ParseFormat(s)
}

func runRulesNew(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	countries, _ := cmd.Flags().GetStringSlice("country")

	rule := types.NewEmptyRule()
	upd := rules.RuleUpdate{Name: &name}
	if len(countries) > 0 {
		upd.Countries = countries
	}
	rule = rules.UpdateRule(rule, upd)

	return ruledoc.Write(cmd.OutOrStdout(), ruledoc.New(rule), format)
}

// loadDocuments reads every path and assigns ids where the author left
// them out.
func loadDocuments(paths []string) ([]*types.Rule, error) {
	var out []*types.Rule
	for _, path := range paths {
		doc, err := ruledoc.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, r := range doc.Rules {
			out = append(out, rules.EnsureIDs(r))
		}
	}
	return out, nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	loaded, err := loadDocuments(args)
	if err != nil {
		return err
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"Rule", "Node", "Problem"})
	invalid := 0
	for _, r := range loaded {
		problems := rules.Validate(r)
		if len(problems) == 0 {
			continue
		}
		invalid++
		for _, p := range problems {
			collector.ValidationProblem(p)
			t.AppendRow(table.Row{bold(ruleLabel(r)), faint(p.NodeID), red(p.Message)})
		}
	}

	if invalid == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d rule(s) valid\n", green("ok"), len(loaded))
		return nil
	}
	t.Render()
	return fmt.Errorf("%d of %d rule(s) invalid: %w", invalid, len(loaded), types.ErrInvalidRule)
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	loaded, err := loadDocuments(args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	engine, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var failed int
	for _, r := range loaded {
		if err := engine.SaveRule(ctx, r); err != nil {
			failed++
			if ve, ok := rules.AsValidationError(err); ok {
				for _, p := range ve.Problems {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", ruleLabel(r), p.Error())
				}
				continue
			}
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) imported, %d refused\n", len(loaded)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d rule(s) refused: %w", failed, types.ErrInvalidRule)
	}
	return nil
}

func runRulesExport(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	engine, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	all, err := engine.ListRules(ctx)
	if err != nil {
		return err
	}
	return ruledoc.Write(cmd.OutOrStdout(), ruledoc.New(all...), format)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	engine, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	all, err := engine.ListRules(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		logger.Info("no rules stored")
		return nil
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"ID", "Created", "Name", "Countries", "Active", "Actions", "Condition"})
	for _, r := range all {
		active := faint("no")
		if r.IsActive {
			active = green("yes")
		}
		t.AppendRow(table.Row{
			string(r.ID),
			createdAt(r.ID),
			bold(r.Name),
			joinOrDash(r.Countries),
			active,
			len(r.Actions),
			truncate(rules.FormatRule(r), 60),
		})
	}
	t.Render()
	return nil
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()
	engine, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	r, err := engine.GetRule(ctx, types.RuleID(args[0]))
	if err != nil {
		return fmt.Errorf("rule %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", faint("condition:"), rules.FormatRule(r))
	return ruledoc.Write(cmd.OutOrStdout(), ruledoc.New(r), format)
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	engine, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	var errs []error
	for _, id := range args {
		if err := engine.DeleteRule(ctx, types.RuleID(id)); err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func setActive(cmd *cobra.Command, id types.RuleID, active bool) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()
	engine, closeStore, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	r, err := engine.GetRule(ctx, id)
	if err != nil {
		return fmt.Errorf("rule %s: %w", id, err)
	}
	if err := engine.SaveRule(ctx, rules.UpdateRule(r, rules.RuleUpdate{IsActive: &active})); err != nil {
		return err
	}
	logger.Info("rule updated", slog.String("rule_id", string(id)), slog.Bool("active", active))
	return nil
}

func ruleLabel(r *types.Rule) string {
	if r.Name == "" {
		return string(r.ID)
	}
	return r.Name
}

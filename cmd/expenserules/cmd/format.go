package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/solatis/expenserules/internal/rules"
	"github.com/solatis/expenserules/internal/types"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:     "format FILE...",
	Short:   "Print the condition of every rule in the documents as an expression",
	Example: `  expenserules format policy.yaml`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadDocuments(args)
		if err != nil {
			return err
		}
		for _, r := range loaded {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", bold(ruleLabel(r)), rules.FormatRule(r))
		}
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List condition types with their operators, action types and field types",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		t := newTable(cmd)
		t.SetTitle("Conditions")
		t.AppendHeader(table.Row{"Type", "Label", "Operator", "Operator Label"})
		for _, ct := range types.ConditionTypes() {
			for i, op := range types.OperatorsFor(ct.Value) {
				if i == 0 {
					t.AppendRow(table.Row{bold(string(ct.Value)), ct.Label, string(op.Value), op.Label})
					continue
				}
				t.AppendRow(table.Row{"", "", string(op.Value), op.Label})
			}
			t.AppendSeparator()
		}
		t.Render()
		fmt.Fprintln(out)

		t = newTable(cmd)
		t.SetTitle("Actions")
		t.AppendHeader(table.Row{"Type", "Label"})
		for _, at := range types.ActionTypes() {
			t.AppendRow(table.Row{string(at.Value), at.Label})
		}
		t.Render()
		fmt.Fprintln(out)

		t = newTable(cmd)
		t.SetTitle("Additional Info Fields")
		t.AppendHeader(table.Row{"Type", "Label", "Needs Options"})
		for _, ft := range types.FieldTypes() {
			t.AppendRow(table.Row{string(ft.Value), ft.Label, ft.Value.NeedsOptions()})
		}
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd, catalogCmd)
}

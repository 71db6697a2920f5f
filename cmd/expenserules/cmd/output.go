package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/solatis/expenserules/internal/types"
	"github.com/spf13/cobra"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

// newTable returns a rounded table writer rendering to the command's stdout.
func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	s := table.StyleRounded
	s.Format.Header = text.FormatDefault
	t.SetStyle(s)
	return t
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// createdAt renders the creation time embedded in a UUIDv7 rule id, or "-"
// for ids minted elsewhere.
func createdAt(id types.RuleID) string {
	ts := types.RuleIDTime(id)
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04")
}

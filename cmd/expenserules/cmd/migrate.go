package cmd

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/solatis/expenserules/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the rule store",
	Example: `  expenserules migrate --db sqlite://rules.db
  ER_DATABASE_URL=postgres://app:pw@db/rules expenserules migrate`,
	RunE: runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func requireSQL() error {
	u, err := url.Parse(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("invalid database URL: %w", err)
	}
	if u.Scheme == "memory" {
		return fmt.Errorf("the in-memory store has no schema to migrate")
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if err := requireSQL(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	ran, err := store.MigrateUp(ctx, db)
	if err != nil {
		return err
	}
	for _, id := range ran {
		logger.Info("migration applied", slog.String("migration", id))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(ran))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	if err := requireSQL(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := store.MigrateStatus(ctx, db)
	if err != nil {
		return err
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"Migration", "Applied", "Applied At", "Duration", "Checksum"})
	for _, s := range statuses {
		applied := faint("pending")
		duration := ""
		if s.Applied {
			applied = bold("yes")
			duration = fmt.Sprintf("%dms", s.ExecutionMs)
		}
		t.AppendRow(table.Row{s.ID, applied, s.AppliedAt, duration, truncate(s.Checksum, 12)})
	}
	t.Render()
	return nil
}

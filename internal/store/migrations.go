package store

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/solatis/expenserules/migrations"
)

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   string
	ExecutionMs int64
}

// migration represents a parsed migration file
type migration struct {
	ID       string
	Checksum string
	SQL      string
}

// migrationSource picks the embedded migration set for the connection's driver.
func migrationSource(db *sqlx.DB) (embed.FS, string, error) {
	switch db.DriverName() {
	case driverSQLite:
		return embeddedmigrations.SqliteMigrations, "sqlite", nil
	case driverPostgres:
		return embeddedmigrations.PostgresMigrations, "postgres", nil
	default:
		return embed.FS{}, "", fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}
}

// MigrateUp applies every pending migration in filename order. Each
// migration runs in its own transaction together with its bookkeeping row.
// Returns the ids of the migrations it applied.
func MigrateUp(ctx context.Context, db *sqlx.DB) ([]string, error) {
	fsys, dir, err := migrationSource(db)
	if err != nil {
		return nil, err
	}

	if err := createMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	// An edited migration that already ran would leave the schema out of
	// step with the files; refuse to go further.
	if err := validateChecksums(ctx, db, migrations); err != nil {
		return nil, fmt.Errorf("migration checksum validation failed: %w", err)
	}

	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	var ran []string
	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}

		start := time.Now()

		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return ran, fmt.Errorf("failed to begin transaction for migration %s: %w", m.ID, err)
		}

		if err := applyMigration(ctx, tx, m); err != nil {
			tx.Rollback()
			return ran, fmt.Errorf("failed to apply migration %s: %w", m.ID, err)
		}

		if err := recordMigration(ctx, tx, m.ID, m.Checksum, time.Since(start)); err != nil {
			tx.Rollback()
			return ran, fmt.Errorf("failed to record migration %s: %w", m.ID, err)
		}

		if err := tx.Commit(); err != nil {
			return ran, fmt.Errorf("failed to commit migration %s: %w", m.ID, err)
		}
		ran = append(ran, m.ID)
	}

	return ran, nil
}

// MigrateStatus returns the status of all migrations (applied and pending).
func MigrateStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	fsys, dir, err := migrationSource(db)
	if err != nil {
		return nil, err
	}

	if err := createMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := parseMigrationFiles(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	// applied_at is scanned as text so one query serves both drivers.
	rows, err := db.QueryxContext(ctx, "SELECT migration_id, checksum, CAST(applied_at AS TEXT), execution_ms FROM migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]MigrationStatus)
	for rows.Next() {
		var status MigrationStatus
		if err := rows.Scan(&status.ID, &status.Checksum, &status.AppliedAt, &status.ExecutionMs); err != nil {
			return nil, err
		}
		status.Applied = true
		applied[status.ID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		if s, ok := applied[m.ID]; ok {
			statuses = append(statuses, s)
			continue
		}
		statuses = append(statuses, MigrationStatus{
			ID:       m.ID,
			Checksum: m.Checksum,
		})
	}

	return statuses, nil
}

// parseMigrationFiles extracts ordered list of migrations from embed.FS
func parseMigrationFiles(fsys embed.FS, dir string) ([]migration, error) {
	var migrations []migration

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}

		content, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		migrations = append(migrations, migration{
			ID:       filepath.Base(path),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
			SQL:      string(content),
		})

		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})

	return migrations, nil
}

// createMigrationsTable ensures the migrations bookkeeping table exists.
func createMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	var createSQL string

	if db.DriverName() == driverSQLite {
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TEXT NOT NULL,
				execution_ms INTEGER NOT NULL,
				CHECK (applied_at LIKE '____-__-__T__:__:__Z')
			)
		`
	} else {
		createSQL = `
			CREATE TABLE IF NOT EXISTS migrations (
				migration_id TEXT PRIMARY KEY,
				checksum TEXT NOT NULL,
				applied_at TIMESTAMP WITHOUT TIME ZONE NOT NULL,
				execution_ms INTEGER NOT NULL
			)
		`
	}

	_, err := db.ExecContext(ctx, createSQL)
	return err
}

// getAppliedMigrations returns a set of applied migration IDs
func getAppliedMigrations(ctx context.Context, db *sqlx.DB) (map[string]bool, error) {
	var ids []string
	if err := db.SelectContext(ctx, &ids, "SELECT migration_id FROM migrations"); err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}
	return applied, nil
}

// validateChecksums verifies all applied migrations match embedded checksums
func validateChecksums(ctx context.Context, db *sqlx.DB, migrations []migration) error {
	var rows []struct {
		ID       string `db:"migration_id"`
		Checksum string `db:"checksum"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT migration_id, checksum FROM migrations"); err != nil {
		return err
	}

	expected := make(map[string]string, len(migrations))
	for _, m := range migrations {
		expected[m.ID] = m.Checksum
	}

	for _, r := range rows {
		want, ok := expected[r.ID]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", r.ID)
		}
		if r.Checksum != want {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", r.ID, want, r.Checksum)
		}
	}

	return nil
}

// applyMigration executes the statements of one migration inside tx.
// lib/pq does not accept several statements in one Exec, so the file is
// split on semicolons.
func applyMigration(ctx context.Context, tx *sqlx.Tx, m migration) error {
	for _, stmt := range strings.Split(stripComments(m.SQL), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement failed: %w", err)
		}
	}
	return nil
}

// stripComments drops whole-line "--" comments.
func stripComments(sql string) string {
	lines := strings.Split(sql, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// recordMigration stores migration metadata within the migration's transaction
func recordMigration(ctx context.Context, tx *sqlx.Tx, id, checksum string, duration time.Duration) error {
	now := time.Now().UTC()

	_, err := tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		id, checksum, timestamp(tx.DriverName(), now), duration.Milliseconds(),
	)
	return err
}

// timestamp renders t for a timestamp column: RFC3339 text on SQLite,
// native time on PostgreSQL.
func timestamp(driver string, t time.Time) any {
	t = t.UTC().Truncate(time.Second)
	if driver == driverSQLite {
		return t.Format(time.RFC3339)
	}
	return t
}

// Package migrations embeds the schema for each supported database driver.
package migrations

import "embed"

// Migration files are applied in filename order by store.MigrateUp.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS

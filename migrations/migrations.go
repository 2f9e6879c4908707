// Package migrations embeds the schema migrations for each supported driver
// so the binary carries its own schema.
package migrations

import "embed"

// SqliteMigrations holds sqlite/*.sql, applied in file name order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds postgres/*.sql, applied in file name order.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS

// Package migrations embeds the schema migration files applied by
// sqlite.MigrateUp on store open.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

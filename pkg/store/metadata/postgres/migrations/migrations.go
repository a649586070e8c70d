// Package migrations embeds the PostgreSQL schema migrations so a deployed
// binary carries its own schema history.
package migrations

import "embed"

// FS holds the numbered .up.sql / .down.sql migration files.
//
//go:embed *.sql
var FS embed.FS

// Package migrations embeds the state ledger's SQL schema migrations.
package migrations

import "embed"

// FS holds every *.sql migration, applied in lexical order at startup.
//
//go:embed *.sql
var FS embed.FS

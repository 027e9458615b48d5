// Package migrations embeds the Postgres schema applied at startup.
package migrations

import "embed"

// FS contains the embedded Postgres migrations.
//
//go:embed *.sql
var FS embed.FS

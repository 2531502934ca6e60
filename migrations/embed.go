// Package migrations embeds the Postgres schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

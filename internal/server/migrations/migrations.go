// Package migrations embeds the goose SQL migrations for the live repository
// view, the sync ledger and the request queue.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

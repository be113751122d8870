// Package migrations embeds the goose SQL migrations for the local store.
package migrations

import "embed"

// FS holds the embedded migration files, applied by goose at store open.
//
//go:embed *.sql
var FS embed.FS

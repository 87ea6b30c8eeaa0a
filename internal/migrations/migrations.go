// Package migrations embeds the local replica schema, applied with goose
// on every store open.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

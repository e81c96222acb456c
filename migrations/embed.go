// Package migrations holds the PostgreSQL schema of the fact store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations встраивает SQL-миграции схемы PostgreSQL.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

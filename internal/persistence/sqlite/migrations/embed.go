// Package migrations embeds the SQL schema files applied at startup.
package migrations

import "embed"

// FS holds every {version}_{description}.sql file of this directory.
//
//go:embed *.sql
var FS embed.FS

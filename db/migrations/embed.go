// Package dbmigrations exposes embedded SQL migrations for jornet binaries.
package dbmigrations

import "embed"

// Files contains the embedded SQL migrations bundled into jornet binaries.
//
//go:embed *.sql
var Files embed.FS

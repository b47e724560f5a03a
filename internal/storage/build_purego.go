//go:build !cgo_sqlite

package storage

import (
	// Pure Go SQLite driver, no cgo required
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver to use for this build
const DriverName = "sqlite"

// BuildMode identifies the active SQLite driver
const BuildMode = "purego"

//go:build cgo_sqlite

package storage

import (
	// cgo SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver to use for this build
const DriverName = "sqlite3"

// BuildMode identifies the active SQLite driver
const BuildMode = "cgo"

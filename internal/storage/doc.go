// Package storage persists documents, their FTS5 lexical index entries,
// and their embedding vectors in a single SQLite database. The three
// relations share the document path as key but are written
// independently; callers own the fan-out ordering.
//
// Two drivers are supported via build tags: the default pure Go
// modernc.org/sqlite build and a cgo mattn/go-sqlite3 build
// (-tags cgo_sqlite).
package storage

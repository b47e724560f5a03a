package types

import "errors"

// Domain errors shared across the engine. All are recoverable at the
// caller's discretion; none are process-fatal.
var (
	// ErrDuplicatePath is returned by insert when the path already exists
	ErrDuplicatePath = errors.New("document path already exists")
	// ErrNotConfigured is returned when semantic search is requested
	// without an embedding provider attached
	ErrNotConfigured = errors.New("no embedding provider configured")
	// ErrStorage wraps storage-engine failures
	ErrStorage = errors.New("storage error")
	// ErrProvider wraps embedding computation failures
	ErrProvider = errors.New("embedding provider error")
	// ErrReferentialIntegrity is returned when an embedding is written
	// for a path with no matching document record
	ErrReferentialIntegrity = errors.New("embedding has no matching document")
)

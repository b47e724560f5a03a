package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/localsearch/pkg/types"
)

// ErrNotFound is returned when a requested record doesn't exist
var ErrNotFound = errors.New("not found")

// Store defines the interface for persisting and querying documents,
// their embeddings, and the full-text index. All three relations are
// keyed by document path. Implementations do not wrap the three
// relations in one transaction; the engine fans writes out and accepts
// the documented consistency risk.
type Store interface {
	// Document operations
	InsertDocument(ctx context.Context, doc *types.Document) error
	UpdateDocument(ctx context.Context, doc *types.Document) (bool, error)
	GetDocument(ctx context.Context, path string) (*types.Document, error)
	DeleteDocument(ctx context.Context, path string) error
	CountDocuments(ctx context.Context) (int64, error)

	// Embedding operations
	PutEmbedding(ctx context.Context, path string, vector []float32) error
	GetEmbedding(ctx context.Context, path string) ([]float32, error)
	DeleteEmbedding(ctx context.Context, path string) error

	// Lexical index operations
	InsertLexical(ctx context.Context, path, content string) error
	UpdateLexical(ctx context.Context, path, content string) error
	DeleteLexical(ctx context.Context, path string) error

	// Search operations
	SearchText(ctx context.Context, query string, pathFilters []string) ([]Candidate, error)
	SearchVector(ctx context.Context, queryVector []float32, pathFilters []string) ([]Candidate, error)

	// Handle operations
	Refresh() error
	Close() error
}

// Candidate is a scored document row produced by a storage-level
// search. The score scale depends on the source: BM25-derived for text
// search (higher is better), cosine similarity for vector search.
type Candidate struct {
	Path      string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
	Score     float64
}

// Package engine is the retrieval façade: it coordinates the document
// store, the embedding provider, and the lexical index behind the
// public insert/upsert/delete/search/stats/refresh operations.
package engine

import (
	"context"
	"fmt"

	"github.com/dshills/localsearch/internal/embedder"
	"github.com/dshills/localsearch/internal/searcher"
	"github.com/dshills/localsearch/internal/storage"
	"github.com/dshills/localsearch/pkg/types"
)

// Engine is the public entry point for indexing and searching
// documents. It may run without an embedding provider, in which case
// semantic search is unavailable and hybrid search degrades to
// lexical-only.
type Engine struct {
	store    storage.Store
	embedder embedder.Embedder
	searcher *searcher.Searcher
}

// Stats describes the current index state
type Stats struct {
	DocumentCount     int64  `json:"document_count"`
	EmbeddingProvider string `json:"embedding_provider,omitempty"`
	EmbeddingModel    string `json:"embedding_model,omitempty"`
	Dimension         int    `json:"dimension,omitempty"`
	BuildMode         string `json:"build_mode"`
}

// New creates an engine over a store and an optional embedder. A nil
// embedder disables semantic capability rather than approximating it.
func New(store storage.Store, emb embedder.Embedder) *Engine {
	return &Engine{
		store:    store,
		embedder: emb,
		searcher: searcher.New(store, emb),
	}
}

// Insert adds a new document. The path must not already exist; a
// duplicate fails with types.ErrDuplicatePath. On success the write
// fans out to the document store, then the embedding (when a provider
// is configured), then the lexical index. The three writes are not one
// transaction; a crash between steps can leave the stores inconsistent.
func (e *Engine) Insert(ctx context.Context, req types.DocumentRequest) error {
	doc := &types.Document{
		Path:     req.Path,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if err := e.store.InsertDocument(ctx, doc); err != nil {
		return err
	}

	if e.embedder != nil {
		if err := e.writeEmbedding(ctx, req.Path, req.Content); err != nil {
			return err
		}
	}

	return e.store.InsertLexical(ctx, req.Path, req.Content)
}

// Upsert updates an existing document or inserts it when the path is
// new. On update the embedding and lexical entry are recomputed
// unconditionally.
func (e *Engine) Upsert(ctx context.Context, req types.DocumentRequest) error {
	doc := &types.Document{
		Path:     req.Path,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	updated, err := e.store.UpdateDocument(ctx, doc)
	if err != nil {
		return err
	}
	if !updated {
		return e.Insert(ctx, req)
	}

	if e.embedder != nil {
		if err := e.writeEmbedding(ctx, req.Path, req.Content); err != nil {
			return err
		}
	}

	return e.store.UpdateLexical(ctx, req.Path, req.Content)
}

// Delete removes a document and its derived records. Children go
// first: embedding, then lexical entry, then the document row.
// Deleting a path that does not exist is a no-op success.
func (e *Engine) Delete(ctx context.Context, path string) error {
	if err := e.store.DeleteEmbedding(ctx, path); err != nil {
		return err
	}
	if err := e.store.DeleteLexical(ctx, path); err != nil {
		return err
	}
	return e.store.DeleteDocument(ctx, path)
}

// Search runs a query in the requested mode
func (e *Engine) Search(ctx context.Context, query string, opts searcher.Options) ([]types.SearchResult, error) {
	return e.searcher.Search(ctx, query, opts)
}

// Stats reports the document count and the active embedding
// configuration
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	count, err := e.store.CountDocuments(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		DocumentCount: count,
		BuildMode:     storage.BuildMode,
	}
	if e.embedder != nil {
		stats.EmbeddingProvider = e.embedder.Provider()
		stats.EmbeddingModel = e.embedder.Model()
		stats.Dimension = e.embedder.Dimension()
	}
	return stats, nil
}

// Refresh reopens the storage handle, picking up out-of-band
// replacement of the index file
func (e *Engine) Refresh() error {
	return e.store.Refresh()
}

// Close releases the store and the embedder
func (e *Engine) Close() error {
	var firstErr error
	if e.embedder != nil {
		if err := e.embedder.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// writeEmbedding computes, normalizes and stores the vector for a
// document. Normalization happens here, at write time, so search can
// score with a plain dot product.
func (e *Engine) writeEmbedding(ctx context.Context, path, content string) error {
	vec, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrProvider, err)
	}
	embedder.NormalizeVector(vec)
	return e.store.PutEmbedding(ctx, path, vec)
}

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localsearch/internal/embedder"
	"github.com/dshills/localsearch/internal/searcher"
	"github.com/dshills/localsearch/internal/storage"
	"github.com/dshills/localsearch/pkg/types"
)

func newTestEngine(t *testing.T, withEmbedder bool) (*Engine, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	var emb embedder.Embedder
	if withEmbedder {
		emb, err = embedder.New(embedder.Options{Provider: "local"})
		require.NoError(t, err)
	}

	e := New(store, emb)
	t.Cleanup(func() { _ = e.Close() })
	return e, store
}

func TestInsertFanOut(t *testing.T) {
	e, store := newTestEngine(t, true)
	ctx := context.Background()

	err := e.Insert(ctx, types.DocumentRequest{
		Path:     "a.txt",
		Content:  "rust systems programming",
		Metadata: map[string]string{"topic": "rust"},
	})
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "rust systems programming", doc.Content)

	vec, err := store.GetEmbedding(ctx, "a.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)

	// Lexical entry was written too
	hits, err := store.SearchText(ctx, "rust", nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.txt", hits[0].Path)
}

func TestInsertWithoutEmbedderSkipsVector(t *testing.T) {
	e, store := newTestEngine(t, false)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "text"}))

	_, err := store.GetEmbedding(ctx, "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInsertDuplicateRejected(t *testing.T) {
	e, _ := newTestEngine(t, false)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "first"}))

	err := e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "second"})
	assert.ErrorIs(t, err, types.ErrDuplicatePath)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.DocumentCount)
}

func TestUpsertInsertsWhenMissing(t *testing.T) {
	e, _ := newTestEngine(t, false)
	ctx := context.Background()

	require.NoError(t, e.Upsert(ctx, types.DocumentRequest{Path: "a.txt", Content: "content"}))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.DocumentCount)
}

func TestUpsertOverwrites(t *testing.T) {
	e, store := newTestEngine(t, true)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "old content"}))
	oldVec, err := store.GetEmbedding(ctx, "a.txt")
	require.NoError(t, err)

	require.NoError(t, e.Upsert(ctx, types.DocumentRequest{Path: "a.txt", Content: "new content"}))

	doc, err := store.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "new content", doc.Content)

	newVec, err := store.GetEmbedding(ctx, "a.txt")
	require.NoError(t, err)
	assert.NotEqual(t, oldVec, newVec)

	// The lexical entry tracks the new content
	hits, err := store.SearchText(ctx, "old", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = store.SearchText(ctx, "new", nil)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.DocumentCount)
}

func TestDeleteRemovesAllRecords(t *testing.T) {
	e, store := newTestEngine(t, true)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "content here"}))
	require.NoError(t, e.Delete(ctx, "a.txt"))

	_, err := store.GetDocument(ctx, "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetEmbedding(ctx, "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	hits, err := store.SearchText(ctx, "content", nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, true)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "content"}))
	require.NoError(t, e.Delete(ctx, "a.txt"))
	require.NoError(t, e.Delete(ctx, "a.txt"))
	require.NoError(t, e.Delete(ctx, "never-existed.txt"))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.DocumentCount)
}

func TestStatsReportsEmbedderConfig(t *testing.T) {
	e, _ := newTestEngine(t, true)

	stats, err := e.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", stats.EmbeddingProvider)
	assert.Equal(t, "hash-v1", stats.EmbeddingModel)
	assert.Equal(t, 384, stats.Dimension)
	assert.NotEmpty(t, stats.BuildMode)

	bare, _ := newTestEngine(t, false)
	stats, err = bare.Stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.EmbeddingProvider)
	assert.Zero(t, stats.Dimension)
}

func TestStoredEmbeddingIsNormalized(t *testing.T) {
	e, store := newTestEngine(t, true)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "some document text"}))

	vec, err := store.GetEmbedding(ctx, "a.txt")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, storage.CosineSimilarity(vec, vec), 1e-5)
}

func TestSearchThroughFacade(t *testing.T) {
	e, _ := newTestEngine(t, false)
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "rust systems programming"}))
	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "b.txt", Content: "python programming language"}))
	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "c.txt", Content: "cooking recipes"}))

	results, err := e.Search(ctx, "programming", searcher.Options{Mode: types.SearchModeLexical})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = e.Search(ctx, "programming", searcher.Options{Mode: types.SearchModeSemantic})
	assert.ErrorIs(t, err, types.ErrNotConfigured)

	results, err = e.Search(ctx, "programming", searcher.Options{Mode: types.SearchModeHybrid})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRefreshKeepsEngineUsable(t *testing.T) {
	dbPath := t.TempDir() + "/index.db"
	store, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	e := New(store, nil)
	defer e.Close()
	ctx := context.Background()

	require.NoError(t, e.Insert(ctx, types.DocumentRequest{Path: "a.txt", Content: "durable"}))
	require.NoError(t, e.Refresh())

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.DocumentCount)
}

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/localsearch/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func insertTestDocument(t *testing.T, store *SQLiteStore, path, content string) {
	t.Helper()
	ctx := context.Background()
	doc := &types.Document{Path: path, Content: content}
	require.NoError(t, store.InsertDocument(ctx, doc))
	require.NoError(t, store.InsertLexical(ctx, path, content))
}

func TestInsertAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &types.Document{
		Path:     "notes/a.txt",
		Content:  "rust is a systems programming language",
		Metadata: map[string]string{"lang": "en"},
	}
	require.NoError(t, store.InsertDocument(ctx, doc))
	assert.False(t, doc.CreatedAt.IsZero())
	assert.Equal(t, doc.CreatedAt, doc.UpdatedAt)

	got, err := store.GetDocument(ctx, "notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, map[string]string{"lang": "en"}, got.Metadata)
}

func TestInsertDuplicatePath(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &types.Document{Path: "a.txt", Content: "first"}
	require.NoError(t, store.InsertDocument(ctx, doc))

	dup := &types.Document{Path: "a.txt", Content: "second"}
	err := store.InsertDocument(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrDuplicatePath))

	// Stored state is untouched
	got, err := store.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Content)
}

func TestUpdateDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &types.Document{Path: "a.txt", Content: "original"}
	require.NoError(t, store.InsertDocument(ctx, doc))

	updated := &types.Document{Path: "a.txt", Content: "revised", Metadata: map[string]string{"rev": "2"}}
	ok, err := store.UpdateDocument(ctx, updated)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Content)
	assert.Equal(t, "2", got.Metadata["rev"])
}

func TestUpdateMissingDocument(t *testing.T) {
	store := newTestStore(t)

	ok, err := store.UpdateDocument(context.Background(),
		&types.Document{Path: "ghost.txt", Content: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetMissingDocument(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetDocument(context.Background(), "ghost.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteDocumentIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertTestDocument(t, store, "a.txt", "content")
	require.NoError(t, store.DeleteLexical(ctx, "a.txt"))
	require.NoError(t, store.DeleteDocument(ctx, "a.txt"))

	// Second delete of the same path succeeds
	require.NoError(t, store.DeleteDocument(ctx, "a.txt"))
	require.NoError(t, store.DeleteLexical(ctx, "a.txt"))
	require.NoError(t, store.DeleteEmbedding(ctx, "a.txt"))
}

func TestCountDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	insertTestDocument(t, store, "a.txt", "alpha")
	insertTestDocument(t, store, "b.txt", "beta")

	count, err = store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPutEmbeddingRequiresDocument(t *testing.T) {
	store := newTestStore(t)

	err := store.PutEmbedding(context.Background(), "ghost.txt", []float32{1, 0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrReferentialIntegrity))
}

func TestPutAndGetEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertTestDocument(t, store, "a.txt", "content")

	vec := []float32{0.6, 0.8, 0}
	require.NoError(t, store.PutEmbedding(ctx, "a.txt", vec))

	got, err := store.GetEmbedding(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	// Put replaces an existing embedding
	replacement := []float32{0, 1, 0}
	require.NoError(t, store.PutEmbedding(ctx, "a.txt", replacement))
	got, err = store.GetEmbedding(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestSearchTextRanksAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertTestDocument(t, store, "a.txt", "rust is a systems programming language")
	insertTestDocument(t, store, "b.txt", "python is a scripting programming language")
	insertTestDocument(t, store, "c.txt", "cooking recipes for pasta dishes")

	results, err := store.SearchText(ctx, "programming", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.NotEqual(t, "c.txt", r.Path)
	}

	// Path filter restricts the candidate set before ranking
	filtered, err := store.SearchText(ctx, "programming", []string{"a"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a.txt", filtered[0].Path)
}

func TestSearchTextFilterDisjunction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertTestDocument(t, store, "src/main.go", "package main entry point")
	insertTestDocument(t, store, "docs/readme.md", "main documentation for the package")
	insertTestDocument(t, store, "test/main_test.go", "package main test coverage")

	results, err := store.SearchText(ctx, "package", []string{"src", "docs"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	paths := []string{results[0].Path, results[1].Path}
	assert.Contains(t, paths, "src/main.go")
	assert.Contains(t, paths, "docs/readme.md")
}

func TestSearchTextNoMatches(t *testing.T) {
	store := newTestStore(t)
	insertTestDocument(t, store, "a.txt", "rust programming")

	results, err := store.SearchText(context.Background(), "zebra", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTextSanitizesOperators(t *testing.T) {
	store := newTestStore(t)
	insertTestDocument(t, store, "a.txt", "rust programming")

	// FTS5 operator characters must not produce a syntax error
	for _, q := range []string{`rust AND NOT`, `"rust`, `rust*`, `-rust`, `NEAR(rust)`} {
		_, err := store.SearchText(context.Background(), q, nil)
		assert.NoError(t, err, "query %q", q)
	}
}

func TestSearchVectorRanking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertTestDocument(t, store, "a.txt", "alpha")
	insertTestDocument(t, store, "b.txt", "beta")
	insertTestDocument(t, store, "c.txt", "gamma")

	require.NoError(t, store.PutEmbedding(ctx, "a.txt", []float32{1, 0, 0}))
	require.NoError(t, store.PutEmbedding(ctx, "b.txt", []float32{0.6, 0.8, 0}))
	require.NoError(t, store.PutEmbedding(ctx, "c.txt", []float32{0, 0, 1}))

	results, err := store.SearchVector(ctx, []float32{1, 0, 0}, nil)
	require.NoError(t, err)
	// c.txt is orthogonal to the query and falls below the floor
	require.Len(t, results, 2)
	assert.Equal(t, "a.txt", results[0].Path)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "b.txt", results[1].Path)
	assert.InDelta(t, 0.6, results[1].Score, 1e-6)
}

func TestSearchVectorPathFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertTestDocument(t, store, "a.txt", "alpha")
	insertTestDocument(t, store, "b.txt", "beta")
	require.NoError(t, store.PutEmbedding(ctx, "a.txt", []float32{1, 0}))
	require.NoError(t, store.PutEmbedding(ctx, "b.txt", []float32{1, 0}))

	results, err := store.SearchVector(ctx, []float32{1, 0}, []string{"b"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.txt", results[0].Path)
}

func TestRefreshPreservesData(t *testing.T) {
	dbPath := t.TempDir() + "/index.db"
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	insertTestDocument(t, store, "a.txt", "persistent content")

	require.NoError(t, store.Refresh())

	got, err := store.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "persistent content", got.Content)

	count, err := store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMigrationsIdempotent(t *testing.T) {
	dbPath := t.TempDir() + "/index.db"

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening an already-migrated database succeeds
	store, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

// Package embedder generates embedding vectors for document content
// and search queries. Providers are pluggable; all vectors are
// L2-normalized before use so similarity reduces to a dot product.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Embedder generates embedding vectors for text
type Embedder interface {
	// Embed generates a normalized embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates normalized embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding dimension
	Dimension() int
	// Provider returns the provider name
	Provider() string
	// Model returns the model identifier
	Model() string
	// Close releases provider resources
	Close() error
}

// ComputeHash returns a stable cache key for a text
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cache wraps an Embedder with an LRU cache keyed by content hash.
// Identical texts hit the provider once.
type Cache struct {
	embedder Embedder
	cache    *lru.Cache[string, []float32]
}

// NewCache creates a caching wrapper around an embedder
func NewCache(e Embedder, size int) (*Cache, error) {
	if size <= 0 {
		size = 1000
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &Cache{embedder: e, cache: c}, nil
}

// Embed returns a cached vector when available, otherwise delegates to
// the wrapped embedder and caches the result. Callers get their own
// copy; mutating it does not corrupt the cached entry.
func (c *Cache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := ComputeHash(text)
	if vec, ok := c.cache.Get(key); ok {
		return cloneVector(vec), nil
	}
	vec, err := c.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneVector(vec))
	return vec, nil
}

// EmbedBatch serves cached entries and sends only the misses to the
// wrapped embedder
func (c *Cache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(ComputeHash(text)); ok {
			results[i] = cloneVector(vec)
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vecs, err := c.embedder.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(missTexts) {
			return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vecs), len(missTexts))
		}
		for j, vec := range vecs {
			results[missIdx[j]] = vec
			c.cache.Add(ComputeHash(missTexts[j]), cloneVector(vec))
		}
	}
	return results, nil
}

// Dimension returns the wrapped embedder's dimension
func (c *Cache) Dimension() int { return c.embedder.Dimension() }

// Provider returns the wrapped embedder's provider name
func (c *Cache) Provider() string { return c.embedder.Provider() }

// Model returns the wrapped embedder's model identifier
func (c *Cache) Model() string { return c.embedder.Model() }

// Close purges the cache and closes the wrapped embedder
func (c *Cache) Close() error {
	c.cache.Purge()
	return c.embedder.Close()
}

// cloneVector copies a vector so cached entries and caller-held slices
// stay independent
func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}

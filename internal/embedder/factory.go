package embedder

import (
	"fmt"
)

// Options configures embedder construction
type Options struct {
	Provider  string
	APIKey    string
	Model     string
	Dimension int
	CacheSize int
}

// New builds an embedder from options, wrapped in an LRU cache. An
// empty provider name returns nil with no error; callers treat a nil
// embedder as "not configured" and run lexical-only.
func New(opts Options) (Embedder, error) {
	var inner Embedder

	switch opts.Provider {
	case "":
		return nil, nil
	case "local":
		inner = NewLocalProvider()
	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		inner = NewOpenAIProvider(opts.APIKey, opts.Model, opts.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}

	return NewCache(inner, opts.CacheSize)
}

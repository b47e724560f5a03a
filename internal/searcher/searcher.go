// Package searcher runs lexical, semantic, and hybrid retrieval over
// the storage layer and fuses scores into a single ranked list.
package searcher

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/dshills/localsearch/internal/embedder"
	"github.com/dshills/localsearch/internal/storage"
	"github.com/dshills/localsearch/pkg/types"
)

// Fusion constants. The weights are fixed; making them configurable is
// a possible later revision.
const (
	lexicalWeight  = 0.6
	semanticWeight = 0.4
	defaultLimit   = 10
)

// Searcher coordinates retrieval across the lexical index and the
// vector store
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder
}

// New creates a searcher. A nil embedder disables semantic retrieval;
// hybrid searches then degrade to lexical-only.
func New(store storage.Store, emb embedder.Embedder) *Searcher {
	return &Searcher{store: store, embedder: emb}
}

// Options configures a single search
type Options struct {
	Mode        types.SearchMode
	PathFilters []string
	Limit       int
}

// Search runs a query in the requested mode and returns fused, ranked
// results. Limiting is applied after fusion and sorting so the top-N
// reflects the fused rank.
func (s *Searcher) Search(ctx context.Context, query string, opts Options) ([]types.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var results []types.SearchResult
	var err error

	switch opts.Mode {
	case types.SearchModeLexical:
		results, err = s.searchLexical(ctx, query, opts.PathFilters)
	case types.SearchModeSemantic:
		results, err = s.searchSemantic(ctx, query, opts.PathFilters)
	case types.SearchModeHybrid:
		results, err = s.searchHybrid(ctx, query, opts.PathFilters)
	default:
		return nil, fmt.Errorf("unknown search mode: %s", opts.Mode)
	}
	if err != nil {
		return nil, err
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// searchLexical runs an FTS query and softmaxes the relevance scores so
// scores are comparable probabilities across heterogeneous queries
func (s *Searcher) searchLexical(ctx context.Context, query string, pathFilters []string) ([]types.SearchResult, error) {
	candidates, err := s.store.SearchText(ctx, query, pathFilters)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}
	probs := softmax(scores)

	results := make([]types.SearchResult, len(candidates))
	for i, c := range candidates {
		p := probs[i]
		results[i] = types.SearchResult{
			Path:       c.Path,
			Metadata:   c.Metadata,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
			FTSScore:   &p,
			FinalScore: p,
		}
	}
	return results, nil
}

// searchSemantic embeds the query and ranks stored vectors by cosine
// similarity
func (s *Searcher) searchSemantic(ctx context.Context, query string, pathFilters []string) ([]types.SearchResult, error) {
	if s.embedder == nil {
		return nil, types.ErrNotConfigured
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProvider, err)
	}

	candidates, err := s.store.SearchVector(ctx, queryVec, pathFilters)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, len(candidates))
	for i, c := range candidates {
		score := c.Score
		results[i] = types.SearchResult{
			Path:          c.Path,
			Metadata:      c.Metadata,
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
			SemanticScore: &score,
			FinalScore:    score,
		}
	}
	return results, nil
}

// searchHybrid runs both retrievals and fuses by path. A lexical
// failure is swallowed and treated as zero candidates; a semantic
// failure surfaces, since the caller explicitly asked for it.
func (s *Searcher) searchHybrid(ctx context.Context, query string, pathFilters []string) ([]types.SearchResult, error) {
	if s.embedder == nil {
		return s.searchLexical(ctx, query, pathFilters)
	}

	lexical, err := s.store.SearchText(ctx, query, pathFilters)
	if err != nil {
		log.Printf("hybrid search: lexical retrieval failed, continuing semantic-only: %v", err)
		lexical = nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProvider, err)
	}
	semantic, err := s.store.SearchVector(ctx, queryVec, pathFilters)
	if err != nil {
		return nil, err
	}

	return fuse(lexical, semantic), nil
}

// fuse merges lexical and semantic candidates by path. Lexical scores
// are max-normalized into [0,1] and reported in that normalized form;
// cosine similarities are bounded already and used as-is. A document
// present in only one source keeps the other score field unset; the
// weighted sum treats it as 0.
func fuse(lexical, semantic []storage.Candidate) []types.SearchResult {
	merged := make(map[string]*types.SearchResult, len(lexical)+len(semantic))

	divisor := 1.0
	if len(lexical) > 0 {
		max := lexical[0].Score
		for _, c := range lexical[1:] {
			if c.Score > max {
				max = c.Score
			}
		}
		if max > 1e-5 || max < -1e-5 {
			divisor = max
		}
	}

	for _, c := range lexical {
		norm := c.Score / divisor
		merged[c.Path] = &types.SearchResult{
			Path:       c.Path,
			Metadata:   c.Metadata,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
			FTSScore:   &norm,
			FinalScore: lexicalWeight * norm,
		}
	}

	for _, c := range semantic {
		score := c.Score
		if r, ok := merged[c.Path]; ok {
			r.SemanticScore = &score
			r.FinalScore += semanticWeight * score
			continue
		}
		merged[c.Path] = &types.SearchResult{
			Path:          c.Path,
			Metadata:      c.Metadata,
			CreatedAt:     c.CreatedAt,
			UpdatedAt:     c.UpdatedAt,
			SemanticScore: &score,
			FinalScore:    semanticWeight * score,
		}
	}

	results := make([]types.SearchResult, 0, len(merged))
	for _, r := range merged {
		results = append(results, *r)
	}
	return results
}

// sortResults orders by descending final score, ties broken by path so
// results are reproducible
func sortResults(results []types.SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].Path < results[j].Path
	})
}

package types

import "time"

// SearchMode selects the retrieval strategy for a search
type SearchMode string

const (
	// SearchModeLexical uses FTS5 keyword matching only
	SearchModeLexical SearchMode = "lexical"
	// SearchModeSemantic uses vector similarity only
	SearchModeSemantic SearchMode = "semantic"
	// SearchModeHybrid fuses lexical and semantic scores
	SearchModeHybrid SearchMode = "hybrid"
)

// Document is a stored document record keyed by its unique path
type Document struct {
	Path      string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentRequest carries the caller-supplied fields for insert/upsert
type DocumentRequest struct {
	Path     string            `json:"path"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a single ranked hit. FTSScore and SemanticScore are
// nil when the corresponding retrieval source did not produce the hit;
// hybrid searches may populate both.
type SearchResult struct {
	Path          string            `json:"path"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	FTSScore      *float64          `json:"fts_score,omitempty"`
	SemanticScore *float64          `json:"semantic_score,omitempty"`
	FinalScore    float64           `json:"final_score"`
}

package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/dshills/localsearch/pkg/types"
)

// minSimilarity is the floor below which vector matches are dropped
const minSimilarity = 1e-3

// serializeVector converts a float32 slice into a little-endian byte
// blob for storage
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector converts a little-endian byte blob back into a
// float32 slice. Trailing bytes that don't form a full float32 are
// ignored.
func deserializeVector(blob []byte) []float32 {
	n := len(blob) / 4
	vector := make([]float32, n)
	for i := 0; i < n; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// CosineSimilarity computes the similarity between two vectors. Stored
// and query vectors are L2-normalized at write time, so this reduces to
// a dot product. Mismatched lengths yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// ftsOperatorPattern matches FTS5 query syntax that user input should
// not be able to trigger
var ftsOperatorPattern = regexp.MustCompile(`[":\-*^]|(\bAND\b)|(\bOR\b)|(\bNOT\b)|(\bNEAR\b)`)

// sanitizeFTSQuery neutralizes FTS5 operators in a user query so it is
// treated as plain terms. Each surviving token is double-quoted.
func sanitizeFTSQuery(query string) string {
	cleaned := ftsOperatorPattern.ReplaceAllString(query, " ")
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return `""`
	}
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, ``) + `"`
	}
	return strings.Join(quoted, " ")
}

// pathFilterClause builds a disjunctive substring filter over the
// column. Any filter matching admits the row.
func pathFilterClause(column string, filters []string) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, len(filters))
	args := make([]interface{}, len(filters))
	for i, f := range filters {
		clauses[i] = fmt.Sprintf("instr(%s, ?) > 0", column)
		args[i] = f
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

// searchText runs a BM25-ranked FTS5 query joined against the document
// table. SQLite's bm25() is lower-is-better, so it is negated into a
// higher-is-better score.
func searchText(ctx context.Context, db *sql.DB, query string, pathFilters []string) ([]Candidate, error) {
	sanitized := sanitizeFTSQuery(query)

	sqlQuery := `
		SELECT d.path, d.metadata, d.created_at, d.updated_at,
		       bm25(documents_fts) * -1 AS score
		FROM documents_fts
		JOIN documents d ON documents_fts.path = d.path
		WHERE documents_fts MATCH ?
	`
	args := []interface{}{sanitized}
	if clause, filterArgs := pathFilterClause("d.path", pathFilters); clause != "" {
		sqlQuery += " AND " + clause
		args = append(args, filterArgs...)
	}
	sqlQuery += " ORDER BY score DESC, d.path ASC"

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: FTS query failed: %v", types.ErrStorage, err)
	}
	defer rows.Close()

	return scanCandidates(rows, nil)
}

// searchVector loads every stored embedding (restricted by path
// filters) and scores it against the query vector in Go. Matches below
// minSimilarity are dropped.
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, pathFilters []string) ([]Candidate, error) {
	sqlQuery := `
		SELECT d.path, d.metadata, d.created_at, d.updated_at, e.embedding
		FROM document_embeddings e
		JOIN documents d ON e.path = d.path
	`
	var args []interface{}
	if clause, filterArgs := pathFilterClause("d.path", pathFilters); clause != "" {
		sqlQuery += " WHERE " + clause
		args = append(args, filterArgs...)
	}

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding scan failed: %v", types.ErrStorage, err)
	}
	defer rows.Close()

	candidates, err := scanCandidates(rows, queryVector)
	if err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Path < candidates[j].Path
	})
	return candidates, nil
}

// scanCandidates reads rows into candidates. With a nil queryVector the
// fifth column is the precomputed score; otherwise it is an embedding
// blob scored against queryVector, with sub-floor matches dropped.
func scanCandidates(rows *sql.Rows, queryVector []float32) ([]Candidate, error) {
	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		var metadata string

		if queryVector == nil {
			if err := rows.Scan(&c.Path, &metadata, &c.CreatedAt, &c.UpdatedAt, &c.Score); err != nil {
				return nil, fmt.Errorf("%w: failed to scan result: %v", types.ErrStorage, err)
			}
		} else {
			var blob []byte
			if err := rows.Scan(&c.Path, &metadata, &c.CreatedAt, &c.UpdatedAt, &blob); err != nil {
				return nil, fmt.Errorf("%w: failed to scan result: %v", types.ErrStorage, err)
			}
			c.Score = CosineSimilarity(queryVector, deserializeVector(blob))
			if c.Score < minSimilarity {
				continue
			}
		}

		meta, err := decodeMetadata(metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode metadata: %v", types.ErrStorage, err)
		}
		c.Metadata = meta
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
	return candidates, nil
}

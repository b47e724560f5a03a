package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/localsearch/pkg/types"
)

// SQLiteStore implements the Store interface using SQLite with FTS5
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys so embedding writes require a document row
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and applies
// any pending migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", types.ErrStorage, err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to apply migrations: %v", types.ErrStorage, err)
	}

	return &SQLiteStore{dbPath: dbPath, db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Refresh discards the current storage handle and reopens it against
// the same path, picking up out-of-band replacement of the backing
// file. It does not merge concurrent changes.
func (s *SQLiteStore) Refresh() error {
	db, err := openDatabase(s.dbPath)
	if err != nil {
		return fmt.Errorf("%w: failed to reopen database: %v", types.ErrStorage, err)
	}
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: failed to apply migrations: %v", types.ErrStorage, err)
	}

	old := s.db
	s.db = db
	if err := old.Close(); err != nil {
		return fmt.Errorf("%w: failed to close previous connection: %v", types.ErrStorage, err)
	}
	return nil
}

// Document operations

// InsertDocument inserts a new document row. The path must not already
// exist; a duplicate insert fails with types.ErrDuplicatePath and does
// not mutate stored state.
func (s *SQLiteStore) InsertDocument(ctx context.Context, doc *types.Document) error {
	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return fmt.Errorf("%w: failed to serialize metadata: %v", types.ErrStorage, err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO documents (path, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, doc.Path, doc.Content, metadata, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", types.ErrDuplicatePath, doc.Path)
		}
		return fmt.Errorf("%w: failed to insert document: %v", types.ErrStorage, err)
	}

	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

// UpdateDocument updates content, metadata and updated_at for an
// existing path. Returns false when no row matched.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, doc *types.Document) (bool, error) {
	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return false, fmt.Errorf("%w: failed to serialize metadata: %v", types.ErrStorage, err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE documents SET content = ?, metadata = ?, updated_at = ?
		WHERE path = ?
	`
	result, err := s.db.ExecContext(ctx, query, doc.Content, metadata, now, doc.Path)
	if err != nil {
		return false, fmt.Errorf("%w: failed to update document: %v", types.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrStorage, err)
	}
	if rows == 0 {
		return false, nil
	}

	doc.UpdatedAt = now
	return true, nil
}

// GetDocument retrieves a document by path
func (s *SQLiteStore) GetDocument(ctx context.Context, path string) (*types.Document, error) {
	query := `
		SELECT path, content, metadata, created_at, updated_at
		FROM documents
		WHERE path = ?
	`
	var doc types.Document
	var metadata string
	err := s.db.QueryRowContext(ctx, query, path).Scan(
		&doc.Path, &doc.Content, &metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get document: %v", types.ErrStorage, err)
	}

	doc.Metadata, err = decodeMetadata(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode metadata: %v", types.ErrStorage, err)
	}
	return &doc, nil
}

// DeleteDocument removes a document row. Deleting a nonexistent path
// is a no-op success.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("%w: failed to delete document: %v", types.ErrStorage, err)
	}
	return nil
}

// CountDocuments returns the total number of indexed documents
func (s *SQLiteStore) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count documents: %v", types.ErrStorage, err)
	}
	return count, nil
}

// Embedding operations

// PutEmbedding inserts or replaces the embedding for a path. The
// vector is persisted as a little-endian float32 blob. Writing an
// embedding for a path with no document row fails with
// types.ErrReferentialIntegrity.
func (s *SQLiteStore) PutEmbedding(ctx context.Context, path string, vector []float32) error {
	query := `
		INSERT INTO document_embeddings (path, embedding)
		VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET embedding = excluded.embedding
	`
	_, err := s.db.ExecContext(ctx, query, path, serializeVector(vector))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", types.ErrReferentialIntegrity, path)
		}
		return fmt.Errorf("%w: failed to put embedding: %v", types.ErrStorage, err)
	}
	return nil
}

// GetEmbedding retrieves the stored vector for a path
func (s *SQLiteStore) GetEmbedding(ctx context.Context, path string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding FROM document_embeddings WHERE path = ?`, path).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get embedding: %v", types.ErrStorage, err)
	}
	return deserializeVector(blob), nil
}

// DeleteEmbedding removes the embedding for a path, if present
func (s *SQLiteStore) DeleteEmbedding(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM document_embeddings WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("%w: failed to delete embedding: %v", types.ErrStorage, err)
	}
	return nil
}

// Lexical index operations

// InsertLexical adds a document to the FTS5 index. The lexical entry
// mirrors the document lifecycle; the engine writes it explicitly
// rather than through triggers so the fan-out ordering stays visible.
func (s *SQLiteStore) InsertLexical(ctx context.Context, path, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents_fts (path, content) VALUES (?, ?)`, path, content)
	if err != nil {
		return fmt.Errorf("%w: failed to insert into FTS index: %v", types.ErrStorage, err)
	}
	return nil
}

// UpdateLexical replaces the indexed content for a path
func (s *SQLiteStore) UpdateLexical(ctx context.Context, path, content string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents_fts SET content = ? WHERE path = ?`, content, path)
	if err != nil {
		return fmt.Errorf("%w: failed to update FTS index: %v", types.ErrStorage, err)
	}
	return nil
}

// DeleteLexical removes a path from the FTS5 index, if present
func (s *SQLiteStore) DeleteLexical(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents_fts WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("%w: failed to delete from FTS index: %v", types.ErrStorage, err)
	}
	return nil
}

// Search operations

// SearchText performs a BM25 full-text search over the FTS5 index.
// Path filters are pushed into the query so filtered-out documents
// never reach the caller's normalization step.
func (s *SQLiteStore) SearchText(ctx context.Context, query string, pathFilters []string) ([]Candidate, error) {
	return searchText(ctx, s.db, query, pathFilters)
}

// SearchVector scans all stored embeddings, applies path filters before
// scoring, and returns candidates ranked by cosine similarity. The scan
// is deliberately linear; there is no approximate index.
func (s *SQLiteStore) SearchVector(ctx context.Context, queryVector []float32, pathFilters []string) ([]Candidate, error) {
	return searchVector(ctx, s.db, queryVector, pathFilters)
}

// Helpers

func encodeMetadata(metadata map[string]string) (string, error) {
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeMetadata(raw string) (map[string]string, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, err
	}
	return metadata, nil
}

// isUniqueViolation reports whether err is a SQLite unique constraint
// failure. Both drivers surface the same constraint message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a SQLite foreign key
// constraint failure
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

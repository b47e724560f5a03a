package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// Migration represents a single schema migration
type Migration struct {
	Version     string
	Description string
	Up          []string
	Down        []string
}

// migrations holds all schema migrations in version order
var migrations = []Migration{
	{
		Version:     "1.0.0",
		Description: "Initial schema: documents, FTS5 index, embeddings",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				path TEXT PRIMARY KEY,
				content TEXT NOT NULL,
				metadata TEXT NOT NULL DEFAULT 'null',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`,
			// The lexical index is written explicitly alongside the
			// document row, never through triggers. path is UNINDEXED
			// so only content participates in BM25.
			`CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
				path UNINDEXED,
				content
			)`,
			`CREATE TABLE IF NOT EXISTS document_embeddings (
				path TEXT PRIMARY KEY,
				embedding BLOB NOT NULL,
				FOREIGN KEY (path) REFERENCES documents(path)
			)`,
		},
		Down: []string{
			`DROP TABLE IF EXISTS document_embeddings`,
			`DROP TABLE IF EXISTS documents_fts`,
			`DROP TABLE IF EXISTS documents`,
		},
	},
}

// ApplyMigrations brings the schema up to the latest version
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if err := ensureVersionTable(ctx, db); err != nil {
		return err
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %q: %w", m.Version, err)
		}
		if current == nil || v.GreaterThan(current) {
			pending = append(pending, m)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		vi := semver.MustParse(pending[i].Version)
		vj := semver.MustParse(pending[j].Version)
		return vi.LessThan(vj)
	})

	for _, m := range pending {
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
	}
	return nil
}

func ensureVersionTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// currentVersion returns the highest applied version, or nil when no
// migration has run yet
func currentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var highest *semver.Version
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid recorded version %q: %w", raw, err)
		}
		if highest == nil || v.GreaterThan(highest) {
			highest = v
		}
	}
	return highest, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.Up {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
		return err
	}
	return tx.Commit()
}

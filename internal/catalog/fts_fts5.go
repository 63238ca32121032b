//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/iplantc/decat/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS apps_fts USING fts5(
			id UNINDEXED,
			name,
			description,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM apps_fts`); err != nil {
		return fmt.Errorf("catalog: reset fts: %w", err)
	}
	return nil
}

func ftsUpsert(tx *sql.Tx, id, name, description string) error {
	_, _ = tx.Exec(`DELETE FROM apps_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO apps_fts (id, name, description) VALUES (?, ?, ?)`, id, name, description)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

// SearchApps performs an FTS5 full-text search over app names and descriptions.
func (db *DB) SearchApps(query string, limit int) ([]models.AppSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id,
		       name,
		       snippet(apps_fts, 2, '<b>', '</b>', '...', 32)
		FROM apps_fts
		WHERE apps_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search apps: %w", err)
	}
	defer rows.Close()

	var out []models.AppSearchResult
	for rows.Next() {
		var r models.AppSearchResult
		if err := rows.Scan(&r.ID, &r.Name, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/iplantc/decat/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; app search uses LIKE over the apps table.
	return nil
}

func ftsReset(_ *sql.Tx) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

// SearchApps performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchApps(query string, limit int) ([]models.AppSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, name, substr(description, 1, 200)
		FROM apps
		WHERE name LIKE ? OR description LIKE ? OR integrator LIKE ?
		ORDER BY name COLLATE NOCASE
		LIMIT ?
	`, like, like, like, limit)
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

package catalog

import (
	"database/sql"
	"fmt"

	"github.com/iplantc/decat/internal/models"
)

func scanComponents(rows *sql.Rows) ([]models.DeployedComponent, error) {
	defer rows.Close()
	var out []models.DeployedComponent
	for rows.Next() {
		var c models.DeployedComponent
		if err := rows.Scan(&c.ID, &c.Name, &c.Version, &c.Location, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Components lists every deployed component by name.
func (db *DB) Components() ([]models.DeployedComponent, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, version, location, description
		FROM components
		ORDER BY name COLLATE NOCASE, version
	`)
	if err != nil {
		return nil, fmt.Errorf("catalog: components: %w", err)
	}
	return scanComponents(rows)
}

// AppComponents lists the components an app runs.
func (db *DB) AppComponents(appID string) ([]models.DeployedComponent, error) {
	if err := db.requireApp(appID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(`
		SELECT c.id, c.name, c.version, c.location, c.description
		FROM components c
		JOIN app_components ac ON ac.component_id = c.id
		WHERE ac.app_id = ?
		ORDER BY c.name COLLATE NOCASE, c.version
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("catalog: app components: %w", err)
	}
	return scanComponents(rows)
}

// SearchComponents matches term against component names and descriptions.
func (db *DB) SearchComponents(term string) ([]models.DeployedComponent, error) {
	like := "%" + term + "%"
	rows, err := db.conn.Query(`
		SELECT id, name, version, location, description
		FROM components
		WHERE name LIKE ? OR description LIKE ?
		ORDER BY name COLLATE NOCASE, version
	`, like, like)
	if err != nil {
		return nil, fmt.Errorf("catalog: search components: %w", err)
	}
	return scanComponents(rows)
}

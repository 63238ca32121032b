package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iplantc/decat/internal/apperr"
	"github.com/iplantc/decat/internal/models"
)

const appColumns = `a.id, a.name, a.description, a.integrator, a.favorite, a.updated_at`

// subtreeCTE selects the id of a category and all of its descendants.
const subtreeCTE = `
	WITH RECURSIVE subtree(id) AS (
		SELECT id FROM categories WHERE id = ?
		UNION ALL
		SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
	)`

type scanner interface {
	Scan(dest ...any) error
}

func scanApp(s scanner) (models.App, error) {
	var a models.App
	err := s.Scan(&a.ID, &a.Name, &a.Description, &a.Integrator, &a.IsFavorite, &a.UpdatedAt)
	return a, err
}

func (db *DB) exists(table, id string) (bool, error) {
	var n int
	// table is always a package constant.
	err := db.conn.QueryRow(`SELECT count(*) FROM `+table+` WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("catalog: lookup %s %s: %w", table, id, err)
	}
	return n > 0, nil
}

func (db *DB) requireCategory(id string) error {
	ok, err := db.exists("categories", id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("catalog: category %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) requireApp(id string) error {
	ok, err := db.exists("apps", id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("catalog: app %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (db *DB) categoryIDs(appID string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT category_id FROM app_categories WHERE app_id = ? ORDER BY category_id`, appID)
	if err != nil {
		return nil, fmt.Errorf("catalog: app categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// GetApp returns an app with the ids of every category it is filed under.
func (db *DB) GetApp(id string) (*models.App, error) {
	a, err := scanApp(db.conn.QueryRow(`SELECT `+appColumns+` FROM apps a WHERE a.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: app %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get app: %w", err)
	}
	if a.CategoryIDs, err = db.categoryIDs(id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *DB) allApps() ([]models.App, error) {
	rows, err := db.conn.Query(`SELECT ` + appColumns + ` FROM apps a ORDER BY a.rowid`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all apps: %w", err)
	}
	var out []models.App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].CategoryIDs, err = db.categoryIDs(out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AppsInCategory returns the distinct apps filed anywhere in the subtree
// rooted at categoryID, ordered by name.
func (db *DB) AppsInCategory(categoryID string) ([]models.App, error) {
	if err := db.requireCategory(categoryID); err != nil {
		return nil, err
	}
	rows, err := db.conn.Query(subtreeCTE+`
		SELECT DISTINCT `+appColumns+`
		FROM apps a
		JOIN app_categories ac ON ac.app_id = a.id
		WHERE ac.category_id IN (SELECT id FROM subtree)
		ORDER BY a.name COLLATE NOCASE, a.id
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("catalog: apps in category: %w", err)
	}
	defer rows.Close()

	var out []models.App
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountApps returns the number of distinct apps in the subtree rooted at
// categoryID.
func (db *DB) CountApps(categoryID string) (int, error) {
	if err := db.requireCategory(categoryID); err != nil {
		return 0, err
	}
	var n int
	err := db.conn.QueryRow(subtreeCTE+`
		SELECT count(DISTINCT app_id) FROM app_categories
		WHERE category_id IN (SELECT id FROM subtree)
	`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: count apps: %w", err)
	}
	return n, nil
}

// InsertApp stores a new app, its category memberships, and components.
func (db *DB) InsertApp(app models.App, componentIDs []string) error {
	ok, err := db.exists("apps", app.ID)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("catalog: app %s: %w", app.ID, apperr.ErrAlreadyExists)
	}
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = time.Now().UTC()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`INSERT INTO apps (id, name, description, integrator, favorite, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		app.ID, app.Name, app.Description, app.Integrator, app.IsFavorite, app.UpdatedAt); err != nil {
		return fmt.Errorf("catalog: insert app: %w", err)
	}
	if err := linkApp(tx, app.ID, app.CategoryIDs, componentIDs); err != nil {
		return err
	}
	if err := ftsUpsert(tx, app.ID, app.Name, app.Description); err != nil {
		return err
	}
	return tx.Commit()
}

// AddAppToCategory files an app under a category. Filing it twice is a no-op.
func (db *DB) AddAppToCategory(appID, categoryID string) error {
	if err := db.requireApp(appID); err != nil {
		return err
	}
	if err := db.requireCategory(categoryID); err != nil {
		return err
	}
	if _, err := db.conn.Exec(`INSERT OR IGNORE INTO app_categories (app_id, category_id) VALUES (?, ?)`, appID, categoryID); err != nil {
		return fmt.Errorf("catalog: add app to category: %w", err)
	}
	return nil
}

// RemoveAppFromCategory removes a single membership.
func (db *DB) RemoveAppFromCategory(appID, categoryID string) error {
	res, err := db.conn.Exec(`DELETE FROM app_categories WHERE app_id = ? AND category_id = ?`, appID, categoryID)
	if err != nil {
		return fmt.Errorf("catalog: remove app from category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: remove app from category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("catalog: app %s in category %s: %w", appID, categoryID, apperr.ErrNotFound)
	}
	return nil
}

// SetFavorite flags or unflags an app as a favorite and, when favoritesID is
// set, keeps its membership in that category in step. It reports whether
// anything changed.
func (db *DB) SetFavorite(appID string, favorite bool, favoritesID string) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var current bool
	err = tx.QueryRow(`SELECT favorite FROM apps WHERE id = ?`, appID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("catalog: app %s: %w", appID, apperr.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("catalog: read favorite: %w", err)
	}
	if current == favorite {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE apps SET favorite = ?, updated_at = ? WHERE id = ?`, favorite, time.Now().UTC(), appID); err != nil {
		return false, fmt.Errorf("catalog: update favorite: %w", err)
	}
	if favoritesID != "" {
		if favorite {
			_, err = tx.Exec(`INSERT OR IGNORE INTO app_categories (app_id, category_id) VALUES (?, ?)`, appID, favoritesID)
		} else {
			_, err = tx.Exec(`DELETE FROM app_categories WHERE app_id = ? AND category_id = ?`, appID, favoritesID)
		}
		if err != nil {
			return false, fmt.Errorf("catalog: favorites membership: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("catalog: commit favorite: %w", err)
	}
	return true, nil
}

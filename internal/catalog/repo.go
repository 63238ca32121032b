package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iplantc/decat/internal/category"
	"github.com/iplantc/decat/internal/seed"
)

const seedChecksumKey = "seed_checksum"

type categoryRow struct {
	ID       string
	Name     string
	ParentID sql.NullString
}

// ReplaceFromSeed swaps the whole catalog for doc within one transaction
// and records checksum as the applied seed version.
func (db *DB) ReplaceFromSeed(doc *seed.Document, checksum string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, stmt := range []string{
		`DELETE FROM app_components`,
		`DELETE FROM app_categories`,
		`DELETE FROM apps`,
		`DELETE FROM components`,
		`DELETE FROM categories`,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("catalog: clear: %w", err)
		}
	}
	if err := ftsReset(tx); err != nil {
		return err
	}

	if err := insertCategories(tx, doc.Categories); err != nil {
		return err
	}

	for _, c := range doc.Components {
		if _, err := tx.Exec(`INSERT INTO components (id, name, version, location, description) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Version, c.Location, c.Description); err != nil {
			return fmt.Errorf("catalog: insert component %s: %w", c.ID, err)
		}
	}

	now := time.Now().UTC()
	for _, a := range doc.Apps {
		if _, err := tx.Exec(`INSERT INTO apps (id, name, description, integrator, favorite, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.Name, a.Description, a.Integrator, a.Favorite, now); err != nil {
			return fmt.Errorf("catalog: insert app %s: %w", a.ID, err)
		}
		if err := linkApp(tx, a.ID, a.Categories, a.Components); err != nil {
			return err
		}
		if err := ftsUpsert(tx, a.ID, a.Name, a.Description); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, seedChecksumKey, checksum); err != nil {
		return fmt.Errorf("catalog: record seed checksum: %w", err)
	}

	return tx.Commit()
}

// insertCategories writes the forest parents first, keeping sibling order
// in the position column.
func insertCategories(tx *sql.Tx, roots []seed.Category) error {
	type pending struct {
		parent   sql.NullString
		position int
		cat      seed.Category
	}
	stack := make([]pending, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, pending{position: i, cat: roots[i]})
	}

	stmt, err := tx.Prepare(`INSERT INTO categories (id, name, parent_id, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare category insert: %w", err)
	}
	defer stmt.Close()

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, err := stmt.Exec(p.cat.ID, p.cat.Name, p.parent, p.position); err != nil {
			return fmt.Errorf("catalog: insert category %s: %w", p.cat.ID, err)
		}
		parent := sql.NullString{String: p.cat.ID, Valid: true}
		for i := len(p.cat.Categories) - 1; i >= 0; i-- {
			stack = append(stack, pending{parent: parent, position: i, cat: p.cat.Categories[i]})
		}
	}
	return nil
}

func linkApp(tx *sql.Tx, appID string, categoryIDs, componentIDs []string) error {
	for _, cid := range categoryIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO app_categories (app_id, category_id) VALUES (?, ?)`, appID, cid); err != nil {
			return fmt.Errorf("catalog: file app %s under %s: %w", appID, cid, err)
		}
	}
	for _, cid := range componentIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO app_components (app_id, component_id) VALUES (?, ?)`, appID, cid); err != nil {
			return fmt.Errorf("catalog: link app %s to component %s: %w", appID, cid, err)
		}
	}
	return nil
}

// SeedChecksum returns the checksum of the last applied seed, or "" if none.
func (db *DB) SeedChecksum() (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, seedChecksumKey).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: seed checksum: %w", err)
	}
	return cs, nil
}

func (db *DB) categoryRows() ([]categoryRow, error) {
	rows, err := db.conn.Query(`SELECT id, name, parent_id FROM categories ORDER BY position, rowid`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	defer rows.Close()

	var out []categoryRow
	for rows.Next() {
		var r categoryRow
		if err := rows.Scan(&r.ID, &r.Name, &r.ParentID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) memberships() (map[string][]string, error) {
	rows, err := db.conn.Query(`SELECT category_id, app_id FROM app_categories ORDER BY category_id, app_id`)
	if err != nil {
		return nil, fmt.Errorf("catalog: memberships: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var cid, aid string
		if err := rows.Scan(&cid, &aid); err != nil {
			return nil, err
		}
		out[cid] = append(out[cid], aid)
	}
	return out, rows.Err()
}

// Categories returns the nested category listing. Roots keep seed order and
// each count is the number of distinct apps anywhere in that subtree.
func (db *DB) Categories() ([]category.Category, error) {
	rows, err := db.categoryRows()
	if err != nil {
		return nil, err
	}
	members, err := db.memberships()
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(rows))
	children := make(map[string][]string)
	var roots []string
	for _, r := range rows {
		names[r.ID] = r.Name
		if r.ParentID.Valid {
			children[r.ParentID.String] = append(children[r.ParentID.String], r.ID)
		} else {
			roots = append(roots, r.ID)
		}
	}

	var build func(id string) (category.Category, map[string]struct{})
	build = func(id string) (category.Category, map[string]struct{}) {
		apps := make(map[string]struct{})
		for _, a := range members[id] {
			apps[a] = struct{}{}
		}
		c := category.Category{ID: id, Name: names[id]}
		for _, child := range children[id] {
			cc, childApps := build(child)
			c.Categories = append(c.Categories, cc)
			for a := range childApps {
				apps[a] = struct{}{}
			}
		}
		c.AppCount = len(apps)
		return c, apps
	}

	out := make([]category.Category, 0, len(roots))
	for _, id := range roots {
		c, _ := build(id)
		out = append(out, c)
	}
	return out, nil
}

// Export rebuilds a seed document from the current catalog state.
func (db *DB) Export() (*seed.Document, error) {
	rows, err := db.categoryRows()
	if err != nil {
		return nil, err
	}
	byParent := make(map[string][]categoryRow)
	var roots []categoryRow
	for _, r := range rows {
		if r.ParentID.Valid {
			byParent[r.ParentID.String] = append(byParent[r.ParentID.String], r)
		} else {
			roots = append(roots, r)
		}
	}
	var build func(r categoryRow) seed.Category
	build = func(r categoryRow) seed.Category {
		c := seed.Category{ID: r.ID, Name: r.Name}
		for _, child := range byParent[r.ID] {
			c.Categories = append(c.Categories, build(child))
		}
		return c
	}

	doc := &seed.Document{}
	for _, r := range roots {
		doc.Categories = append(doc.Categories, build(r))
	}

	components, err := db.Components()
	if err != nil {
		return nil, err
	}
	for _, c := range components {
		doc.Components = append(doc.Components, seed.Component{
			ID:          c.ID,
			Name:        c.Name,
			Version:     c.Version,
			Location:    c.Location,
			Description: c.Description,
		})
	}

	apps, err := db.allApps()
	if err != nil {
		return nil, err
	}
	for _, a := range apps {
		comps, err := db.AppComponents(a.ID)
		if err != nil {
			return nil, err
		}
		sa := seed.App{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Integrator:  a.Integrator,
			Favorite:    a.IsFavorite,
			Categories:  a.CategoryIDs,
		}
		for _, c := range comps {
			sa.Components = append(sa.Components, c.ID)
		}
		doc.Apps = append(doc.Apps, sa)
	}
	return doc, nil
}

// Package appservice keeps the category tree in step with the catalog and
// translates app membership changes into propagated count adjustments.
package appservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/iplantc/decat/internal/apperr"
	"github.com/iplantc/decat/internal/catalog"
	"github.com/iplantc/decat/internal/category"
	"github.com/iplantc/decat/internal/models"
)

// EventSink receives notifications about tree changes.
type EventSink interface {
	CategoryCountChanged(id string, count int)
	CatalogReloaded()
}

// Workspace names the per-user categories the service manages itself.
type Workspace struct {
	Favorites string
	UserApps  string
}

// CategoryDetail is a category subtree plus its position in the forest.
type CategoryDetail struct {
	category.Category
	ParentID  string   `json:"parent_id,omitempty"`
	Root      bool     `json:"root"`
	Hierarchy []string `json:"hierarchy"`
}

// AppDetail is an app with the hierarchy path of every category holding it.
type AppDetail struct {
	models.App
	Hierarchies [][]string `json:"hierarchies"`
}

// Option configures a Service.
type Option func(*Service)

// WithEvents sets the sink notified of count changes and reloads.
func WithEvents(sink EventSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// Service owns the current category tree. All tree access goes through mu,
// so event reactions are applied one at a time.
type Service struct {
	db     catalog.Catalog
	ws     Workspace
	logger *slog.Logger
	sink   EventSink

	mu   sync.Mutex
	tree *category.Tree
}

// NewService creates a new app service. The tree is fetched on first use.
func NewService(db catalog.Catalog, ws Workspace, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{db: db, ws: ws, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reload fetches the category listing and replaces the tree wholesale.
func (s *Service) Reload(_ context.Context) error {
	s.mu.Lock()
	err := s.load()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if s.sink != nil {
		s.sink.CatalogReloaded()
	}
	return nil
}

func (s *Service) load() error {
	listing, err := s.db.Categories()
	if err != nil {
		return fmt.Errorf("appservice: fetch categories: %w", err)
	}
	tree := category.New()
	if err := tree.AddCategories(nil, listing); err != nil {
		return fmt.Errorf("appservice: build tree: %w", err)
	}
	s.tree = tree
	s.logger.Debug("category tree loaded", slog.Int("categories", tree.Len()))
	return nil
}

// withTree runs fn against the current tree, loading it first if needed.
func (s *Service) withTree(fn func(*category.Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		if err := s.load(); err != nil {
			return err
		}
	}
	return fn(s.tree)
}

func lookup(tree *category.Tree, id string) (*category.Node, error) {
	n, ok := tree.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("appservice: category %s: %w", id, apperr.ErrNotFound)
	}
	return n, nil
}

func detail(tree *category.Tree, n *category.Node) (*CategoryDetail, error) {
	path, err := tree.AncestorPath(n)
	if err != nil {
		return nil, err
	}
	d := &CategoryDetail{
		Category:  tree.Subtree(n),
		Root:      tree.IsRoot(n),
		Hierarchy: path,
	}
	if p, ok := tree.Parent(n); ok {
		d.ParentID = p.ID
	}
	return d, nil
}

// adjust sets n's count and notifies the sink for n and every ancestor.
func (s *Service) adjust(tree *category.Tree, n *category.Node, count int) error {
	before := n.ItemCount
	if err := tree.AdjustItemCount(n, count); err != nil {
		return err
	}
	if before == count || s.sink == nil {
		return nil
	}
	for cur, ok := n, true; ok; cur, ok = tree.Parent(cur) {
		s.sink.CategoryCountChanged(cur.ID, cur.ItemCount)
	}
	return nil
}

// recount sets the category's count from the catalog.
func (s *Service) recount(tree *category.Tree, categoryID string) (*category.Node, error) {
	n, err := lookup(tree, categoryID)
	if err != nil {
		return nil, err
	}
	count, err := s.db.CountApps(categoryID)
	if err != nil {
		return nil, err
	}
	if err := s.adjust(tree, n, count); err != nil {
		return nil, err
	}
	return n, nil
}

// settle recounts categoryID after a committed catalog write. Subtree counts
// are distinct, so a delta can be rejected by an ancestor that already
// dropped the app; the tree is then rebuilt from the catalog instead.
// It returns the node from whichever tree is current afterwards.
func (s *Service) settle(tree *category.Tree, categoryID string) (*category.Tree, *category.Node, error) {
	n, err := s.recount(tree, categoryID)
	if err == nil {
		return tree, n, nil
	}
	s.logger.Warn("count adjustment rejected, reloading tree",
		slog.String("category", categoryID),
		slog.String("error", err.Error()))
	if err := s.load(); err != nil {
		return nil, nil, err
	}
	if s.sink != nil {
		s.sink.CatalogReloaded()
	}
	n, err = lookup(s.tree, categoryID)
	return s.tree, n, err
}

// Categories returns the whole forest with current counts.
func (s *Service) Categories(_ context.Context) ([]category.Category, error) {
	var out []category.Category
	err := s.withTree(func(tree *category.Tree) error {
		out = tree.Snapshot()
		return nil
	})
	return out, err
}

// Category returns one category subtree by id.
func (s *Service) Category(_ context.Context, id string) (*CategoryDetail, error) {
	var out *CategoryDetail
	err := s.withTree(func(tree *category.Tree) error {
		n, err := lookup(tree, id)
		if err != nil {
			return err
		}
		out, err = detail(tree, n)
		return err
	})
	return out, err
}

// FindCategory returns the first category whose name matches, ignoring case.
func (s *Service) FindCategory(_ context.Context, name string) (*CategoryDetail, error) {
	var out *CategoryDetail
	err := s.withTree(func(tree *category.Tree) error {
		n, ok := tree.FindByName(name)
		if !ok {
			return fmt.Errorf("appservice: category named %q: %w", name, apperr.ErrNotFound)
		}
		var err error
		out, err = detail(tree, n)
		return err
	})
	return out, err
}

// Hierarchy returns the category names from the root down to id.
func (s *Service) Hierarchy(_ context.Context, id string) ([]string, error) {
	var out []string
	err := s.withTree(func(tree *category.Tree) error {
		n, err := lookup(tree, id)
		if err != nil {
			return err
		}
		out, err = tree.AncestorPath(n)
		return err
	})
	return out, err
}

// GetApp returns an app with its category hierarchies.
func (s *Service) GetApp(_ context.Context, appID string) (*AppDetail, error) {
	app, err := s.db.GetApp(appID)
	if err != nil {
		return nil, err
	}
	d := &AppDetail{App: *app, Hierarchies: [][]string{}}
	err = s.withTree(func(tree *category.Tree) error {
		for _, cid := range app.CategoryIDs {
			n, ok := tree.FindByID(cid)
			if !ok {
				s.logger.Warn("app filed under unknown category",
					slog.String("app", appID), slog.String("category", cid))
				continue
			}
			path, err := tree.AncestorPath(n)
			if err != nil {
				return err
			}
			d.Hierarchies = append(d.Hierarchies, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// AppHierarchies returns the hierarchy path of every category holding the app.
func (s *Service) AppHierarchies(ctx context.Context, appID string) ([][]string, error) {
	d, err := s.GetApp(ctx, appID)
	if err != nil {
		return nil, err
	}
	return d.Hierarchies, nil
}

// ListApps returns the apps in a category's subtree. The category's count is
// brought in line with the listing size.
func (s *Service) ListApps(_ context.Context, categoryID string) ([]models.App, error) {
	var out []models.App
	err := s.withTree(func(tree *category.Tree) error {
		n, err := lookup(tree, categoryID)
		if err != nil {
			return err
		}
		apps, err := s.db.AppsInCategory(categoryID)
		if err != nil {
			return err
		}
		out = nonNilSlice(apps)
		if err := s.adjust(tree, n, len(apps)); err != nil {
			s.logger.Warn("count adjustment rejected",
				slog.String("category", categoryID),
				slog.Int("count", len(apps)),
				slog.String("error", err.Error()))
		}
		return nil
	})
	return out, err
}

// AddAppToCategory files an app under a category and updates counts.
func (s *Service) AddAppToCategory(_ context.Context, appID, categoryID string) (*CategoryDetail, error) {
	var out *CategoryDetail
	err := s.withTree(func(tree *category.Tree) error {
		if _, err := lookup(tree, categoryID); err != nil {
			return err
		}
		if err := s.db.AddAppToCategory(appID, categoryID); err != nil {
			return err
		}
		tree, n, err := s.settle(tree, categoryID)
		if err != nil {
			return err
		}
		out, err = detail(tree, n)
		return err
	})
	return out, err
}

// RemoveAppFromCategory removes an app from a category and updates counts.
func (s *Service) RemoveAppFromCategory(_ context.Context, appID, categoryID string) (*CategoryDetail, error) {
	var out *CategoryDetail
	err := s.withTree(func(tree *category.Tree) error {
		if _, err := lookup(tree, categoryID); err != nil {
			return err
		}
		if err := s.db.RemoveAppFromCategory(appID, categoryID); err != nil {
			return err
		}
		tree, n, err := s.settle(tree, categoryID)
		if err != nil {
			return err
		}
		out, err = detail(tree, n)
		return err
	})
	return out, err
}

// SetFavorite marks or unmarks an app as a favorite and recounts the
// favorites category when the flag actually changed.
func (s *Service) SetFavorite(ctx context.Context, appID string, favorite bool) (*AppDetail, error) {
	err := s.withTree(func(tree *category.Tree) error {
		fav, ok := tree.FindByName(s.ws.Favorites)
		favID := ""
		if ok {
			favID = fav.ID
		}
		changed, err := s.db.SetFavorite(appID, favorite, favID)
		if err != nil || !changed || !ok {
			return err
		}
		_, _, err = s.settle(tree, favID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.GetApp(ctx, appID)
}

// CopyApp duplicates an app into the user apps category.
func (s *Service) CopyApp(ctx context.Context, appID string) (*AppDetail, error) {
	src, err := s.db.GetApp(appID)
	if err != nil {
		return nil, err
	}
	comps, err := s.db.AppComponents(appID)
	if err != nil {
		return nil, err
	}
	componentIDs := make([]string, 0, len(comps))
	for _, c := range comps {
		componentIDs = append(componentIDs, c.ID)
	}

	var copyID string
	err = s.withTree(func(tree *category.Tree) error {
		dev, ok := tree.FindByName(s.ws.UserApps)
		if !ok {
			return fmt.Errorf("appservice: user apps category %q: %w", s.ws.UserApps, apperr.ErrNotFound)
		}
		cp := models.App{
			ID:          uuid.NewString(),
			Name:        "Copy of " + src.Name,
			Description: src.Description,
			Integrator:  src.Integrator,
			CategoryIDs: []string{dev.ID},
		}
		if err := s.db.InsertApp(cp, componentIDs); err != nil {
			return err
		}
		copyID = cp.ID
		_, _, err := s.settle(tree, dev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("app copied", slog.String("source", appID), slog.String("copy", copyID))
	return s.GetApp(ctx, copyID)
}

// SearchApps delegates app search to the catalog.
func (s *Service) SearchApps(_ context.Context, query string, limit int) ([]models.AppSearchResult, error) {
	res, err := s.db.SearchApps(query, limit)
	return nonNilSlice(res), err
}

// Components lists every deployed component.
func (s *Service) Components(_ context.Context) ([]models.DeployedComponent, error) {
	res, err := s.db.Components()
	return nonNilSlice(res), err
}

// SearchComponents finds deployed components by name or description.
func (s *Service) SearchComponents(_ context.Context, term string) ([]models.DeployedComponent, error) {
	res, err := s.db.SearchComponents(term)
	return nonNilSlice(res), err
}

// AppComponents lists the deployed components an app runs.
func (s *Service) AppComponents(_ context.Context, appID string) ([]models.DeployedComponent, error) {
	res, err := s.db.AppComponents(appID)
	return nonNilSlice(res), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

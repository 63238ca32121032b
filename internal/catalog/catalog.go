package catalog

import (
	"github.com/iplantc/decat/internal/category"
	"github.com/iplantc/decat/internal/models"
	"github.com/iplantc/decat/internal/seed"
)

// Catalog defines the persistence operations behind the category service.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type Catalog interface {
	ReplaceFromSeed(doc *seed.Document, checksum string) error
	SeedChecksum() (string, error)
	Export() (*seed.Document, error)

	Categories() ([]category.Category, error)
	AppsInCategory(categoryID string) ([]models.App, error)
	CountApps(categoryID string) (int, error)

	GetApp(id string) (*models.App, error)
	InsertApp(app models.App, componentIDs []string) error
	AddAppToCategory(appID, categoryID string) error
	RemoveAppFromCategory(appID, categoryID string) error
	SetFavorite(appID string, favorite bool, favoritesID string) (bool, error)
	SearchApps(query string, limit int) ([]models.AppSearchResult, error)

	Components() ([]models.DeployedComponent, error)
	AppComponents(appID string) ([]models.DeployedComponent, error)
	SearchComponents(term string) ([]models.DeployedComponent, error)

	Close() error
}

// Verify *DB satisfies Catalog at compile time.
var _ Catalog = (*DB)(nil)

package api

import (
	"github.com/iplantc/decat/internal/appservice"
	"github.com/iplantc/decat/internal/category"
	"github.com/iplantc/decat/internal/models"
)

// CategoryDetail is a category subtree with its hierarchy (aliased from the domain layer).
type CategoryDetail = appservice.CategoryDetail

// AppDetail is an app with its category hierarchies (aliased from the domain layer).
type AppDetail = appservice.AppDetail

// CategoryListResponse wraps the whole category forest.
type CategoryListResponse struct {
	Categories []category.Category `json:"categories" validate:"required"`
}

// HierarchyResponse is the root-to-node name path of one category.
type HierarchyResponse struct {
	ID        string   `json:"id" example:"align" validate:"required"`
	Hierarchy []string `json:"hierarchy" example:"Public Apps,Sequencing,Alignment" validate:"required"`
}

// AppHierarchiesResponse lists the hierarchy of every category holding an app.
type AppHierarchiesResponse struct {
	ID          string     `json:"id" example:"bwa" validate:"required"`
	Hierarchies [][]string `json:"hierarchies" validate:"required"`
}

// AppListResponse wraps the apps in a category subtree.
type AppListResponse struct {
	Apps  []models.App `json:"apps" validate:"required"`
	Total int          `json:"total" example:"42" validate:"required"`
}

// AddAppRequest files an existing app under a category.
type AddAppRequest struct {
	AppID string `json:"app_id" example:"bwa" validate:"required"`
}

// FavoriteRequest marks or unmarks an app as a favorite.
type FavoriteRequest struct {
	Favorite *bool `json:"favorite" example:"true" validate:"required"`
}

// SearchResponse wraps app search results.
type SearchResponse struct {
	Results []models.AppSearchResult `json:"results" validate:"required"`
}

// ComponentListResponse wraps deployed components.
type ComponentListResponse struct {
	Components []models.DeployedComponent `json:"components" validate:"required"`
}

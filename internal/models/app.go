// Package models defines the domain types for decat.
package models

import "time"

// App is a tool or workflow template users can launch.
type App struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Integrator  string    `json:"integrator,omitempty"`
	IsFavorite  bool      `json:"is_favorite"`
	CategoryIDs []string  `json:"category_ids,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeployedComponent is an installed tool an app runs.
type DeployedComponent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
}

// AppSearchResult is a single app search hit.
type AppSearchResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

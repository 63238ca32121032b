package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iplantc/decat/internal/appservice"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *appservice.Service, authCfg AuthConfig, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authCfg))

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/search", h.FindCategory)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetCategory)
			r.Get("/hierarchy", h.CategoryHierarchy)
			r.Get("/apps", h.ListCategoryApps)
			r.Post("/apps", h.AddAppToCategory)
			r.Delete("/apps/{appID}", h.RemoveAppFromCategory)
		})
	})

	r.Route("/apps", func(r chi.Router) {
		r.Get("/search", h.SearchApps)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetApp)
			r.Get("/hierarchies", h.AppHierarchies)
			r.Put("/favorite", h.SetFavorite)
			r.Post("/copy", h.CopyApp)
			r.Get("/components", h.AppComponents)
		})
	})

	r.Get("/components", h.ListComponents)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

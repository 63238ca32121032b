package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iplantc/decat/internal/appservice"
	"github.com/iplantc/decat/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *appservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *appservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListCategories handles GET /api/categories.
//
//	@Summary		Get the category forest with app counts
//	@Tags			categories
//	@Produce		json
//	@Success		200	{object}	CategoryListResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Categories: cats})
}

// FindCategory handles GET /api/categories/search.
//
//	@Summary		Find the first category with a name, ignoring case
//	@Tags			categories
//	@Produce		json
//	@Param			name	query		string	true	"Category name"
//	@Success		200		{object}	CategoryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/search [get]
func (h *Handler) FindCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'name' is required"))
		return
	}
	d, err := h.svc.FindCategory(r.Context(), name)
	if err != nil {
		writeError(w, "find category", err, slog.String("name", name))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetCategory handles GET /api/categories/{id}.
//
//	@Summary		Get one category subtree
//	@Tags			categories
//	@Produce		json
//	@Param			id	path		string	true	"Category id"
//	@Success		200	{object}	CategoryDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id} [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.svc.Category(r.Context(), id)
	if err != nil {
		writeError(w, "get category", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CategoryHierarchy handles GET /api/categories/{id}/hierarchy.
//
//	@Summary		Get the names from the root down to a category
//	@Tags			categories
//	@Produce		json
//	@Param			id	path		string	true	"Category id"
//	@Success		200	{object}	HierarchyResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id}/hierarchy [get]
func (h *Handler) CategoryHierarchy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := h.svc.Hierarchy(r.Context(), id)
	if err != nil {
		writeError(w, "category hierarchy", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, HierarchyResponse{ID: id, Hierarchy: path})
}

// ListCategoryApps handles GET /api/categories/{id}/apps.
//
//	@Summary		List the apps in a category subtree
//	@Tags			categories
//	@Produce		json
//	@Param			id	path		string	true	"Category id"
//	@Success		200	{object}	AppListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id}/apps [get]
func (h *Handler) ListCategoryApps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	apps, err := h.svc.ListApps(r.Context(), id)
	if err != nil {
		writeError(w, "list category apps", err, slog.String("id", id))
		return
	}
	writeJSON(w, http.StatusOK, AppListResponse{Apps: apps, Total: len(apps)})
}

// AddAppToCategory handles POST /api/categories/{id}/apps.
//
//	@Summary		File an app under a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Category id"
//	@Param			body	body		AddAppRequest	true	"App to add"
//	@Success		200		{object}	CategoryDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id}/apps [post]
func (h *Handler) AddAppToCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req AddAppRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AppID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("app_id is required"))
		return
	}
	d, err := h.svc.AddAppToCategory(r.Context(), req.AppID, id)
	if err != nil {
		writeError(w, "add app to category", err, slog.String("id", id), slog.String("app", req.AppID))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RemoveAppFromCategory handles DELETE /api/categories/{id}/apps/{appID}.
//
//	@Summary		Remove an app from a category
//	@Tags			categories
//	@Produce		json
//	@Param			id		path		string	true	"Category id"
//	@Param			appID	path		string	true	"App id"
//	@Success		200		{object}	CategoryDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{id}/apps/{appID} [delete]
func (h *Handler) RemoveAppFromCategory(w http.ResponseWriter, r *http.Request) {
	id, appID := chi.URLParam(r, "id"), chi.URLParam(r, "appID")
	d, err := h.svc.RemoveAppFromCategory(r.Context(), appID, id)
	if err != nil {
		writeError(w, "remove app from category", err, slog.String("id", id), slog.String("app", appID))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SearchApps handles GET /api/apps/search.
//
//	@Summary		Search apps by name and description
//	@Tags			apps
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/search [get]
func (h *Handler) SearchApps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchApps(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search apps", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetApp handles GET /api/apps/{id}.
//
//	@Summary		Get an app with its category hierarchies
//	@Tags			apps
//	@Produce		json
//	@Param			id	path		string	true	"App id"
//	@Success		200	{object}	AppDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id} [get]
func (h *Handler) GetApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, err := h.svc.GetApp(r.Context(), id)
	if err != nil {
		writeError(w, "get app", err, slog.String("app", id))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// AppHierarchies handles GET /api/apps/{id}/hierarchies.
//
//	@Summary		Get the hierarchy of every category holding an app
//	@Tags			apps
//	@Produce		json
//	@Param			id	path		string	true	"App id"
//	@Success		200	{object}	AppHierarchiesResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id}/hierarchies [get]
func (h *Handler) AppHierarchies(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	paths, err := h.svc.AppHierarchies(r.Context(), id)
	if err != nil {
		writeError(w, "app hierarchies", err, slog.String("app", id))
		return
	}
	writeJSON(w, http.StatusOK, AppHierarchiesResponse{ID: id, Hierarchies: paths})
}

// SetFavorite handles PUT /api/apps/{id}/favorite.
//
//	@Summary		Mark or unmark an app as a favorite
//	@Tags			apps
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"App id"
//	@Param			body	body		FavoriteRequest	true	"Favorite flag"
//	@Success		200		{object}	AppDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id}/favorite [put]
func (h *Handler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req FavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Favorite == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("favorite is required"))
		return
	}
	app, err := h.svc.SetFavorite(r.Context(), id, *req.Favorite)
	if err != nil {
		writeError(w, "set favorite", err, slog.String("app", id))
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// CopyApp handles POST /api/apps/{id}/copy.
//
//	@Summary		Copy an app into the user apps category
//	@Tags			apps
//	@Produce		json
//	@Param			id	path		string	true	"App id"
//	@Success		201	{object}	AppDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id}/copy [post]
func (h *Handler) CopyApp(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	app, err := h.svc.CopyApp(r.Context(), id)
	if err != nil {
		writeError(w, "copy app", err, slog.String("app", id))
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// AppComponents handles GET /api/apps/{id}/components.
//
//	@Summary		List the deployed components an app runs
//	@Tags			apps
//	@Produce		json
//	@Param			id	path		string	true	"App id"
//	@Success		200	{object}	ComponentListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/apps/{id}/components [get]
func (h *Handler) AppComponents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	comps, err := h.svc.AppComponents(r.Context(), id)
	if err != nil {
		writeError(w, "app components", err, slog.String("app", id))
		return
	}
	writeJSON(w, http.StatusOK, ComponentListResponse{Components: comps})
}

// ListComponents handles GET /api/components.
//
//	@Summary		List or search deployed components
//	@Tags			components
//	@Produce		json
//	@Param			search	query		string	false	"Name or description filter"
//	@Success		200		{object}	ComponentListResponse
//	@Security		BearerAuth
//	@Router			/components [get]
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("search"))
	var (
		comps []models.DeployedComponent
		err   error
	)
	if term == "" {
		comps, err = h.svc.Components(r.Context())
	} else {
		comps, err = h.svc.SearchComponents(r.Context(), term)
	}
	if err != nil {
		writeError(w, "list components", err, slog.String("search", term))
		return
	}
	writeJSON(w, http.StatusOK, ComponentListResponse{Components: comps})
}

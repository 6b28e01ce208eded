package http

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/DocsPortal/internal/middleware"
	"github.com/atinyakov/DocsPortal/internal/models"
)

// DocsService defines the content operations required by the handlers.
type DocsService interface {
	// Sidebar returns the category tree for a public scope.
	Sidebar(scope string) []models.Category
	// PlatformSidebar returns the privileged platform category tree.
	PlatformSidebar() []models.Category
	// AdminSidebar returns the privileged admin category tree.
	AdminSidebar() []models.Category
	// Search returns matching articles within a scope.
	Search(query, scope string) []models.SearchResult
	// ArticleBySlug finds one article by slug within a scope.
	ArticleBySlug(slug, scope string) (models.Article, bool)
	// Related returns articles related to the given article.
	Related(articleID string) ([]models.SearchResult, error)
	// TrackView records one view of an article.
	TrackView(articleID string)
	// Create adds a new article.
	Create(a models.Article) (models.Article, error)
	// Patch partially updates an article.
	Patch(articleID string, update models.Article) (models.Article, error)
	// Delete removes an article.
	Delete(articleID string) error
}

// publicScopes are the scopes served without a token.
var publicScopes = []string{"organization", "branch"}

// DocsHandler handles the sidebar and article endpoints.
type DocsHandler struct {
	// DocsService serves the fixture content.
	DocsService DocsService
}

// PublicSidebar handles GET /public/sidebar?scope={scope}.
func (h *DocsHandler) PublicSidebar(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if !slices.Contains(publicScopes, scope) {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "unknown public scope"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: h.DocsService.Sidebar(scope)})
}

// PublicArticles handles GET /public/articles. The query parameters
// select the operation: "search" runs a scoped search, "slug" fetches
// a single article.
func (h *DocsHandler) PublicArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	scope := query.Get("scope")
	if !slices.Contains(publicScopes, scope) {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "unknown public scope"})
		return
	}

	if slug := query.Get("slug"); slug != "" {
		article, ok := h.DocsService.ArticleBySlug(slug, scope)
		if !ok {
			writeJSON(w, http.StatusNotFound, envelope{Message: "article not found"})
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"article": article}})
		return
	}

	results := h.DocsService.Search(query.Get("search"), scope)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"articles": results}})
}

// PlatformSidebar handles GET /sidebar. BearerAuth runs before it;
// view permission is still checked here.
func (h *DocsHandler) PlatformSidebar(w http.ResponseWriter, r *http.Request) {
	if !hasMarker(middleware.GetClaimsFromContext(r.Context()), "R") {
		writeJSON(w, http.StatusForbidden, envelope{Message: "insufficient permissions"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: h.DocsService.PlatformSidebar()})
}

// AdminSidebar handles GET /admin/sidebar. BearerAuth runs before it;
// view permission is still checked here.
func (h *DocsHandler) AdminSidebar(w http.ResponseWriter, r *http.Request) {
	if !hasMarker(middleware.GetClaimsFromContext(r.Context()), "R") {
		writeJSON(w, http.StatusForbidden, envelope{Message: "insufficient permissions"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: h.DocsService.AdminSidebar()})
}

// Articles handles GET /articles for the platform scope: "search" runs
// a search, "slug" fetches a single article.
func (h *DocsHandler) Articles(w http.ResponseWriter, r *http.Request) {
	if !hasMarker(middleware.GetClaimsFromContext(r.Context()), "R") {
		writeJSON(w, http.StatusForbidden, envelope{Message: "insufficient permissions"})
		return
	}

	query := r.URL.Query()
	if slug := query.Get("slug"); slug != "" {
		article, ok := h.DocsService.ArticleBySlug(slug, "platform")
		if !ok {
			writeJSON(w, http.StatusNotFound, envelope{Message: "article not found"})
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"article": article}})
		return
	}

	results := h.DocsService.Search(query.Get("search"), "platform")
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"articles": results}})
}

// Related handles GET /articles/{id}/related.
func (h *DocsHandler) Related(w http.ResponseWriter, r *http.Request) {
	results, err := h.DocsService.Related(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"articles": results}})
}

// TrackView handles POST /articles/{id}/view. The token is optional.
func (h *DocsHandler) TrackView(w http.ResponseWriter, r *http.Request) {
	h.DocsService.TrackView(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// FeedbackRequest represents the JSON payload for article feedback.
type FeedbackRequest struct {
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	UserEmail string `json:"userEmail"`
}

// Feedback handles POST /articles/{id}/feedback. Anonymous callers
// must provide userEmail.
func (h *DocsHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Rating < 1 || req.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "rating must be between 1 and 5"})
		return
	}
	if middleware.GetClaimsFromContext(r.Context()) == nil && req.UserEmail == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "userEmail is required for anonymous feedback"})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// CreateArticle handles POST /articles. Requires the create marker.
func (h *DocsHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	if !hasMarker(middleware.GetClaimsFromContext(r.Context()), "C") {
		writeJSON(w, http.StatusForbidden, envelope{Message: "insufficient permissions"})
		return
	}
	var input models.Article
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid body"})
		return
	}
	article, err := h.DocsService.Create(input)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"article": article}})
}

// PatchArticle handles PATCH /articles/{id}. Requires the update marker.
func (h *DocsHandler) PatchArticle(w http.ResponseWriter, r *http.Request) {
	if !hasMarker(middleware.GetClaimsFromContext(r.Context()), "U") {
		writeJSON(w, http.StatusForbidden, envelope{Message: "insufficient permissions"})
		return
	}
	var input models.Article
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Message: "invalid body"})
		return
	}
	article, err := h.DocsService.Patch(chi.URLParam(r, "id"), input)
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]any{"article": article}})
}

// DeleteArticle handles DELETE /articles/{id}. Requires the delete marker.
func (h *DocsHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	if !hasMarker(middleware.GetClaimsFromContext(r.Context()), "D") {
		writeJSON(w, http.StatusForbidden, envelope{Message: "insufficient permissions"})
		return
	}
	if err := h.DocsService.Delete(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

// hasMarker mirrors the portal's permission policy: a token without an
// MD claim gets read-only access, otherwise the marker must be listed.
func hasMarker(claims *models.Claims, marker string) bool {
	if claims == nil {
		return false
	}
	if claims.MD == nil {
		return marker == "R"
	}
	return slices.Contains(claims.MD, marker)
}

package http

import (
	"net/http"

	"github.com/atinyakov/DocsPortal/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// stub portal API. It applies JSON content-type enforcement and
// request logging globally, and bearer-token authentication on the
// privileged routes.
//
// Routes:
//
//	POST /auth/login               → authHandler.Login
//	POST /auth/logout              → authHandler.Logout
//	GET  /public/sidebar           → docsHandler.PublicSidebar
//	GET  /public/articles          → docsHandler.PublicArticles
//	GET  /articles/{id}/related    → docsHandler.Related
//	POST /articles/{id}/view       → docsHandler.TrackView
//	POST /articles/{id}/feedback   → docsHandler.Feedback
//	GET  /sidebar                  → docsHandler.PlatformSidebar (bearer)
//	GET  /admin/sidebar            → docsHandler.AdminSidebar (bearer)
//	GET  /articles                 → docsHandler.Articles (bearer)
//	POST /articles                 → docsHandler.CreateArticle (bearer)
//	PATCH  /articles/{id}          → docsHandler.PatchArticle (bearer)
//	DELETE /articles/{id}          → docsHandler.DeleteArticle (bearer)
func NewRouter(
	authHandler *AuthHandler,
	docsHandler *DocsHandler,
	validator middleware.TokenValidator,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	// Public endpoints
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)
	r.Get("/public/sidebar", docsHandler.PublicSidebar)
	r.Get("/public/articles", docsHandler.PublicArticles)
	r.Get("/articles/{id}/related", docsHandler.Related)
	r.Post("/articles/{id}/view", docsHandler.TrackView)
	r.Post("/articles/{id}/feedback", docsHandler.Feedback)

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(validator))
		r.Get("/sidebar", docsHandler.PlatformSidebar)
		r.Get("/admin/sidebar", docsHandler.AdminSidebar)
		r.Get("/articles", docsHandler.Articles)
		r.Post("/articles", docsHandler.CreateArticle)
		r.Patch("/articles/{id}", docsHandler.PatchArticle)
		r.Delete("/articles/{id}", docsHandler.DeleteArticle)
	})

	return r
}

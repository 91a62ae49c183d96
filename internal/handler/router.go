// Package handler assembles the process-level HTTP router: middleware,
// health probes, metrics and the mounted JSON API.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joestump/memedex/internal/api"
	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/store"
)

// Deps holds all dependencies required to build the HTTP router.
type Deps struct {
	// SessionManager enables cookie sessions. Nil restricts the API to
	// bearer tokens.
	SessionManager *scs.SessionManager
	AuthMiddleware *auth.Middleware
	Catalog        *catalog.Catalog
	Media          *media.Library
	UserStore      *store.UserStore
	TokenStore     auth.TokenStore
	// Ping reports whether the database is reachable. Nil always passes.
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter assembles the full chi router with all middleware and routes.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(deps.Catalog, deps.Ping)
	r.Get("/health/live", health.Live)
	r.Get("/health/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	apiDeps := api.Deps{
		Catalog:        deps.Catalog,
		Media:          deps.Media,
		AuthMiddleware: deps.AuthMiddleware,
		UserStore:      deps.UserStore,
		TokenStore:     deps.TokenStore,
		Logger:         deps.Logger,
	}
	if deps.SessionManager != nil {
		apiDeps.AuthHandlers = auth.NewHandlers(deps.SessionManager)
	}
	var apiRouter http.Handler = api.NewAPIRouter(apiDeps)
	if deps.SessionManager != nil {
		apiRouter = deps.SessionManager.LoadAndSave(apiRouter)
	}
	r.Mount("/api", apiRouter)

	return r
}

package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/store"
)

// Deps holds all dependencies required to build the API router.
type Deps struct {
	Catalog        *catalog.Catalog
	Media          *media.Library
	AuthMiddleware *auth.Middleware
	// AuthHandlers serves login and logout. Nil disables cookie sessions.
	AuthHandlers *auth.Handlers
	UserStore    *store.UserStore
	TokenStore   auth.TokenStore
	Logger       *slog.Logger
}

// NewAPIRouter creates a chi sub-router for /api. Reads are public;
// mutations require a bearer token or a login session.
func NewAPIRouter(deps Deps) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(deps.AuthMiddleware.Identify)

	r.Get("/help", Help)
	registerSearchRoutes(r, deps.Catalog, deps.Media, logger)
	registerFileRoutes(r, deps.Media, logger)

	tags := newTagsAPIHandler(deps.Catalog, logger)
	r.Get("/tag", tags.List)

	if deps.AuthHandlers != nil {
		r.Post("/user/logout", deps.AuthHandlers.Logout)
	}

	r.Group(func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireUser)

		registerMemeRoutes(r, deps.Catalog, deps.Media, logger)
		registerTokenRoutes(r, deps.TokenStore)
		r.Get("/user/me", Me)
		if deps.AuthHandlers != nil {
			r.Post("/user/login", deps.AuthHandlers.Login)
		}

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireRole(store.RoleAdmin))
			r.Delete("/tag/{title}", tags.Delete)
			registerAdminRoutes(r, deps.UserStore)
		})
	})

	return r
}

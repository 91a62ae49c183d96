package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// Middleware authenticates requests by bearer token or login session.
type Middleware struct {
	sessions *scs.SessionManager
	tokens   TokenStore
	users    *store.UserStore
	logger   *slog.Logger
}

// NewMiddleware creates a new auth Middleware. sm may be nil, in which case
// only bearer tokens are accepted.
func NewMiddleware(sm *scs.SessionManager, ts TokenStore, us *store.UserStore, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{sessions: sm, tokens: ts, users: us, logger: logger}
}

// Identify attaches the requesting user to the context when the request
// carries a bearer token or a login session. Anonymous requests pass through
// untouched. A bearer token that fails validation is rejected with 401.
func (m *Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var user *store.User
		if header := r.Header.Get("Authorization"); header != "" {
			u, ok := m.fromBearer(r.Context(), header)
			if !ok {
				writeUnauthorized(w)
				return
			}
			user = u
		} else if m.sessions != nil {
			user = m.fromSession(r.Context())
		}
		if user != nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) fromBearer(ctx context.Context, header string) (*store.User, bool) {
	plaintext, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || plaintext == "" {
		return nil, false
	}

	rec, err := m.tokens.GetByHash(ctx, HashToken(plaintext))
	if err != nil {
		return nil, false
	}
	now := time.Now()
	if !rec.Active(now) {
		return nil, false
	}

	user, err := m.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, false
	}

	if err := m.tokens.Touch(ctx, rec.ID, now); err != nil {
		m.logger.Warn("update token last_used_at", "token_id", rec.ID, "error", err)
	}
	return user, true
}

func (m *Middleware) fromSession(ctx context.Context) *store.User {
	userID := m.sessions.GetString(ctx, SessionUserIDKey)
	if userID == "" {
		return nil
	}
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		// Session references a deleted user.
		_ = m.sessions.Destroy(ctx)
		return nil
	}
	return user
}

// RequireUser rejects requests that Identify did not authenticate.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			writeUnauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns a middleware that requires the user to have the given role.
// Must be used after RequireUser.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil || user.Role != role {
				writeJSONError(w, http.StatusForbidden, "forbidden", "FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser stores user in ctx and records its username as the catalog
// identity.
func WithUser(ctx context.Context, user *store.User) context.Context {
	ctx = context.WithValue(ctx, UserContextKey, user)
	return catalog.WithIdentity(ctx, user.Username)
}

// UserFromContext retrieves the authenticated user from the context.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(UserContextKey).(*store.User)
	return u
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
}

func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}

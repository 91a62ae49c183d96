package auth

import (
	"encoding/json"
	"net/http"

	"github.com/alexedwards/scs/v2"
)

// Handlers serves the login and logout endpoints.
type Handlers struct {
	sessions *scs.SessionManager
}

// NewHandlers creates a new Handlers with the given session manager.
func NewHandlers(sm *scs.SessionManager) *Handlers {
	return &Handlers{sessions: sm}
}

// Login promotes the authenticated caller into a cookie session. It must be
// mounted behind Middleware.RequireUser.
//
// @Summary      Start a session
// @Description  Exchanges a valid bearer token for a session cookie.
// @Tags         users
// @Produce      json
// @Success      200  {object}  store.User
// @Failure      401  {object}  map[string]string
// @Security     BearerAuth
// @Router       /user/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w)
		return
	}
	if err := h.sessions.RenewToken(r.Context()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not start session", "INTERNAL_ERROR")
		return
	}
	h.sessions.Put(r.Context(), SessionUserIDKey, user.ID)
	h.sessions.Put(r.Context(), SessionRoleKey, user.Role)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(user)
}

// Logout destroys the caller's session.
//
// @Summary      End a session
// @Tags         users
// @Success      204
// @Router       /user/logout [post]
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context()); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not end session", "INTERNAL_ERROR")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

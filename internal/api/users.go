package api

import (
	"net/http"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/store"
)

func toUserResponse(u *store.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Me returns the authenticated user.
// GET /api/user/me
//
// @Summary      Current user
// @Tags         Users
// @Produce      json
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  ErrorResponse
// @Security     BearerToken
// @Router       /user/me [get]
func Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

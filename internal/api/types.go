package api

import (
	"time"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/media"
)

// --- Meme types ---

// CreateMemeRequest is the request body for POST /api/meme. In a multipart
// upload it is the value of the "meme" form field.
type CreateMemeRequest struct {
	Title string   `json:"title" validate:"required,max=50"`
	Likes int      `json:"likes" validate:"gte=0"`
	Tags  []string `json:"tags" validate:"required,min=1,dive,required,max=20"`
}

// UpdateMemeRequest is the request body for PUT /api/meme. Omitted fields
// keep their current value.
type UpdateMemeRequest struct {
	Title    string   `json:"title" validate:"required"`
	NewTitle string   `json:"newTitle" validate:"omitempty,max=50"`
	Tags     []string `json:"tags" validate:"omitempty,dive,required,max=20"`
	Likes    *int     `json:"likes" validate:"omitempty,gte=0"`
}

// MemeResponse is a catalog item plus its stored image, when it has one.
type MemeResponse struct {
	catalog.Item
	Path   string `json:"path,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func newMemeResponse(it catalog.Item, att *media.Attachment) MemeResponse {
	resp := MemeResponse{Item: it}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if att != nil {
		resp.Path = att.Path
		resp.Width = att.Width
		resp.Height = att.Height
	}
	return resp
}

// SearchResponse is the response of GET /api/meme/search.
type SearchResponse struct {
	Memes []MemeResponse `json:"memes"`
	Count int            `json:"count"`
	Sort  string         `json:"sorting_type"`
}

// --- Tag types ---

// TagListResponse is the response of GET /api/tag.
type TagListResponse struct {
	Tags []catalog.Tag `json:"tags"`
}

// --- Token types ---

// CreateTokenRequest is the request body for POST /api/tokens.
type CreateTokenRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// TokenResponse is the JSON representation of an API token.
type TokenResponse struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	LastUsedAt *time.Time `json:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at"`
}

// TokenCreatedResponse carries the plaintext token. It is returned once.
type TokenCreatedResponse struct {
	TokenResponse
	Token string `json:"token"`
}

// TokenListResponse is the response for token list endpoints.
type TokenListResponse struct {
	Tokens []*TokenResponse `json:"tokens"`
}

// --- User types ---

// UserResponse is the JSON representation of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserListResponse is the response for user list endpoints.
type UserListResponse struct {
	Users []*UserResponse `json:"users"`
}

// UpdateRoleRequest is the request body for PUT /api/admin/users/{id}/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// --- Help types ---

// Endpoint documents one route in the help listing.
type Endpoint struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
	Auth        string   `json:"auth,omitempty"`
}

// HelpResponse is the response of GET /api/help.
type HelpResponse struct {
	Endpoints []Endpoint `json:"endpoints"`
}

package api

import "net/http"

var endpoints = []Endpoint{
	{Method: "GET", Path: "/api/meme/search", Description: "Search memes. Filters apply in the order title, id, tags.",
		Params: []string{"title", "title_match=exact|contains", "id", "tags (repeat or comma separate)", "sorting_type=id|title|likes|reverse_id|reverse_title|reverse_likes"}},
	{Method: "GET", Path: "/api/meme/dir/{file}", Description: "Download a stored meme image."},
	{Method: "POST", Path: "/api/meme", Description: "Add a meme. JSON body, or multipart with a meme JSON field and an image file.",
		Params: []string{"title", "likes", "tags"}, Auth: "user"},
	{Method: "PUT", Path: "/api/meme", Description: "Edit a meme. Omitted fields are kept.",
		Params: []string{"title", "newTitle", "tags", "likes"}, Auth: "user"},
	{Method: "DELETE", Path: "/api/meme/{title}", Description: "Delete a meme and its image.", Auth: "user"},
	{Method: "POST", Path: "/api/meme/{title}/like", Description: "Add one like to a meme.", Auth: "user"},
	{Method: "GET", Path: "/api/tag", Description: "List tags with usage counts.",
		Params: []string{"sorting_type=title|count|reverse_title|reverse_count"}},
	{Method: "DELETE", Path: "/api/tag/{title}", Description: "Delete a tag no meme carries.", Auth: "admin"},
	{Method: "POST", Path: "/api/user/login", Description: "Exchange a bearer token for a session cookie.", Auth: "user"},
	{Method: "POST", Path: "/api/user/logout", Description: "End the session."},
	{Method: "GET", Path: "/api/user/me", Description: "Show the authenticated user.", Auth: "user"},
	{Method: "GET", Path: "/api/tokens", Description: "List your API tokens.", Auth: "user"},
	{Method: "POST", Path: "/api/tokens", Description: "Create an API token.", Params: []string{"name", "expires_at"}, Auth: "user"},
	{Method: "DELETE", Path: "/api/tokens/{id}", Description: "Revoke an API token.", Auth: "user"},
	{Method: "GET", Path: "/api/admin/users", Description: "List users.", Auth: "admin"},
	{Method: "PUT", Path: "/api/admin/users/{id}/role", Description: "Change a user's role.", Params: []string{"role=user|admin"}, Auth: "admin"},
	{Method: "GET", Path: "/api/help", Description: "This listing."},
}

// Help lists the API endpoints and their parameters.
// GET /api/help
//
// @Summary      List endpoints
// @Tags         Help
// @Produce      json
// @Success      200  {object}  HelpResponse
// @Router       /help [get]
func Help(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HelpResponse{Endpoints: endpoints})
}

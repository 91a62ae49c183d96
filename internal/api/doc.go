// @title           memedex API
// @version         1.0
// @description     Meme catalog with tag search. Mutations require a Personal Access Token or a login session.
// @BasePath        /api
// @securityDefinitions.apikey BearerToken
// @in              header
// @name            Authorization
// @description     Type "Bearer" followed by a space and your API token. Example: "Bearer md_xxx"

// Package api implements the JSON HTTP surface of the meme catalog.
package api

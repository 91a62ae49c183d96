package api

import (
	"log/slog"
	"net/http"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/metrics"
)

// tagsAPIHandler provides REST handlers for tags.
type tagsAPIHandler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func newTagsAPIHandler(cat *catalog.Catalog, logger *slog.Logger) *tagsAPIHandler {
	return &tagsAPIHandler{catalog: cat, logger: logger}
}

// List returns every tag with its usage count.
// GET /api/tag
//
// @Summary      List tags
// @Tags         Tags
// @Produce      json
// @Param        sorting_type  query     string  false  "title (default), count, reverse_title, reverse_count"
// @Success      200           {object}  TagListResponse
// @Router       /tag [get]
func (h *tagsAPIHandler) List(w http.ResponseWriter, r *http.Request) {
	order, _ := catalog.ParseTagOrder(r.URL.Query().Get("sorting_type"))
	tags := h.catalog.Tags(order)
	if tags == nil {
		tags = []catalog.Tag{}
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Delete removes a tag that no meme carries any more.
// DELETE /api/tag/{title}
//
// @Summary      Delete an unused tag (admin)
// @Tags         Tags
// @Produce      json
// @Param        title  path  string  true  "Tag title"
// @Success      204
// @Failure      401    {object}  ErrorResponse
// @Failure      403    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Failure      409    {object}  ErrorResponse
// @Failure      503    {object}  ErrorResponse
// @Security     BearerToken
// @Router       /tag/{title} [delete]
func (h *tagsAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.catalog.DeleteTag(r.Context(), titleParam(r))
	metrics.ObserveMutation("delete_tag", resultLabel(err))
	if err != nil {
		writeCatalogError(w, r, h.logger, err)
		return
	}
	s := h.catalog.Stats()
	metrics.SetSize(s.Items, s.Tags)
	w.WriteHeader(http.StatusNoContent)
}

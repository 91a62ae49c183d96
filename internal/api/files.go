package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/memedex/internal/media"
)

// filesAPIHandler streams stored meme images.
type filesAPIHandler struct {
	media  *media.Library
	logger *slog.Logger
}

func registerFileRoutes(r chi.Router, lib *media.Library, logger *slog.Logger) {
	h := &filesAPIHandler{media: lib, logger: logger}
	r.Get("/meme/dir/{file}", h.Get)
}

// Get streams a stored image by file name.
// GET /api/meme/dir/{file}
//
// @Summary      Download a meme image
// @Tags         Memes
// @Produce      png,gif,jpeg
// @Param        file  path  string  true  "File name, title plus extension"
// @Success      200
// @Failure      404   {object}  ErrorResponse
// @Router       /meme/dir/{file} [get]
func (h *filesAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := fileParam(r)
	rc, err := h.media.Open(r.Context(), name)
	if errors.Is(err, media.ErrNotFound) {
		writeError(w, http.StatusNotFound, "file not found", "NOT_FOUND")
		return
	}
	if err != nil {
		h.logger.Warn("open meme image", "file", name, "error", err)
		writeError(w, http.StatusNotFound, "file not found", "NOT_FOUND")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", media.ContentType(name))
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Debug("stream meme image", "file", name, "error", err)
	}
}

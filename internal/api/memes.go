package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/metrics"
)

// maxUploadBytes bounds multipart meme uploads.
const maxUploadBytes = 10 << 20

// memesAPIHandler provides the meme mutation endpoints.
type memesAPIHandler struct {
	catalog *catalog.Catalog
	media   *media.Library
	logger  *slog.Logger
}

// registerMemeRoutes registers meme mutation routes on r. r must only admit
// authenticated requests.
func registerMemeRoutes(r chi.Router, cat *catalog.Catalog, lib *media.Library, logger *slog.Logger) {
	h := &memesAPIHandler{catalog: cat, media: lib, logger: logger}
	r.Post("/meme", h.Create)
	r.Put("/meme", h.Update)
	r.Delete("/meme/{title}", h.Delete)
	r.Post("/meme/{title}/like", h.Like)
}

// Create adds a meme, optionally with its image.
// POST /api/meme
//
// @Summary      Add a meme
// @Description  Accepts a JSON body, or multipart/form-data with a "meme" JSON field and an "image" file.
// @Tags         Memes
// @Accept       json,mpfd
// @Produce      json
// @Param        body  body      CreateMemeRequest  true  "Meme"
// @Success      201   {object}  MemeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /meme [post]
func (h *memesAPIHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, image, err := h.readCreate(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID")
		return
	}
	if image != nil {
		if _, err := media.Detect(image); err != nil {
			writeError(w, http.StatusBadRequest, "image must be PNG, GIF or JPEG", "INVALID")
			return
		}
	}

	ctx := r.Context()
	item, err := h.catalog.Add(ctx, catalog.NewItem{Title: req.Title, Likes: req.Likes, Tags: req.Tags})
	h.observe("add", err)
	if err != nil {
		writeCatalogError(w, r, h.logger, err)
		return
	}

	var att *media.Attachment
	if image != nil {
		if _, err := h.media.Save(ctx, item.Title, image); err != nil {
			metrics.MediaErrorsTotal.WithLabelValues("save").Inc()
			h.logger.Error("save meme image", "title", item.Title, "error", err)
			// The item must not outlive a failed upload.
			_ = h.media.Remove(ctx, item.Title)
			_, derr := h.catalog.Delete(ctx, item.Title)
			h.observe("delete", derr)
			if derr != nil {
				h.logger.Error("compensate failed upload", "title", item.Title, "error", derr)
			}
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "media store unavailable, retry the request", "MEDIA_UNAVAILABLE")
			return
		}
		att = h.describe(r, item.Title)
	}

	writeJSON(w, http.StatusCreated, newMemeResponse(item, att))
}

// readCreate decodes a JSON or multipart create request.
func (h *memesAPIHandler) readCreate(w http.ResponseWriter, r *http.Request) (*CreateMemeRequest, []byte, error) {
	var req CreateMemeRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := decodeJSON(r.Body, &req); err != nil {
			return nil, nil, err
		}
		return &req, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, errors.New("invalid multipart body")
	}
	if err := decodeJSON(strings.NewReader(r.FormValue("meme")), &req); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return &req, nil, nil
	}
	if err != nil {
		return nil, nil, errors.New("invalid image part")
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, errors.New("invalid image part")
	}
	return &req, image, nil
}

// Update edits a meme. A new title moves its image along.
// PUT /api/meme
//
// @Summary      Edit a meme
// @Description  Replaces the title, tags and/or likes of the meme named by "title".
// @Tags         Memes
// @Accept       json
// @Produce      json
// @Param        body  body      UpdateMemeRequest  true  "Changes"
// @Success      200   {object}  MemeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      503   {object}  ErrorResponse
// @Security     BearerToken
// @Router       /meme [put]
func (h *memesAPIHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemeRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID")
		return
	}

	ctx := r.Context()
	item, err := h.catalog.Edit(ctx, catalog.Edit{
		Title:    req.Title,
		NewTitle: req.NewTitle,
		Tags:     req.Tags,
		Likes:    req.Likes,
	})
	h.observe("edit", err)
	if err != nil {
		writeCatalogError(w, r, h.logger, err)
		return
	}

	if old := catalog.NormalizeTitle(req.Title); old != item.Title {
		if err := h.media.Rename(ctx, old, item.Title); err != nil {
			metrics.MediaErrorsTotal.WithLabelValues("rename").Inc()
			h.logger.Error("move meme image", "from", old, "to", item.Title, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, newMemeResponse(item, h.describe(r, item.Title)))
}

// Delete removes a meme and its image.
// DELETE /api/meme/{title}
//
// @Summary      Delete a meme
// @Tags         Memes
// @Produce      json
// @Param        title  path      string  true  "Meme title"
// @Success      200    {object}  MemeResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Failure      503    {object}  ErrorResponse
// @Security     BearerToken
// @Router       /meme/{title} [delete]
func (h *memesAPIHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := h.catalog.Delete(ctx, titleParam(r))
	h.observe("delete", err)
	if err != nil {
		writeCatalogError(w, r, h.logger, err)
		return
	}
	if err := h.media.Remove(ctx, item.Title); err != nil {
		metrics.MediaErrorsTotal.WithLabelValues("remove").Inc()
		h.logger.Error("remove meme image", "title", item.Title, "error", err)
	}
	writeJSON(w, http.StatusOK, newMemeResponse(item, nil))
}

// Like adds one like to a meme.
// POST /api/meme/{title}/like
//
// @Summary      Like a meme
// @Tags         Memes
// @Produce      json
// @Param        title  path      string  true  "Meme title"
// @Success      200    {object}  MemeResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      404    {object}  ErrorResponse
// @Failure      503    {object}  ErrorResponse
// @Security     BearerToken
// @Router       /meme/{title}/like [post]
func (h *memesAPIHandler) Like(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Like(r.Context(), titleParam(r))
	h.observe("like", err)
	if err != nil {
		writeCatalogError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemeResponse(item, h.describe(r, item.Title)))
}

// describe returns the attachment of title, or nil when it has none or the
// media store cannot be read.
func (h *memesAPIHandler) describe(r *http.Request, title string) *media.Attachment {
	return describe(r, h.media, h.logger, title)
}

func (h *memesAPIHandler) observe(op string, err error) {
	metrics.ObserveMutation(op, resultLabel(err))
	if err == nil {
		s := h.catalog.Stats()
		metrics.SetSize(s.Items, s.Tags)
	}
}

func describe(r *http.Request, lib *media.Library, logger *slog.Logger, title string) *media.Attachment {
	att, err := lib.Describe(r.Context(), title)
	if err == nil {
		return att
	}
	if !errors.Is(err, media.ErrNotFound) {
		metrics.MediaErrorsTotal.WithLabelValues("describe").Inc()
		logger.Warn("describe meme image", "title", title, "error", err)
	}
	return nil
}

// titleParam returns the {title} path segment, unescaped.
func titleParam(r *http.Request) string { return pathParam(r, "title") }

// fileParam returns the {file} path segment, unescaped.
func fileParam(r *http.Request) string { return pathParam(r, "file") }

func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if s, err := url.PathUnescape(raw); err == nil {
		return s
	}
	return raw
}

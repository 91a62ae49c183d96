package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/metrics"
)

// describeConcurrency bounds parallel attachment lookups per search.
const describeConcurrency = 8

// searchAPIHandler serves catalog searches.
type searchAPIHandler struct {
	catalog *catalog.Catalog
	media   *media.Library
	logger  *slog.Logger
}

func registerSearchRoutes(r chi.Router, cat *catalog.Catalog, lib *media.Library, logger *slog.Logger) {
	h := &searchAPIHandler{catalog: cat, media: lib, logger: logger}
	r.Get("/meme/search", h.Search)
}

// Search filters memes by title, id and tags and sorts the result.
// GET /api/meme/search
//
// @Summary      Search memes
// @Description  Filters are applied in the order title, id, tags. Tags may repeat or be comma separated.
// @Tags         Memes
// @Produce      json
// @Param        title         query     string  false  "Meme title"
// @Param        title_match   query     string  false  "exact (default) or contains"
// @Param        id            query     int     false  "Meme id"
// @Param        tags          query     string  false  "Tag titles, all required"
// @Param        sorting_type  query     string  false  "id, title, likes, reverse_id, reverse_title, reverse_likes"
// @Success      200           {object}  SearchResponse
// @Failure      400           {object}  ErrorResponse
// @Router       /meme/search [get]
func (h *searchAPIHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID")
		return
	}

	start := time.Now()
	items := h.catalog.Search(q)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchesTotal.Inc()
	metrics.SearchResults.Observe(float64(len(items)))

	memes := make([]MemeResponse, len(items))
	g, _ := errgroup.WithContext(r.Context())
	g.SetLimit(describeConcurrency)
	for i, it := range items {
		g.Go(func() error {
			memes[i] = newMemeResponse(it, describe(r, h.media, h.logger, it.Title))
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, SearchResponse{Memes: memes, Count: len(memes), Sort: q.Sort.String()})
}

// parseQuery builds a catalog query from the request's query string. An
// unknown sorting_type falls back to ascending id.
func parseQuery(r *http.Request) (catalog.Query, error) {
	v := r.URL.Query()
	q := catalog.Query{Title: v.Get("title")}

	switch v.Get("title_match") {
	case "", "exact":
		q.TitleMatch = catalog.MatchExact
	case "contains":
		q.TitleMatch = catalog.MatchContains
	default:
		return q, errors.New("title_match must be exact or contains")
	}

	if raw := v.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return q, errors.New("id must be a non-negative integer")
		}
		q.ID = &id
	}

	for _, raw := range v["tags"] {
		for t := range strings.SplitSeq(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Tags = append(q.Tags, t)
			}
		}
	}

	q.Sort, _ = catalog.ParseSortOrder(v.Get("sorting_type"))
	return q, nil
}

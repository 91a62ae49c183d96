package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/joestump/memedex/internal/catalog"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	catalog *catalog.Catalog
	ping    func(ctx context.Context) error
}

func NewHealthHandler(cat *catalog.Catalog, ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{catalog: cat, ping: ping}
}

type healthBody struct {
	Status string `json:"status"`
	Items  int    `json:"items,omitempty"`
	Tags   int    `json:"tags,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Live reports that the process is serving.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, healthBody{Status: "ok"})
}

// Ready reports whether the index is loaded and the database answers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeHealth(w, http.StatusServiceUnavailable, healthBody{Status: "loading"})
		return
	}
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			writeHealth(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	s := h.catalog.Stats()
	writeHealth(w, http.StatusOK, healthBody{Status: "ok", Items: s.Items, Tags: s.Tags})
}

func writeHealth(w http.ResponseWriter, status int, body healthBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joestump/memedex/internal/catalog"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeCatalogError maps a catalog error onto the response envelope.
// Store failures are retryable and answered with 503.
func writeCatalogError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch catalog.Kind(err) {
	case catalog.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID")
	case catalog.KindNoIdentity:
		writeError(w, http.StatusUnauthorized, "unauthorized", "UNAUTHORIZED")
	case catalog.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case catalog.KindDuplicate:
		writeError(w, http.StatusConflict, err.Error(), "DUPLICATE_TITLE")
	case catalog.KindTagInUse:
		writeError(w, http.StatusConflict, err.Error(), "TAG_IN_USE")
	case catalog.KindStore:
		logger.Error("store failure", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "store unavailable, retry the request", "STORE_UNAVAILABLE")
	default:
		logger.Error("internal error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}

// resultLabel is the metrics label for the outcome of a mutation.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return catalog.Kind(err).String()
}

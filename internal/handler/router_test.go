package handler_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/handler"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/store"
	"github.com/joestump/memedex/internal/testutil"
)

func newRouter(t *testing.T, ping func(context.Context) error) http.Handler {
	t.Helper()
	db := testutil.NewTestDB(t)
	logger := slog.New(slog.DiscardHandler)

	cat, err := catalog.Open(context.Background(), store.NewCatalogStore(db))
	require.NoError(t, err)
	files, err := media.NewFS(t.TempDir())
	require.NoError(t, err)

	sm := scs.New()
	sm.Store = memstore.New()
	us := store.NewUserStore(db)
	ts := auth.NewSQLTokenStore(db)

	return handler.NewRouter(handler.Deps{
		SessionManager: sm,
		AuthMiddleware: auth.NewMiddleware(sm, ts, us, logger),
		Catalog:        cat,
		Media:          media.NewLibrary(files, "/api/meme/dir/"),
		UserStore:      us,
		TokenStore:     ts,
		Ping:           ping,
		Logger:         logger,
	})
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	r := newRouter(t, nil)

	rec := get(r, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealth_ReadyFailsWithoutDatabase(t *testing.T) {
	r := newRouter(t, func(context.Context) error { return errors.New("connection refused") })

	rec := get(r, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestMetricsExposed(t *testing.T) {
	r := newRouter(t, nil)

	// Drive one search so the search collectors have samples.
	rec := get(r, "/api/meme/search?tags=dog")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "memedex_searches_total"), "missing search counter")
	assert.True(t, strings.Contains(body, "memedex_search_duration_seconds"), "missing search histogram")
}

func TestAPIMounted(t *testing.T) {
	r := newRouter(t, nil)

	rec := get(r, "/api/help")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(r, "/api/user/me")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/joestump/memedex/internal/api"
	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/media"
	"github.com/joestump/memedex/internal/store"
	"github.com/joestump/memedex/internal/testutil"
)

// testEnv holds all stores and helpers needed for API integration tests.
type testEnv struct {
	Router     http.Handler
	Catalog    *catalog.Catalog
	Media      *media.Library
	UserStore  *store.UserStore
	TokenStore *auth.SQLTokenStore
}

// newTestEnv creates an in-memory SQLite test database, runs migrations,
// and wires up the full API router with real stores and a filesystem media
// store in a temp dir.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	cat, err := catalog.Open(ctx, store.NewCatalogStore(db), catalog.WithLogger(logger))
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	files, err := media.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("media fs: %v", err)
	}
	lib := media.NewLibrary(files, "/api/meme/dir/")

	us := store.NewUserStore(db)
	ts := auth.NewSQLTokenStore(db)
	sm := scs.New()
	sm.Store = memstore.New()

	router := api.NewAPIRouter(api.Deps{
		Catalog:        cat,
		Media:          lib,
		AuthMiddleware: auth.NewMiddleware(sm, ts, us, logger),
		AuthHandlers:   auth.NewHandlers(sm),
		UserStore:      us,
		TokenStore:     ts,
		Logger:         logger,
	})
	return &testEnv{
		Router:     sm.LoadAndSave(router),
		Catalog:    cat,
		Media:      lib,
		UserStore:  us,
		TokenStore: ts,
	}
}

// seedUser creates a user and returns the user record.
func seedUser(t *testing.T, env *testEnv, username, role string) *store.User {
	t.Helper()
	u, err := env.UserStore.Create(context.Background(), username, role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedToken creates a real API token for a user and returns the plaintext Bearer value.
func seedToken(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	plaintext, _, err := auth.Issue(context.Background(), env.TokenStore, auth.NewToken{UserID: userID, Name: "test-token"})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return plaintext
}

// seedMeme adds a meme directly through the catalog.
func seedMeme(t *testing.T, env *testEnv, title string, likes int, tags ...string) catalog.Item {
	t.Helper()
	ctx := catalog.WithIdentity(context.Background(), "seed")
	it, err := env.Catalog.Add(ctx, catalog.NewItem{Title: title, Likes: likes, Tags: tags})
	if err != nil {
		t.Fatalf("seed meme %q: %v", title, err)
	}
	return it
}

// authRequest adds a Bearer token to the request.
func authRequest(r *http.Request, token string) *http.Request {
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

// do serves a request and returns the recorder.
func do(env *testEnv, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		authRequest(req, token)
	}
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v; body: %s", err, rec.Body.String())
	}
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// pngBytes encodes a blank w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e api.ErrorResponse
	decode(t, rec, &e)
	return e.Code
}

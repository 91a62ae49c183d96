package auth_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/catalog"
	"github.com/joestump/memedex/internal/store"
	"github.com/joestump/memedex/internal/testutil"
)

// mockTokenStore is a test double implementing auth.TokenStore.
type mockTokenStore struct {
	getByHash func(ctx context.Context, hash string) (*auth.TokenRecord, error)
	touch     func(ctx context.Context, id string, at time.Time) error
}

func (m *mockTokenStore) Create(ctx context.Context, t auth.NewToken) (*auth.TokenRecord, error) {
	return nil, nil
}

func (m *mockTokenStore) GetByHash(ctx context.Context, hash string) (*auth.TokenRecord, error) {
	return m.getByHash(ctx, hash)
}

func (m *mockTokenStore) ListByUser(ctx context.Context, userID string) ([]*auth.TokenRecord, error) {
	return nil, nil
}

func (m *mockTokenStore) Revoke(ctx context.Context, id, userID string) error {
	return nil
}

func (m *mockTokenStore) Touch(ctx context.Context, id string, at time.Time) error {
	if m.touch != nil {
		return m.touch(ctx, id, at)
	}
	return nil
}

// identityHandler echoes the catalog identity attached to the request.
func identityHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(catalog.IdentityFromContext(r.Context())))
	})
}

func notFoundTokens() *mockTokenStore {
	return &mockTokenStore{
		getByHash: func(ctx context.Context, h string) (*auth.TokenRecord, error) {
			return nil, store.ErrNotFound
		},
	}
}

func seedUser(t *testing.T, username string) (*store.UserStore, *store.User) {
	t.Helper()
	us := store.NewUserStore(testutil.NewTestDB(t))
	u, err := us.Create(context.Background(), username, "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return us, u
}

func serve(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/meme", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdentify_ValidToken(t *testing.T) {
	plaintext, hash := auth.GenerateToken()
	us, user := seedUser(t, "alice")

	var touched string
	ts := &mockTokenStore{
		getByHash: func(ctx context.Context, h string) (*auth.TokenRecord, error) {
			if h == hash {
				return &auth.TokenRecord{ID: "token-1", UserID: user.ID, TokenHash: hash}, nil
			}
			return nil, store.ErrNotFound
		},
		touch: func(ctx context.Context, id string, at time.Time) error {
			touched = id
			return nil
		},
	}

	mw := auth.NewMiddleware(nil, ts, us, nil)
	rec := serve(mw.Identify(mw.RequireUser(identityHandler())), "Bearer "+plaintext)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Body.String(); got != "alice" {
		t.Errorf("identity = %q, want %q", got, "alice")
	}
	if touched != "token-1" {
		t.Errorf("touched id = %q, want %q", touched, "token-1")
	}
}

func TestIdentify_AnonymousPassesThrough(t *testing.T) {
	mw := auth.NewMiddleware(nil, notFoundTokens(), store.NewUserStore(nil), nil)

	rec := serve(mw.Identify(identityHandler()), "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "" {
		t.Errorf("identity = %q, want empty", rec.Body.String())
	}

	rec = serve(mw.Identify(mw.RequireUser(identityHandler())), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("RequireUser status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestIdentify_RejectsBadTokens(t *testing.T) {
	plaintext, hash := auth.GenerateToken()
	now := time.Now()

	cases := []struct {
		name   string
		header string
		rec    *auth.TokenRecord
	}{
		{"unknown token", "Bearer invalid-token-value", nil},
		{"empty bearer value", "Bearer ", nil},
		{"wrong scheme", "Basic " + plaintext, nil},
		{"revoked", "Bearer " + plaintext, &auth.TokenRecord{
			ID: "token-1", UserID: "user-1", TokenHash: hash,
			RevokedAt: sql.NullTime{Time: now, Valid: true},
		}},
		{"expired", "Bearer " + plaintext, &auth.TokenRecord{
			ID: "token-1", UserID: "user-1", TokenHash: hash,
			ExpiresAt: sql.NullTime{Time: now.Add(-time.Hour), Valid: true},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := &mockTokenStore{
				getByHash: func(ctx context.Context, h string) (*auth.TokenRecord, error) {
					if tc.rec != nil && h == hash {
						return tc.rec, nil
					}
					return nil, store.ErrNotFound
				},
			}
			mw := auth.NewMiddleware(nil, ts, store.NewUserStore(nil), nil)
			rec := serve(mw.Identify(identityHandler()), tc.header)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	us, user := seedUser(t, "bob")
	plaintext, hash := auth.GenerateToken()
	ts := &mockTokenStore{
		getByHash: func(ctx context.Context, h string) (*auth.TokenRecord, error) {
			return &auth.TokenRecord{ID: "t", UserID: user.ID, TokenHash: hash}, nil
		},
	}
	mw := auth.NewMiddleware(nil, ts, us, nil)
	h := mw.Identify(mw.RequireUser(mw.RequireRole(store.RoleAdmin)(identityHandler())))

	if rec := serve(h, "Bearer "+plaintext); rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	if _, err := us.UpdateRole(context.Background(), user.ID, store.RoleAdmin); err != nil {
		t.Fatalf("UpdateRole: %v", err)
	}
	if rec := serve(h, "Bearer "+plaintext); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLoginSession(t *testing.T) {
	us, user := seedUser(t, "carol")
	plaintext, hash := auth.GenerateToken()
	ts := &mockTokenStore{
		getByHash: func(ctx context.Context, h string) (*auth.TokenRecord, error) {
			if h == hash {
				return &auth.TokenRecord{ID: "t", UserID: user.ID, TokenHash: hash}, nil
			}
			return nil, store.ErrNotFound
		},
	}
	sm := scs.New()
	sm.Store = memstore.New()
	mw := auth.NewMiddleware(sm, ts, us, nil)
	handlers := auth.NewHandlers(sm)

	login := sm.LoadAndSave(mw.Identify(mw.RequireUser(http.HandlerFunc(handlers.Login))))
	rec := serve(login, "Bearer "+plaintext)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusOK)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	protected := sm.LoadAndSave(mw.Identify(mw.RequireUser(identityHandler())))
	req := httptest.NewRequest("POST", "/api/meme", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "carol" {
		t.Errorf("identity = %q, want %q", rec.Body.String(), "carol")
	}

	logout := sm.LoadAndSave(http.HandlerFunc(handlers.Logout))
	req = httptest.NewRequest("POST", "/api/user/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	logout.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest("POST", "/api/meme", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

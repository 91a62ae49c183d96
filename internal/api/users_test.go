package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joestump/memedex/internal/api"
)

func TestUsers_Me(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "alice", "user")
	token := seedToken(t, env, user.ID)

	rec := do(env, "GET", "/user/me", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp api.UserResponse
	decode(t, rec, &resp)
	if resp.Username != "alice" || resp.ID != user.ID {
		t.Errorf("got %+v, want alice", resp)
	}
}

func TestUsers_LoginSession(t *testing.T) {
	env := newTestEnv(t)
	user := seedUser(t, env, "alice", "user")
	token := seedToken(t, env, user.ID)

	rec := do(env, "POST", "/user/login", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}

	withCookies := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		env.Router.ServeHTTP(rec, req)
		return rec
	}

	rec = withCookies("POST", "/meme/nothing/like")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("session mutation status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = withCookies("GET", "/user/me")
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = withCookies("POST", "/user/logout")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = withCookies("GET", "/user/me")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestUsers_LoginRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := do(env, "POST", "/user/login", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

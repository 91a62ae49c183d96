package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joestump/memedex/internal/auth"
	"github.com/joestump/memedex/internal/store"
	"github.com/joestump/memedex/internal/testutil"
)

func newTokenTestEnv(t *testing.T) (*auth.SQLTokenStore, *store.UserStore, string) {
	t.Helper()
	db := testutil.NewTestDB(t)
	ts := auth.NewSQLTokenStore(db)
	us := store.NewUserStore(db)

	u, err := us.Create(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return ts, us, u.ID
}

func TestGenerateToken(t *testing.T) {
	plaintext, hash := auth.GenerateToken()
	if !strings.HasPrefix(plaintext, auth.TokenPrefix) {
		t.Errorf("plaintext %q lacks prefix %q", plaintext, auth.TokenPrefix)
	}
	if len(plaintext) <= len(auth.TokenPrefix)+16 {
		t.Errorf("plaintext too short: %q", plaintext)
	}
	if got := auth.HashToken(plaintext); got != hash {
		t.Errorf("HashToken = %q, want %q", got, hash)
	}
	if other, _ := auth.GenerateToken(); other == plaintext {
		t.Error("two tokens collided")
	}
}

func TestTokenRecord_Active(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name string
		rec  auth.TokenRecord
		want bool
	}{
		{"no expiry", auth.TokenRecord{}, true},
		{"future expiry", auth.TokenRecord{ExpiresAt: sql.NullTime{Time: now.Add(time.Minute), Valid: true}}, true},
		{"past expiry", auth.TokenRecord{ExpiresAt: sql.NullTime{Time: now.Add(-time.Minute), Valid: true}}, false},
		{"expires now", auth.TokenRecord{ExpiresAt: sql.NullTime{Time: now, Valid: true}}, false},
		{"revoked", auth.TokenRecord{RevokedAt: sql.NullTime{Time: now, Valid: true}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.Active(now); got != tc.want {
				t.Errorf("Active = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIssue(t *testing.T) {
	ts, _, userID := newTokenTestEnv(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	plaintext, rec, err := auth.Issue(ctx, ts, auth.NewToken{UserID: userID, Name: "cli", ExpiresAt: &exp})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if rec.UserID != userID || rec.Name != "cli" {
		t.Errorf("record = %+v", rec)
	}
	if !rec.ExpiresAt.Valid || rec.ExpiresAt.Time.Sub(exp).Abs() > time.Second {
		t.Errorf("ExpiresAt = %v, want %v", rec.ExpiresAt, exp)
	}
	if rec.LastUsedAt.Valid || rec.RevokedAt.Valid {
		t.Error("new token should be unused and live")
	}

	got, err := ts.GetByHash(ctx, auth.HashToken(plaintext))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("ID = %q, want %q", got.ID, rec.ID)
	}

	_, rec, err = auth.Issue(ctx, ts, auth.NewToken{UserID: userID, Name: "forever"})
	if err != nil {
		t.Fatalf("Issue without expiry: %v", err)
	}
	if rec.ExpiresAt.Valid {
		t.Error("expected no expiry")
	}
}

func TestTokenStore_GetByHash_NotFound(t *testing.T) {
	ts, _, _ := newTokenTestEnv(t)

	_, err := ts.GetByHash(context.Background(), "nonexistent-hash")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByHash(nonexistent) = %v, want ErrNotFound", err)
	}
}

func TestTokenStore_Revoke(t *testing.T) {
	ts, us, userID := newTokenTestEnv(t)
	ctx := context.Background()

	plaintext, rec, err := auth.Issue(ctx, ts, auth.NewToken{UserID: userID, Name: "doomed"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	bob, err := us.Create(ctx, "bob", "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := ts.Revoke(ctx, rec.ID, bob.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign Revoke = %v, want ErrNotFound", err)
	}
	if err := ts.Revoke(ctx, "nonexistent-id", userID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Revoke(nonexistent) = %v, want ErrNotFound", err)
	}

	if err := ts.Revoke(ctx, rec.ID, userID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	got, err := ts.GetByHash(ctx, auth.HashToken(plaintext))
	if err != nil {
		t.Fatalf("GetByHash after revoke: %v", err)
	}
	if got.Active(time.Now()) {
		t.Error("revoked token still active")
	}

	if err := ts.Revoke(ctx, rec.ID, userID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Revoke = %v, want ErrNotFound", err)
	}
}

func TestTokenStore_ListByUser(t *testing.T) {
	ts, us, userID := newTokenTestEnv(t)
	ctx := context.Background()

	records, err := ts.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %v, want none", records)
	}

	for _, name := range []string{"token-1", "token-2"} {
		if _, _, err := auth.Issue(ctx, ts, auth.NewToken{UserID: userID, Name: name}); err != nil {
			t.Fatalf("Issue %s: %v", name, err)
		}
	}
	bob, err := us.Create(ctx, "bob", "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, _, err := auth.Issue(ctx, ts, auth.NewToken{UserID: bob.ID, Name: "bobs"}); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	records, err = ts.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	for _, r := range records {
		if r.UserID != userID {
			t.Errorf("listed token of %q", r.UserID)
		}
	}
}

func TestTokenStore_Touch(t *testing.T) {
	ts, _, userID := newTokenTestEnv(t)
	ctx := context.Background()

	plaintext, rec, err := auth.Issue(ctx, ts, auth.NewToken{UserID: userID, Name: "track-usage"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	at := time.Now().Add(-time.Minute)
	if err := ts.Touch(ctx, rec.ID, at); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, err := ts.GetByHash(ctx, auth.HashToken(plaintext))
	if err != nil {
		t.Fatalf("GetByHash: %v", err)
	}
	if !got.LastUsedAt.Valid || got.LastUsedAt.Time.Sub(at).Abs() > time.Second {
		t.Errorf("LastUsedAt = %v, want %v", got.LastUsedAt, at)
	}
}

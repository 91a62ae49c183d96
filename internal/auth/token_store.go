// Package auth issues and validates API tokens, promotes them into cookie
// sessions, and attaches the authenticated user to request contexts.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/joestump/memedex/internal/store"
)

// TokenPrefix marks plaintext memedex API tokens.
const TokenPrefix = "md_"

// TokenRecord is a stored API token. Only the hash of the plaintext is kept.
type TokenRecord struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	Name       string       `db:"name"`
	TokenHash  string       `db:"token_hash"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	ExpiresAt  sql.NullTime `db:"expires_at"`
	CreatedAt  time.Time    `db:"created_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

// Active reports whether the token may authenticate a request at now.
func (r *TokenRecord) Active(now time.Time) bool {
	if r.RevokedAt.Valid {
		return false
	}
	return !r.ExpiresAt.Valid || now.Before(r.ExpiresAt.Time)
}

// NewToken describes a token to store. Hash is filled in by Issue.
type NewToken struct {
	UserID    string
	Name      string
	Hash      string
	ExpiresAt *time.Time
}

// TokenStore persists API tokens for catalog users.
type TokenStore interface {
	Create(ctx context.Context, t NewToken) (*TokenRecord, error)
	// GetByHash returns store.ErrNotFound for an unknown hash.
	GetByHash(ctx context.Context, hash string) (*TokenRecord, error)
	ListByUser(ctx context.Context, userID string) ([]*TokenRecord, error)
	// Revoke returns store.ErrNotFound unless userID owns a live token id.
	Revoke(ctx context.Context, id, userID string) error
	Touch(ctx context.Context, id string, at time.Time) error
}

const tokenColumns = `id, user_id, name, token_hash, last_used_at, expires_at, created_at, revoked_at`

// SQLTokenStore keeps tokens in the api_tokens table.
type SQLTokenStore struct {
	db *sqlx.DB
}

func NewSQLTokenStore(db *sqlx.DB) *SQLTokenStore {
	return &SQLTokenStore{db: db}
}

func (s *SQLTokenStore) q(query string) string { return s.db.Rebind(query) }

func (s *SQLTokenStore) Create(ctx context.Context, t NewToken) (*TokenRecord, error) {
	rec := TokenRecord{
		ID:        uuid.NewString(),
		UserID:    t.UserID,
		Name:      t.Name,
		TokenHash: t.Hash,
		CreatedAt: time.Now().UTC(),
	}
	if t.ExpiresAt != nil {
		rec.ExpiresAt = sql.NullTime{Time: t.ExpiresAt.UTC(), Valid: true}
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO api_tokens (id, user_id, name, token_hash, expires_at, created_at)
		VALUES (:id, :user_id, :name, :token_hash, :expires_at, :created_at)
	`, rec)
	if err != nil {
		return nil, err
	}
	return s.getOne(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE id = ?`, rec.ID)
}

func (s *SQLTokenStore) GetByHash(ctx context.Context, hash string) (*TokenRecord, error) {
	return s.getOne(ctx, `SELECT `+tokenColumns+` FROM api_tokens WHERE token_hash = ?`, hash)
}

func (s *SQLTokenStore) getOne(ctx context.Context, query string, arg any) (*TokenRecord, error) {
	var rec TokenRecord
	err := s.db.GetContext(ctx, &rec, s.q(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser returns the user's tokens, newest first.
func (s *SQLTokenStore) ListByUser(ctx context.Context, userID string) ([]*TokenRecord, error) {
	records := []*TokenRecord{}
	err := s.db.SelectContext(ctx, &records, s.q(`
		SELECT `+tokenColumns+` FROM api_tokens WHERE user_id = ? ORDER BY created_at DESC, id
	`), userID)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Revoke stamps revoked_at on a live token. A token that is already revoked
// is reported as not found.
func (s *SQLTokenStore) Revoke(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE api_tokens SET revoked_at = ?
		WHERE id = ? AND user_id = ? AND revoked_at IS NULL
	`), time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Touch records that the token authenticated a request at at.
func (s *SQLTokenStore) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`), at.UTC(), id)
	return err
}

// Issue mints a token for t.UserID, stores its hash and returns the
// plaintext with the stored record. The plaintext is not kept.
func Issue(ctx context.Context, ts TokenStore, t NewToken) (string, *TokenRecord, error) {
	plaintext, hash := GenerateToken()
	t.Hash = hash
	rec, err := ts.Create(ctx, t)
	if err != nil {
		return "", nil, err
	}
	return plaintext, rec, nil
}

// GenerateToken returns a new plaintext token and its hash.
func GenerateToken() (plaintext, hash string) {
	plaintext = TokenPrefix + rand.Text()
	return plaintext, HashToken(plaintext)
}

// HashToken returns the hex-encoded SHA-256 of a plaintext token.
func HashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

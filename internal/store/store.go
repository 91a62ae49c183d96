// Package store holds the durable implementations of the catalog store and
// the user records behind authentication.
package store

import (
	"errors"
	"strings"

	"github.com/joestump/memedex/internal/catalog"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when creating a user whose name exists.
	ErrUsernameTaken = errors.New("username already taken")
)

var _ catalog.Store = (*CatalogStore)(nil)

// isUniqueConstraintError checks if the error is a unique constraint violation
// across SQLite, PostgreSQL and MySQL.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // SQLite & PostgreSQL
		strings.Contains(msg, "duplicate key") || // PostgreSQL
		strings.Contains(msg, "duplicate entry") // MySQL
}

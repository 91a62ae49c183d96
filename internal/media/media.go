// Package media stores the image attached to each meme. Files are keyed by
// the meme title plus an extension derived from the image bytes.
package media

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when no object exists under a name.
	ErrNotFound = errors.New("media: not found")
	// ErrUnsupported is returned for payloads that are not PNG, GIF or JPEG.
	ErrUnsupported = errors.New("media: unsupported image format")
)

// Store is a flat namespace of named byte objects.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

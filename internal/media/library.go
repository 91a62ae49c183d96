package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
)

// Extensions tried when looking up a meme's file, in order.
var extensions = []string{".png", ".gif", ".jpg"}

// Detect returns the file extension for an image payload.
func Detect(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return ".png", nil
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return ".gif", nil
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return ".jpg", nil
	default:
		return "", ErrUnsupported
	}
}

func contentType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".jpg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

// ContentType returns the MIME type served for a stored file name.
func ContentType(name string) string {
	for _, ext := range extensions {
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			return contentType(ext)
		}
	}
	return contentType("")
}

// Attachment describes the stored image of a meme.
type Attachment struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Library maps meme titles onto stored image files.
type Library struct {
	store   Store
	urlBase string
}

// NewLibrary wraps store. urlBase prefixes the Path of returned attachments.
func NewLibrary(store Store, urlBase string) *Library {
	return &Library{store: store, urlBase: urlBase}
}

// Save stores data as the image of title, replacing any file stored under
// another extension. It returns the stored file name.
func (l *Library) Save(ctx context.Context, title string, data []byte) (string, error) {
	ext, err := Detect(data)
	if err != nil {
		return "", err
	}
	name := title + ext
	if err := l.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("media: save %s: %w", name, err)
	}
	for _, other := range extensions {
		if other == ext {
			continue
		}
		if err := l.store.Delete(ctx, title+other); err != nil {
			return name, fmt.Errorf("media: drop stale %s: %w", title+other, err)
		}
	}
	return name, nil
}

// Find returns the stored file name for title.
func (l *Library) Find(ctx context.Context, title string) (string, error) {
	for _, ext := range extensions {
		ok, err := l.store.Exists(ctx, title+ext)
		if err != nil {
			return "", err
		}
		if ok {
			return title + ext, nil
		}
	}
	return "", ErrNotFound
}

// Open opens a stored file by name.
func (l *Library) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	return l.store.Open(ctx, name)
}

// Remove deletes every file stored for title.
func (l *Library) Remove(ctx context.Context, title string) error {
	var errs []error
	for _, ext := range extensions {
		if err := l.store.Delete(ctx, title+ext); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rename moves the file of oldTitle to newTitle. A title without a file is
// left alone.
func (l *Library) Rename(ctx context.Context, oldTitle, newTitle string) error {
	name, err := l.Find(ctx, oldTitle)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	rc, err := l.store.Open(ctx, name)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("media: read %s: %w", name, err)
	}
	if _, err := l.Save(ctx, newTitle, data); err != nil {
		return err
	}
	return l.Remove(ctx, oldTitle)
}

// Describe returns the attachment of title with its pixel dimensions, or
// ErrNotFound when the meme has no file.
func (l *Library) Describe(ctx context.Context, title string) (*Attachment, error) {
	name, err := l.Find(ctx, title)
	if err != nil {
		return nil, err
	}
	rc, err := l.store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("media: decode %s: %w", name, err)
	}
	return &Attachment{
		Name:   name,
		Path:   l.urlBase + url.PathEscape(name),
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

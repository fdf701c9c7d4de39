// Package filestore stores uploaded documents and rendered agreements and
// hands back the URL that is saved on the owning row.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("file not found")

// Store is a flat key/value file store.
type Store interface {
	// Put writes the content under key and returns its URL.
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)

	// Get opens the content stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// Config selects and configures a backend.
type Config struct {
	Driver string   `yaml:"driver"` // memory or s3
	S3     S3Config `yaml:"s3"`
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported file store driver %q", cfg.Driver)
	}
}

// DocumentKey builds a collision-free key for an upload, keeping the
// original extension.
func DocumentKey(societyID, userID, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	return path.Join("documents", societyID, userID, uuid.New().String()+ext)
}

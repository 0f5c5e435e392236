// Package objectstore keeps generated and source images outside the
// database, on local disk or in S3.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"roomify/core"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("objectstore: object not found")
	// ErrInvalidKey rejects empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("objectstore: invalid key")
)

// ContentTypePNG is the only type the pipeline produces.
const ContentTypePNG = "image/png"

// Store persists image bytes by key.
type Store interface {
	// Put stores data and returns a URL the client can fetch it from.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// DesignKey is the key for a design's generated image.
func DesignKey(id string) string {
	return path.Join("designs", id+".png")
}

// SourceKey is the key for the uploaded photo a design was made from. The
// upload keeps its original encoding, so the key has no extension.
func SourceKey(id string) string {
	return path.Join("sources", id)
}

func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// New builds the store selected by STORAGE_BACKEND. "none" yields a nil
// Store and history is disabled.
func New(ctx context.Context, cfg *core.Config) (Store, error) {
	switch cfg.StorageBackend {
	case "local":
		return NewLocalStore(cfg.DataFilePath("images"), "/images")
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.AWSRegion,
		})
	case "none":
		return nil, nil
	default:
		return nil, core.ErrInvalidValue("STORAGE_BACKEND", cfg.StorageBackend, core.StorageBackends)
	}
}

// Package storage persists uploaded media files. Two backends implement
// Storage: the local filesystem (through afero) and an S3-compatible
// bucket.
package storage

import (
	"context"
	"io"
)

// Storage stores and serves files addressed by slash-separated keys such
// as "media/2026/01/31/<uuid>.jpg".
type Storage interface {
	// Save writes body under key, replacing any existing object.
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of the object.
	URL(key string) string
}

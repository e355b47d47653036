// Package storage holds the object-store abstraction for listing images.
// Images are content-addressed: the object key is derived from the SHA-256
// hash of the content, so identical images are stored once.
package storage

import (
	"context"
	"time"
)

// ImageKey returns the object key for an image content hash.
func ImageKey(hash string) string {
	return "images/" + hash
}

// ImageStore is an S3-compatible object store for listing images.
// Implementations must be safe for concurrent use.
type ImageStore interface {
	// Put uploads image content under the given key. Re-uploading an existing
	// key overwrites it with identical content and is harmless.
	Put(ctx context.Context, key string, content []byte, contentType string) error
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download the
	// image without credentials.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

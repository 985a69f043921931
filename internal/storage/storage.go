// Package storage is the object-store gateway: pre-signed upload/download
// URLs, existence and size checks, and deletes against a single bucket.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned for operations on a missing object key.
// Cleanup paths treat it as non-fatal.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the gateway interface. Signed URLs are single-purpose and
// expire after their TTL; re-signing the same key returns a different URL.
type ObjectStore interface {
	SignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	SignDownload(ctx context.Context, key string, ttl time.Duration, disposition string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Size(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

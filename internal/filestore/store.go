// Package filestore defines the read-only object store behind the
// download endpoint.
//
// Providers (currently MinIO) implement Store. Callers depend only on this
// package, never on a specific provider package.
//
// Usage:
//
//	cfg := filestore.DefaultConfig("localhost:9000", "minioadmin", "minioadmin", "downloads")
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	obj, err := store.Get(ctx, "reports/2024.pdf")
package filestore

import (
	"context"
	"strings"

	"github.com/koustreak/tabula/internal/errs"
)

// MaxKeyLength is the S3 limit for object keys.
const MaxKeyLength = 1024

// Store serves objects from a single configured bucket.
type Store interface {
	// Ping verifies the bucket is reachable.
	Ping(ctx context.Context) error

	// Stat returns metadata for the object at key without downloading it.
	Stat(ctx context.Context, key string) (*ObjectInfo, error)

	// Get opens a streaming handle to the object at key.
	// The caller MUST call Object.Close() after reading.
	Get(ctx context.Context, key string) (Object, error)

	// Close releases any held resources.
	Close() error
}

// ValidateKey rejects keys that are empty, too long, absolute, or that
// contain a ".." path segment.
func ValidateKey(key string) error {
	if key == "" {
		return errs.New(errs.ErrKindValidation, "object key is empty")
	}
	if len(key) > MaxKeyLength {
		return errs.Newf(errs.ErrKindValidation, "object key exceeds %d bytes", MaxKeyLength)
	}
	if strings.HasPrefix(key, "/") || strings.ContainsRune(key, '\\') || strings.ContainsRune(key, 0) {
		return errs.Newf(errs.ErrKindValidation, "object key %q is not a relative path", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return errs.Newf(errs.ErrKindValidation, "object key %q contains a relative segment", key)
		}
	}
	return nil
}

// Package blob stores product images as named blobs.
package blob

import (
	"context"
	"path/filepath"
	"strings"

	cerrors "github.com/abgdnv/productcatalog/internal/catalog/errors"
)

// Store is a flat namespace of binary blobs addressed by key.
type Store interface {
	// Put writes data under key, replacing any previous content.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the content stored under key.
	// Returns ErrBlobNotFound (wrapped in a StorageError) if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that are not a single path element.
// Keys starting with a dot are reserved for in-flight writes.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") ||
		strings.ContainsAny(key, `/\`) ||
		strings.Contains(key, "..") ||
		strings.ContainsRune(key, 0) ||
		filepath.Base(key) != key {
		return cerrors.ErrInvalidKey
	}
	return nil
}

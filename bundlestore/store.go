// Package bundlestore abstracts persistent storage for encoded model
// bundles: the local filesystem, memory (tests), and S3-compatible object
// stores via the subpackages.
//
// Bundles are small, immutable values, so the interface moves whole byte
// slices instead of streaming readers; decoding needs the full bundle in
// memory anyway.
package bundlestore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a bundle does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is persistent storage for encoded model bundles.
type Store interface {
	// Put writes a bundle atomically, replacing any previous contents.
	Put(ctx context.Context, name string, data []byte) error
	// Get returns the bundle's bytes.
	Get(ctx context.Context, name string) ([]byte, error)
	// Delete removes a bundle. Deleting an absent name is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names of all bundles matching the prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

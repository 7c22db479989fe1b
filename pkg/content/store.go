// Package content defines the content store abstraction used by embedded
// native clients.
//
// A content store holds raw file bytes keyed by an opaque ID; everything
// else (paths, permissions, hierarchy) lives in the metadata layer. The
// separation lets the same metadata engine back wildly different byte
// storage: process memory for tests, an object store for durability.
package content

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

// ID is an opaque content identifier. Only the store that minted it
// interprets it; callers persist and compare it, nothing more.
type ID string

// NewID mints a fresh content identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ErrNotFound is returned when an ID names no stored content.
var ErrNotFound = errors.New("content not found")

// Stats reports usage of a content store, in bytes. Backends without a
// meaningful capacity report zero for the fields they cannot answer.
type Stats struct {
	UsedBytes int64
	Objects   int64
}

// Store is the minimal content contract.
//
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ID are last-write-wins; callers needing stronger guarantees serialize
// in the metadata layer.
type Store interface {
	// Read returns a reader over the content. The caller closes it.
	// A missing ID yields ErrNotFound.
	Read(ctx context.Context, id ID) (io.ReadCloser, error)

	// Write stores the complete content under the ID, replacing any
	// previous bytes.
	Write(ctx context.Context, id ID, data []byte) error

	// Delete removes the content. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id ID) error

	// Exists reports whether the ID names stored content.
	Exists(ctx context.Context, id ID) (bool, error)

	// Size returns the content length in bytes, without reading the data.
	// A missing ID yields ErrNotFound.
	Size(ctx context.Context, id ID) (int64, error)

	// Stats returns current usage of the store.
	Stats(ctx context.Context) (*Stats, error)
}

// Package store implements the content-addressed payload store.
//
// Objects are immutable files keyed by the lowercase-hex SHA-256 of
// their uncompressed payload bytes. Identical payloads always land on
// the same key, so writes are idempotent and concurrent writers of the
// same content are benign. The on-disk layout is git-style sharding:
//
//	baseDir/objects/ab/cdef...dat
//
// Objects stored zstd-compressed carry an extra .zst suffix; the file
// name, not the content, records the stored form.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports a digest with no stored object. Kept distinct
// from I/O failures so callers can tell "missing" from "broken".
var ErrNotFound = errors.New("store: object not found")

// StoredObject describes one content-addressed object.
type StoredObject struct {
	Digest     string `json:"digest"`
	StorageURI string `json:"storageUri"`
	SizeBytes  int64  `json:"sizeBytes"`
}

// Stats summarizes the store contents. Sizes are on-disk (post
// compression) bytes.
type Stats struct {
	Count      int   `json:"count"`
	TotalBytes int64 `json:"totalBytes"`
	AvgBytes   int64 `json:"avgBytes"`
}

// Store is the payload storage contract. LocalStore is the filesystem
// implementation; replacements must preserve content-addressed lookup.
type Store interface {
	// Put stores payload bytes and returns the object descriptor.
	// Storing bytes that already exist is a no-op.
	Put(ctx context.Context, data []byte) (StoredObject, error)

	// Get retrieves payload bytes by digest. Returns ErrNotFound for
	// unknown digests.
	Get(ctx context.Context, digest string) ([]byte, error)

	// Has checks object existence without reading it.
	Has(ctx context.Context, digest string) (bool, error)

	// Verify re-reads the object from disk, recomputes its hash and
	// reports whether it still matches digest. A mismatch is an
	// expected condition (corruption, tampering), not an error.
	Verify(ctx context.Context, digest string) (bool, error)

	// Stats walks the store. Best effort, observability only.
	Stats(ctx context.Context) (Stats, error)
}

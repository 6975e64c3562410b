// Package blobstore defines the durable blob store the snapshot bridge
// writes to, plus adapters for the stores this project runs against.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the []byte previously passed to Put for the same (namespace, key). Every
// call either succeeds or fails as a whole; there are no partial reads.
package blobstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNilClient is returned by adapter constructors given a nil client.
var ErrNilClient = errors.New("blobstore: nil client")

// Store is an opaque object store addressed by (namespace, key).
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) when absent.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)

	// Put stores value, replacing any previous one.
	Put(ctx context.Context, namespace, key string, value []byte) error

	// Delete removes the object. Deleting an absent object is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

var nsEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

// FlatKey joins namespace and key into one "<namespace>:<key>" string for
// stores with a flat key space. "%" and ":" in the namespace are escaped, so
// the first ":" always ends it and distinct pairs never share a key.
func FlatKey(namespace, key string) string {
	return nsEscaper.Replace(namespace) + ":" + key
}

package warmcache

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	c "github.com/pennybot/warmcache/codec"
	"github.com/pennybot/warmcache/flight"
)

// Fetcher loads the full, current value of one resource from its Remote Source.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Participant is anything the snapshot Bridge can carry across an instance
// recycle. Every Cache is a Participant; registering it with a Bridge is what
// makes it snapshot-eligible.
type Participant interface {
	Key() string
	// Export encodes the current value without fetching. ok=false means empty.
	Export() (data []byte, ok bool, err error)
	// Import decodes data and seeds the cache with it.
	Import(data []byte) error
}

// Cache holds the last-known value of one resource collection.
// Values are replaced whole and never mutated in place; readers see either
// the previous or the new value.
type Cache[V any] interface {
	Participant

	// Get returns the current value without fetching.
	Get() (v V, ok bool)
	// GetOrFetch returns the cached value, or runs fetch through the coalescer
	// on a miss. A failed fetch leaves the cache untouched and returns the error.
	GetOrFetch(ctx context.Context, fetch Fetcher[V]) (V, error)
	// Put replaces the value (e.g. with the collection a mutation returned) and re-arms the TTL.
	Put(v V)
	// Seed installs a restored value and re-arms the TTL without touching the coalescer.
	Seed(v V)
	// Invalidate drops the value and disarms the TTL. Idempotent.
	Invalidate()
	// Close stops the TTL goroutine. The cache keeps serving without expiry.
	Close()
}

// Options tune a single cache.
// Only Key is required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Key string // CacheKey, stable across restarts. e.g. "auto-pings", "faqs"

	TTL               time.Duration   // idle TTL; 0 => TTLSubscriptions
	Codec             c.Codec[V]      // snapshot encoding; nil => CBOR
	FetchTimeout      time.Duration   // deadline per fetch; 0 => 20s
	Coalescer         *flight.Group   // nil => private group
	Clock             clockwork.Clock // nil => real clock
	Logger            Logger          // nil => NopLogger
	Hooks             Hooks           // nil => NopHooks
	DisarmAfterExpiry bool            // default false => idle caches keep clearing every TTL
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newVolatile[V](opts)
}

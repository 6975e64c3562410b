// Package warmcache keeps warm in-memory copies of remote resource
// collections inside short-lived compute instances, and stays correct when
// those instances are killed and recreated at any time.
//
// Components:
//   - Cache[V]: last-known value of one resource, served without I/O on hits.
//     Misses go through a flight.Group so one fetch per key is in flight.
//   - Scheduler: generation-tagged idle timer that drops a cache after its TTL.
//   - Family[V]: per-entity caches ("coin-count:<user>") bounded by ristretto.
//   - Bridge: writes every registered cache to a blobstore.Store before the
//     instance is recycled and seeds them back on the next cold start.
//
// Lifecycle:
//
//	bridge.Restore(ctx)  // ColdStart -> Warm, consumes the stored envelope
//	v, err := cache.GetOrFetch(ctx, source.FetchAll)
//	bridge.Snapshot(ctx) // Warm -> Terminated, on the shutdown signal
//
// No failure in this package is fatal: a lost or corrupt snapshot means a
// cold fetch, a failed fetch means a stale or empty cache.
package warmcache

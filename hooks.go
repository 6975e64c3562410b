package warmcache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the cache calls them on hot paths.
type Hooks interface {
	// The Remote Source fetch for key failed. The cache was left as it was.
	FetchFailed(key string, err error)

	// A fetch completed after the cache was invalidated or replaced; its result was not stored.
	StaleFetchDiscarded(key string)

	// The refresh scheduler fired for key and the value was dropped.
	Expired(key string)

	// A snapshot bridge store/decode step failed.
	// op ∈ {"get", "decode", "put", "delete", "encode"}
	SnapshotFailed(op string, err error)

	// One envelope entry could not be imported or exported and was skipped.
	EntrySkipped(key string, err error)

	// A family member cache was not admitted (or was evicted) by the bounding cache.
	FamilyEvicted(key string, rejected bool)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) FetchFailed(string, error)    {}
func (NopHooks) StaleFetchDiscarded(string)   {}
func (NopHooks) Expired(string)               {}
func (NopHooks) SnapshotFailed(string, error) {}
func (NopHooks) EntrySkipped(string, error)   {}
func (NopHooks) FamilyEvicted(string, bool)   {}

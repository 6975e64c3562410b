package warmcache

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/jonboulle/clockwork"

	c "github.com/pennybot/warmcache/codec"
	"github.com/pennybot/warmcache/flight"
)

// FamilyOptions configure a Family. Member caches inherit TTL, codec, clock,
// logging and the coalescer from here.
type FamilyOptions[V any] struct {
	// Required
	Prefix string // member keys are "<prefix>:<sub>", e.g. "coin-count:1234"

	MaxEntries        int64 // live member caches; 0 => 10k
	TTL               time.Duration
	Codec             c.Codec[V]
	FetchTimeout      time.Duration
	Coalescer         *flight.Group
	Clock             clockwork.Clock
	Logger            Logger
	Hooks             Hooks
	DisarmAfterExpiry bool
}

// Family lazily creates one Cache per sub-key of a keyed resource.
//
// The live set is authoritative for lookups; ristretto only decides which
// members to keep under MaxEntries. Members it evicts or refuses are closed,
// and the next access for that sub-key starts a fresh, empty cache.
type Family[V any] struct {
	prefix  string
	tmpl    Options[V]
	log     Logger
	hooks   Hooks
	members *ristretto.Cache

	mu     sync.Mutex
	live   map[string]*volatile[V]
	closed bool
}

func NewFamily[V any](opts FamilyOptions[V]) (*Family[V], error) {
	if opts.Prefix == "" {
		return nil, invalidf("family prefix is required")
	}
	if opts.MaxEntries < 0 {
		return nil, invalidf("negative max entries for family %q", opts.Prefix)
	}

	f := &Family[V]{
		prefix: opts.Prefix,
		live:   make(map[string]*volatile[V]),
	}
	f.log = withFields(coalesce[Logger](opts.Logger, NopLogger{}), Fields{"family": opts.Prefix})
	f.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	coalescer := opts.Coalescer
	if coalescer == nil {
		coalescer = flight.New()
	}
	f.tmpl = Options[V]{
		TTL:               opts.TTL,
		Codec:             opts.Codec,
		FetchTimeout:      opts.FetchTimeout,
		Coalescer:         coalescer,
		Clock:             opts.Clock,
		Logger:            f.log,
		Hooks:             f.hooks,
		DisarmAfterExpiry: opts.DisarmAfterExpiry,
	}

	maxEntries := coalesce[int64](opts.MaxEntries, defaultFamilyCapacity)
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10, // ~10x items per ristretto docs
		MaxCost:            maxEntries,      // every member costs 1
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict:            func(item *ristretto.Item) { f.release(item.Value, false) },
		OnReject:           func(item *ristretto.Item) { f.release(item.Value, true) },
	})
	if err != nil {
		return nil, err
	}
	f.members = rc
	return f, nil
}

// Key returns the member CacheKey for sub.
func (f *Family[V]) Key(sub string) string { return f.prefix + ":" + sub }

// Get returns the cached value for sub without fetching.
func (f *Family[V]) Get(sub string) (V, bool) {
	f.mu.Lock()
	m := f.live[f.Key(sub)]
	f.mu.Unlock()
	if m == nil {
		var zero V
		return zero, false
	}
	return m.Get()
}

// GetOrFetch is Cache.GetOrFetch for the member cache of sub.
func (f *Family[V]) GetOrFetch(ctx context.Context, sub string, fetch Fetcher[V]) (V, error) {
	m, err := f.member(sub)
	if err != nil {
		var zero V
		return zero, err
	}
	return m.GetOrFetch(ctx, fetch)
}

// Put replaces the value for sub.
func (f *Family[V]) Put(sub string, v V) error {
	m, err := f.member(sub)
	if err != nil {
		return err
	}
	m.Put(v)
	return nil
}

// Invalidate drops the value for sub, if a member exists.
func (f *Family[V]) Invalidate(sub string) {
	f.mu.Lock()
	m := f.live[f.Key(sub)]
	f.mu.Unlock()
	if m != nil {
		m.Invalidate()
	}
}

// Len returns the number of live member caches.
func (f *Family[V]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// Close stops every member and the bounding cache. Safe to call multiple times.
func (f *Family[V]) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	live := f.live
	f.live = make(map[string]*volatile[V])
	f.mu.Unlock()

	f.members.Close()
	for _, m := range live {
		m.Close()
	}
}

func (f *Family[V]) member(sub string) (*volatile[V], error) {
	key := f.Key(sub)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	if m, ok := f.live[key]; ok {
		f.mu.Unlock()
		f.members.Get(key) // feeds the admission policy
		return m, nil
	}
	opts := f.tmpl
	opts.Key = key
	m, err := newVolatile[V](opts)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.live[key] = m
	f.mu.Unlock()

	// ristretto calls back on its own goroutine; never hold f.mu across Set.
	if !f.members.Set(key, m, 1) {
		f.release(m, true)
	}
	return m, nil
}

func (f *Family[V]) release(v any, rejected bool) {
	m, ok := v.(*volatile[V])
	if !ok {
		return
	}
	f.mu.Lock()
	if f.live[m.key] == m {
		delete(f.live, m.key)
	}
	f.mu.Unlock()

	m.Close()
	f.hooks.FamilyEvicted(m.key, rejected)
	f.log.Debug("family member released", Fields{"key": m.key, "rejected": rejected})
}

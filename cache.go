package warmcache

import (
	"context"
	"sync"
	"time"

	c "github.com/pennybot/warmcache/codec"
	"github.com/pennybot/warmcache/flight"
)

type entry[V any] struct {
	v V
}

type volatile[V any] struct {
	key          string
	codec        c.Codec[V]
	fetchTimeout time.Duration
	flights      *flight.Group
	log          Logger
	hooks        Hooks
	sched        *Scheduler

	// cur is swapped whole under mu; nil means empty.
	// epoch moves on every Put/Seed/Invalidate/expiry so that a fetch which
	// started before one of them cannot install its (older) result.
	mu    sync.RWMutex
	cur   *entry[V]
	epoch uint64
}

var _ Cache[struct{}] = (*volatile[struct{}])(nil)

func newVolatile[V any](opts Options[V]) (*volatile[V], error) {
	if opts.Key == "" {
		return nil, invalidf("key is required")
	}
	if opts.TTL < 0 {
		return nil, invalidf("negative ttl for %q", opts.Key)
	}

	cc := &volatile[V]{
		key:     opts.Key,
		codec:   opts.Codec,
		flights: opts.Coalescer,
	}

	// defaults
	cc.log = withFields(coalesce[Logger](opts.Logger, NopLogger{}), Fields{"key": opts.Key})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.fetchTimeout = coalesce[time.Duration](opts.FetchTimeout, defaultFetchTimeout)
	if cc.flights == nil {
		cc.flights = flight.New()
	}
	if cc.codec == nil {
		cbor, err := c.NewCBOR[V](true)
		if err != nil {
			return nil, err
		}
		cc.codec = cbor
	}

	var sopts []SchedulerOption
	if opts.DisarmAfterExpiry {
		sopts = append(sopts, WithDisarmAfterExpiry())
	}
	ttl := coalesce[time.Duration](opts.TTL, TTLSubscriptions)
	cc.sched = NewScheduler(ttl, opts.Clock, cc.expire, sopts...)
	return cc, nil
}

func (cc *volatile[V]) Key() string { return cc.key }

func (cc *volatile[V]) Get() (V, bool) {
	cc.mu.RLock()
	e := cc.cur
	cc.mu.RUnlock()
	if e == nil {
		var zero V
		return zero, false
	}
	return e.v, true
}

func (cc *volatile[V]) GetOrFetch(ctx context.Context, fetch Fetcher[V]) (V, error) {
	if v, ok := cc.Get(); ok {
		return v, nil
	}

	v, shared, err := flight.Do(ctx, cc.flights, cc.key, func(ctx context.Context) (V, error) {
		// Double-check: a flight that completed between our miss and this
		// ticket may already have filled the cache.
		cc.mu.RLock()
		e, observed := cc.cur, cc.epoch
		cc.mu.RUnlock()
		if e != nil {
			return e.v, nil
		}

		fctx, cancel := context.WithTimeout(ctx, cc.fetchTimeout)
		defer cancel()

		v, err := fetch(fctx)
		if err != nil {
			cc.hooks.FetchFailed(cc.key, err)
			cc.log.Warn("fetch failed; cache left as is", Fields{"err": err})
			return v, err
		}
		cc.install(v, observed)
		return v, nil
	})
	if err == nil && shared {
		cc.log.Debug("fetch result shared", nil)
	}
	return v, err
}

// install stores a fetched value iff no Put/Seed/Invalidate/expiry happened
// since the fetch observed epoch.
func (cc *volatile[V]) install(v V, observed uint64) bool {
	cc.mu.Lock()
	if cc.epoch != observed {
		cc.mu.Unlock()
		cc.hooks.StaleFetchDiscarded(cc.key)
		cc.log.Debug("fetch result discarded (epoch moved)", Fields{"observed_epoch": observed})
		return false
	}
	cc.replaceLocked(v)
	cc.mu.Unlock()
	return true
}

func (cc *volatile[V]) Put(v V) {
	cc.mu.Lock()
	cc.replaceLocked(v)
	cc.mu.Unlock()
}

func (cc *volatile[V]) Seed(v V) {
	cc.mu.Lock()
	cc.replaceLocked(v)
	cc.mu.Unlock()
	cc.log.Debug("seeded from snapshot", nil)
}

// replaceLocked arms under cc.mu so that a concurrent Invalidate can never
// leave a live scheduler behind an empty cache.
func (cc *volatile[V]) replaceLocked(v V) {
	cc.epoch++
	cc.cur = &entry[V]{v: v}
	cc.sched.Arm()
}

func (cc *volatile[V]) Invalidate() {
	cc.mu.Lock()
	cc.epoch++
	cc.cur = nil
	cc.sched.Cancel()
	cc.mu.Unlock()
}

// expire is the scheduler callback. gen is the generation the firing
// installed; if the cache was re-armed since, the value is newer than the
// sleep that fired and stays. Only dropping a value moves the epoch.
func (cc *volatile[V]) expire(gen uint64) {
	cc.mu.Lock()
	if cc.sched.Generation() != gen {
		cc.mu.Unlock()
		return
	}
	if cc.cur == nil {
		// Idle fire on an empty cache; an in-flight fetch stays current.
		cc.mu.Unlock()
		return
	}
	cc.epoch++
	cc.cur = nil
	cc.mu.Unlock()

	cc.hooks.Expired(cc.key)
	cc.log.Debug("ttl expired; value dropped", nil)
}

func (cc *volatile[V]) Close() { cc.sched.Close() }

func (cc *volatile[V]) Export() ([]byte, bool, error) {
	v, ok := cc.Get()
	if !ok {
		return nil, false, nil
	}
	b, err := cc.codec.Encode(v)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (cc *volatile[V]) Import(data []byte) error {
	v, err := cc.codec.Decode(data)
	if err != nil {
		return err
	}
	cc.Seed(v)
	return nil
}

// Package asynchook moves warmcache hook calls off the request path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{ExpiredEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := warmcache.New(warmcache.Options[penny.Texts]{Key: "faqs", Hooks: hooks})
//
// Events that find the queue full are dropped and counted.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/pennybot/warmcache"
)

type Hooks struct {
	inner warmcache.Hooks
	q     chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex // guards closed against sends on a closed q
	closed  bool
	dropped atomic.Uint64
}

var _ warmcache.Hooks = (*Hooks)(nil)

func New(inner warmcache.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = warmcache.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped returns how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) FetchFailed(k string, err error) { h.try(func() { h.inner.FetchFailed(k, err) }) }
func (h *Hooks) StaleFetchDiscarded(k string)    { h.try(func() { h.inner.StaleFetchDiscarded(k) }) }
func (h *Hooks) Expired(k string)                { h.try(func() { h.inner.Expired(k) }) }
func (h *Hooks) SnapshotFailed(op string, err error) {
	h.try(func() { h.inner.SnapshotFailed(op, err) })
}
func (h *Hooks) EntrySkipped(k string, err error) { h.try(func() { h.inner.EntrySkipped(k, err) }) }
func (h *Hooks) FamilyEvicted(k string, rejected bool) {
	h.try(func() { h.inner.FamilyEvicted(k, rejected) })
}

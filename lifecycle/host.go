// Package lifecycle drives the snapshot bridge from a hosting runtime's
// cold-start and shutdown signals.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/pennybot/warmcache"
)

const defaultShutdownTimeout = 5 * time.Second

// Closer is anything that must be stopped after the final snapshot.
type Closer interface {
	Close()
}

// Bridge is the part of *warmcache.Bridge the host drives.
type Bridge interface {
	Restore(ctx context.Context)
	Snapshot(ctx context.Context)
}

var _ Bridge = (*warmcache.Bridge)(nil)

// Host ties one bridge and the caches behind it to an instance's life.
type Host struct {
	Bridge  Bridge
	Closers []Closer

	// ShutdownTimeout bounds OnShutdown when Run triggers it. 0 => 5s.
	ShutdownTimeout time.Duration
	Logger          warmcache.Logger

	coldOnce     sync.Once
	shutdownOnce sync.Once
}

func (h *Host) logger() warmcache.Logger {
	if h.Logger == nil {
		return warmcache.NopLogger{}
	}
	return h.Logger
}

// OnColdStart restores the snapshot. Only the first call does anything.
func (h *Host) OnColdStart(ctx context.Context) {
	h.coldOnce.Do(func() {
		start := time.Now()
		if h.Bridge != nil {
			h.Bridge.Restore(ctx)
		}
		h.logger().Info("cold start complete", warmcache.Fields{"took": time.Since(start).String()})
	})
}

// OnShutdown snapshots, then closes every Closer in order. Only the first
// call does anything.
func (h *Host) OnShutdown(ctx context.Context) {
	h.shutdownOnce.Do(func() {
		if h.Bridge != nil {
			h.Bridge.Snapshot(ctx)
		}
		for _, c := range h.Closers {
			c.Close()
		}
		h.logger().Info("shutdown complete", warmcache.Fields{"closed": len(h.Closers)})
	})
}

// Run performs the cold start, blocks until ctx is done, then shuts down
// on a fresh context bounded by ShutdownTimeout.
func (h *Host) Run(ctx context.Context) {
	h.OnColdStart(ctx)
	<-ctx.Done()

	timeout := h.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	h.OnShutdown(sctx)
}

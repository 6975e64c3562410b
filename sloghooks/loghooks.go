// Package sloghooks reports warmcache hook events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/pennybot/warmcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ExpiredEvery uint64
	EvictedEvery uint64
	// Optional key redactor. Defaults to keeping the family prefix and
	// hashing the sub-key, so "coin-count:<user>" never logs a user ID.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	expiredCtr atomic.Uint64
	evictedCtr atomic.Uint64
}

var _ warmcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	prefix, sub, ok := strings.Cut(k, ":")
	if !ok {
		return k
	}
	sum := sha256.Sum256([]byte(sub))
	return prefix + ":" + hex.EncodeToString(sum[:6])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("warmcache.fetch_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) StaleFetchDiscarded(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("warmcache.stale_fetch_discarded",
		"key", h.redact(key))
}

func (h *Hooks) Expired(key string) {
	if h.l == nil || !sample(h.opts.ExpiredEvery, &h.expiredCtr) {
		return
	}
	h.l.Debug("warmcache.expired",
		"key", h.redact(key))
}

func (h *Hooks) SnapshotFailed(op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("warmcache.snapshot_failed",
		"op", op,
		"err", err)
}

func (h *Hooks) EntrySkipped(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("warmcache.entry_skipped",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) FamilyEvicted(key string, rejected bool) {
	if h.l == nil || !sample(h.opts.EvictedEvery, &h.evictedCtr) {
		return
	}
	h.l.Info("warmcache.family_evicted",
		"key", h.redact(key),
		"rejected", rejected)
}

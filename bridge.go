package warmcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pennybot/warmcache/blobstore"
	"github.com/pennybot/warmcache/internal/wire"
)

// BridgeState is the bridge's position in an instance's life.
// ColdStart -> Warm -> Terminated; there is no way back.
type BridgeState int32

const (
	ColdStart BridgeState = iota
	Warm
	Terminated
)

func (s BridgeState) String() string {
	switch s {
	case ColdStart:
		return "cold-start"
	case Warm:
		return "warm"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("BridgeState(%d)", int32(s))
	}
}

// BridgeOptions configure a Bridge. Only Store is required.
type BridgeOptions struct {
	Store     blobstore.Store
	Namespace string          // "" => "warmcache"
	Key       string          // "" => "snapshot"
	Timeout   time.Duration   // per store call; 0 => 10s
	Clock     clockwork.Clock // stamps envelopes; nil => real clock
	Logger    Logger
	Hooks     Hooks
}

// Bridge carries registered caches across instance recycling through one
// envelope in the blob store. Store failures are logged and reported to Hooks,
// never returned: starting cold is always a correct outcome.
type Bridge struct {
	store   blobstore.Store
	ns      string
	key     string
	timeout time.Duration
	clock   clockwork.Clock
	log     Logger
	hooks   Hooks

	mu    sync.Mutex
	state BridgeState
	parts map[string]Participant
	order []string
}

func NewBridge(opts BridgeOptions, parts ...Participant) (*Bridge, error) {
	if opts.Store == nil {
		return nil, invalidf("bridge store is required")
	}
	b := &Bridge{
		store: opts.Store,
		parts: make(map[string]Participant, len(parts)),
	}
	b.ns = coalesce(opts.Namespace, defaultBridgeNS)
	b.key = coalesce(opts.Key, defaultBridgeKey)
	b.timeout = coalesce[time.Duration](opts.Timeout, defaultBridgeTimeout)
	b.clock = coalesce[clockwork.Clock](opts.Clock, clockwork.NewRealClock())
	b.log = coalesce[Logger](opts.Logger, NopLogger{})
	b.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	for _, p := range parts {
		if err := b.Register(p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Register makes p snapshot-eligible. Keys must be unique.
func (b *Bridge) Register(p Participant) error {
	if p == nil {
		return invalidf("nil participant")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := p.Key()
	if _, dup := b.parts[k]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateParticipant, k)
	}
	b.parts[k] = p
	b.order = append(b.order, k)
	return nil
}

// State returns the current lifecycle state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Restore consumes the stored envelope, if any, seeding every registered
// cache it names, then deletes it. Only the first call in ColdStart does
// anything; the bridge is Warm afterwards whatever happened.
func (b *Bridge) Restore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != ColdStart {
		b.log.Warn("restore ignored", Fields{"state": b.state.String()})
		return
	}
	b.state = Warm

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	raw, ok, err := b.store.Get(ctx, b.ns, b.key)
	if err != nil {
		b.fail("get", err)
		return
	}
	if !ok {
		b.log.Info("no snapshot; starting cold", Fields{"ns": b.ns, "key": b.key})
		return
	}

	env, err := wire.DecodeEnvelope(raw)
	if err != nil {
		b.fail("decode", err)
		b.discard(ctx) // self-heal corrupt
		return
	}

	seeded := 0
	for k, data := range env.Entries {
		p, known := b.parts[k]
		if !known {
			b.log.Debug("snapshot entry has no participant; skipped", Fields{"key": k})
			continue
		}
		if err := p.Import(data); err != nil {
			b.hooks.EntrySkipped(k, err)
			b.log.Warn("snapshot entry import failed; left cold", Fields{"key": k, "err": err})
			continue
		}
		seeded++
	}
	b.discard(ctx)
	b.log.Info("restored from snapshot", Fields{
		"seeded":  seeded,
		"entries": len(env.Entries),
		"age":     b.clock.Since(env.CreatedAt).String(),
	})
}

// Snapshot writes the current value of every registered cache to the store.
// It never fetches. Callable from ColdStart or Warm, once; a failed write is
// logged and the loss accepted.
func (b *Bridge) Snapshot(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Terminated {
		b.log.Debug("snapshot ignored; already terminated", nil)
		return
	}
	b.state = Terminated

	entries := make(map[string][]byte, len(b.order))
	for _, k := range b.order {
		data, ok, err := b.parts[k].Export()
		if err != nil {
			b.hooks.EntrySkipped(k, err)
			b.log.Warn("snapshot entry export failed; skipped", Fields{"key": k, "err": err})
			continue
		}
		if ok {
			entries[k] = data
		}
	}

	raw, err := wire.EncodeEnvelope(wire.Envelope{CreatedAt: b.clock.Now().UTC(), Entries: entries})
	if err != nil {
		b.fail("encode", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.store.Put(ctx, b.ns, b.key, raw); err != nil {
		b.fail("put", err)
		return
	}
	b.log.Info("snapshot stored", Fields{"entries": len(entries), "bytes": len(raw)})
}

// discard deletes the envelope best-effort. A leftover is harmless: the next
// Snapshot overwrites it.
func (b *Bridge) discard(ctx context.Context) {
	if err := b.store.Delete(ctx, b.ns, b.key); err != nil {
		b.fail("delete", err)
	}
}

func (b *Bridge) fail(op string, err error) {
	serr := &SnapshotError{Op: op, Namespace: b.ns, Key: b.key, Err: err}
	b.hooks.SnapshotFailed(op, serr)
	b.log.Warn("snapshot bridge step failed", Fields{"op": op, "err": serr})
}

package warmcache

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/jonboulle/clockwork"
)

func newTestFamily(t *testing.T, mutate func(*FamilyOptions[int])) *Family[int] {
	t.Helper()
	opts := FamilyOptions[int]{Prefix: "coin-count", TTL: testTTL, Clock: clockwork.NewFakeClock()}
	if mutate != nil {
		mutate(&opts)
	}
	f, err := NewFamily(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.Close)
	return f
}

func TestFamilyValidatesOptions(t *testing.T) {
	if _, err := NewFamily(FamilyOptions[int]{}); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("missing prefix err=%v", err)
	}
	if _, err := NewFamily(FamilyOptions[int]{Prefix: "p", MaxEntries: -1}); !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("negative max err=%v", err)
	}
}

func TestFamilyMembersAreIndependent(t *testing.T) {
	f := newTestFamily(t, nil)
	ctx := context.Background()

	var keys []string
	fetch := func(user string, n int) Fetcher[int] {
		return func(context.Context) (int, error) {
			keys = append(keys, f.Key(user))
			return n, nil
		}
	}

	for i := 0; i < 2; i++ {
		if v, err := f.GetOrFetch(ctx, "1", fetch("1", 10)); err != nil || v != 10 {
			t.Fatalf("user 1 v=%d err=%v", v, err)
		}
		if v, err := f.GetOrFetch(ctx, "2", fetch("2", 20)); err != nil || v != 20 {
			t.Fatalf("user 2 v=%d err=%v", v, err)
		}
	}
	if len(keys) != 2 || keys[0] != "coin-count:1" || keys[1] != "coin-count:2" {
		t.Fatalf("fetched keys=%v", keys)
	}

	if err := f.Put("1", 11); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.Get("1"); v != 11 {
		t.Fatalf("after Put v=%d", v)
	}
	f.Invalidate("2")
	if _, ok := f.Get("2"); ok {
		t.Fatal("user 2 survived Invalidate")
	}
	if _, ok := f.Get("3"); ok {
		t.Fatal("unknown user has a value")
	}
	f.Invalidate("3") // no member, no-op
}

func TestFamilyBoundsLiveMembers(t *testing.T) {
	hooks := &recHooks{}
	f := newTestFamily(t, func(o *FamilyOptions[int]) {
		o.MaxEntries = 4
		o.Hooks = hooks
	})

	const users = 64
	for i := 0; i < users; i++ {
		if err := f.Put(strconv.Itoa(i), i); err != nil {
			t.Fatal(err)
		}
	}
	f.members.Wait()

	waitFor(t, "family to shrink", func() bool { return f.Len() <= 4 })
	hooks.mu.Lock()
	evicted := hooks.evictions
	hooks.mu.Unlock()
	if evicted+f.Len() != users {
		t.Fatalf("evicted=%d live=%d; every member must be live or released exactly once", evicted, f.Len())
	}
}

func TestFamilyRecreatesReleasedMember(t *testing.T) {
	f := newTestFamily(t, nil)

	if err := f.Put("1", 5); err != nil {
		t.Fatal(err)
	}
	f.mu.Lock()
	m := f.live[f.Key("1")]
	f.mu.Unlock()
	f.release(m, false)

	if _, ok := f.Get("1"); ok {
		t.Fatal("released member still served")
	}
	var calls atomic.Int32
	v, err := f.GetOrFetch(context.Background(), "1", func(context.Context) (int, error) {
		calls.Add(1)
		return 6, nil
	})
	if err != nil || v != 6 || calls.Load() != 1 {
		t.Fatalf("v=%d err=%v calls=%d", v, err, calls.Load())
	}
}

func TestFamilyClose(t *testing.T) {
	f := newTestFamily(t, nil)
	if err := f.Put("1", 1); err != nil {
		t.Fatal(err)
	}
	f.Close()
	f.Close()

	if f.Len() != 0 {
		t.Fatalf("live=%d after Close", f.Len())
	}
	if err := f.Put("1", 2); !errors.Is(err, ErrClosed) {
		t.Fatalf("Put after Close err=%v", err)
	}
	if _, err := f.GetOrFetch(context.Background(), "1", func(context.Context) (int, error) { return 0, nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetOrFetch after Close err=%v", err)
	}
}

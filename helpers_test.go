package warmcache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory blobstore.Store with failure injection.
type memStore struct {
	mu     sync.Mutex
	m      map[string][]byte
	getErr error
	putErr error
	delErr error

	gets, puts, dels int
}

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, ns, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	b, ok := s.m[ns+"/"+key]
	return b, ok, nil
}

func (s *memStore) Put(_ context.Context, ns, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.m[ns+"/"+key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) Delete(_ context.Context, ns, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dels++
	if s.delErr != nil {
		return s.delErr
	}
	delete(s.m, ns+"/"+key)
	return nil
}

func (s *memStore) Close(context.Context) error { return nil }

func (s *memStore) has(ns, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[ns+"/"+key]
	return ok
}

// recHooks records hook events.
type recHooks struct {
	NopHooks
	mu        sync.Mutex
	failed    []string
	stale     []string
	expired   []string
	snapOps   []string
	snapErrs  []error
	skipped   []string
	evictions int
}

func (h *recHooks) FetchFailed(k string, _ error) {
	h.mu.Lock()
	h.failed = append(h.failed, k)
	h.mu.Unlock()
}

func (h *recHooks) StaleFetchDiscarded(k string) {
	h.mu.Lock()
	h.stale = append(h.stale, k)
	h.mu.Unlock()
}

func (h *recHooks) Expired(k string) {
	h.mu.Lock()
	h.expired = append(h.expired, k)
	h.mu.Unlock()
}

func (h *recHooks) SnapshotFailed(op string, err error) {
	h.mu.Lock()
	h.snapOps = append(h.snapOps, op)
	h.snapErrs = append(h.snapErrs, err)
	h.mu.Unlock()
}

func (h *recHooks) EntrySkipped(k string, _ error) {
	h.mu.Lock()
	h.skipped = append(h.skipped, k)
	h.mu.Unlock()
}

func (h *recHooks) FamilyEvicted(string, bool) {
	h.mu.Lock()
	h.evictions++
	h.mu.Unlock()
}

func (h *recHooks) counts() (failed, stale, expired int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.failed), len(h.stale), len(h.expired)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// Package redis stores blobs in Redis under blobstore.FlatKey(namespace, key).
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pennybot/warmcache/blobstore"
)

type Store struct {
	rdb         goredis.UniversalClient
	expiry      time.Duration
	closeClient bool
}

var _ blobstore.Store = (*Store)(nil)

type Config struct {
	Client goredis.UniversalClient
	// Expiry bounds how long an unconsumed snapshot lives; 0 keeps it until overwritten.
	Expiry      time.Duration
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, blobstore.ErrNilClient
	}
	return &Store{rdb: cfg.Client, expiry: cfg.Expiry, closeClient: cfg.CloseClient}, nil
}

func key(namespace, k string) string { return blobstore.FlatKey(namespace, k) }

func (s *Store) Get(ctx context.Context, namespace, k string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key(namespace, k)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Put(ctx context.Context, namespace, k string, value []byte) error {
	return s.rdb.Set(ctx, key(namespace, k), value, s.expiry).Err()
}

// Delete is idempotent: DEL of a missing key reports 0 removed, not an error.
func (s *Store) Delete(ctx context.Context, namespace, k string) error {
	return s.rdb.Del(ctx, key(namespace, k)).Err()
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

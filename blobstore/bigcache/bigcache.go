// Package bigcache keeps blobs in process memory. It does not survive a
// process restart; use it for tests, local runs, and hosts where the bridge
// only needs to survive an in-process reload.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/pennybot/warmcache/blobstore"
)

type Store struct {
	c *bc.BigCache
}

var _ blobstore.Store = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 1h
	CleanWindow        time.Duration
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(ctx context.Context, cfg Config) (*Store, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = time.Hour
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func key(namespace, k string) string { return blobstore.FlatKey(namespace, k) }

func (s *Store) Get(_ context.Context, namespace, k string) ([]byte, bool, error) {
	b, err := s.c.Get(key(namespace, k))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Put stores value; bigcache has no per-entry TTL, LifeWindow applies.
func (s *Store) Put(_ context.Context, namespace, k string, value []byte) error {
	return s.c.Set(key(namespace, k), value)
}

func (s *Store) Delete(_ context.Context, namespace, k string) error {
	err := s.c.Delete(key(namespace, k))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (s *Store) Close(context.Context) error { return s.c.Close() }

// Package penny wires the bot's remote-backed resources onto warmcache:
// auto-ping subscriptions, FAQ text, per-user coin counts and mirrored
// GitHub files.
//
// Reads go through the cache. Mutations go to the Remote Source, and the
// collection it answers with replaces the cached value; a failed mutation
// leaves the cache as it was.
package penny

import (
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pennybot/warmcache"
	"github.com/pennybot/warmcache/flight"
	"github.com/pennybot/warmcache/remote"
)

// Cache keys. They name snapshot entries, so they must stay stable.
const (
	KeyAutoPings = "auto-pings"
	KeyFAQs      = "faqs"
	PrefixCoins  = "coin-count"
	PrefixFiles  = "github-file"
)

var (
	// ErrNotFound is returned for an unknown expression, FAQ name, user or file.
	ErrNotFound = errors.New("penny: not found")
	// ErrInvalidArgument is returned before any remote call is made.
	ErrInvalidArgument = errors.New("penny: invalid argument")
)

// Config is shared by every service.
type Config struct {
	TTL          time.Duration // 0 => the resource's default
	FetchTimeout time.Duration
	Coalescer    *flight.Group
	Clock        clockwork.Clock
	Logger       warmcache.Logger
	Hooks        warmcache.Hooks

	MaxCoinUsers int64 // live coin-count caches; 0 => family default
	MaxFiles     int64 // live github-file caches; 0 => family default
}

func options[V any](cfg Config, key string, ttl time.Duration) warmcache.Options[V] {
	if cfg.TTL > 0 {
		ttl = cfg.TTL
	}
	return warmcache.Options[V]{
		Key:          key,
		TTL:          ttl,
		FetchTimeout: cfg.FetchTimeout,
		Coalescer:    cfg.Coalescer,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger,
		Hooks:        cfg.Hooks,
	}
}

// notFound maps a 404 from the Remote Source onto ErrNotFound.
func notFound(err error) error {
	var se *remote.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return errors.Join(ErrNotFound, err)
	}
	return err
}

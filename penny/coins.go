package penny

import (
	"context"
	"fmt"

	"github.com/pennybot/warmcache"
	"github.com/pennybot/warmcache/remote"
)

// CoinGrant is the mutation payload for Coins.
type CoinGrant struct {
	Amount int    `json:"amount"`
	From   string `json:"from,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Coins serves per-user coin totals through a cache family keyed
// "coin-count:<user>". Not snapshotted.
type Coins struct {
	family *warmcache.Family[int]
	src    remote.Source[int]
}

func NewCoins(src remote.Source[int], cfg Config) (*Coins, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil coins source", ErrInvalidArgument)
	}
	ttl := warmcache.TTLSubscriptions
	if cfg.TTL > 0 {
		ttl = cfg.TTL
	}
	family, err := warmcache.NewFamily(warmcache.FamilyOptions[int]{
		Prefix:       PrefixCoins,
		MaxEntries:   cfg.MaxCoinUsers,
		TTL:          ttl,
		FetchTimeout: cfg.FetchTimeout,
		Coalescer:    cfg.Coalescer,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger,
		Hooks:        cfg.Hooks,
	})
	if err != nil {
		return nil, err
	}
	return &Coins{family: family, src: src}, nil
}

func (c *Coins) Close() { c.family.Close() }

// Count returns user's total. Unknown users come back from the Remote
// Source as 404 and map to ErrNotFound.
func (c *Coins) Count(ctx context.Context, user string) (int, error) {
	if user == "" {
		return 0, fmt.Errorf("%w: user is required", ErrInvalidArgument)
	}
	n, err := c.family.GetOrFetch(ctx, user, func(ctx context.Context) (int, error) {
		return remote.FetchAll(ctx, c.src, c.family.Key(user))
	})
	if err != nil {
		return 0, notFound(err)
	}
	return n, nil
}

// Grant adds amount coins to user and returns the new total.
func (c *Coins) Grant(ctx context.Context, user string, g CoinGrant) (int, error) {
	if user == "" || g.Amount <= 0 {
		return 0, fmt.Errorf("%w: user and a positive amount are required", ErrInvalidArgument)
	}
	total, err := c.src.Do(ctx, remote.Request{Op: remote.OpAdd, Key: c.family.Key(user), Payload: g})
	if err != nil {
		return 0, err
	}
	if err := c.family.Put(user, total); err != nil {
		return 0, err
	}
	return total, nil
}

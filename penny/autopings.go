package penny

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pennybot/warmcache"
	"github.com/pennybot/warmcache/remote"
)

// Subscriptions maps a ping expression to the sorted IDs of the users
// subscribed to it.
type Subscriptions map[string][]string

// PingChange is the mutation payload for AutoPings.
type PingChange struct {
	User        string   `json:"user"`
	Expressions []string `json:"expressions"`
}

// AutoPings serves keyword subscriptions. Snapshot-eligible.
type AutoPings struct {
	cache warmcache.Cache[Subscriptions]
	src   remote.Source[Subscriptions]
}

func NewAutoPings(src remote.Source[Subscriptions], cfg Config) (*AutoPings, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil auto-pings source", ErrInvalidArgument)
	}
	cache, err := warmcache.New(options[Subscriptions](cfg, KeyAutoPings, warmcache.TTLSubscriptions))
	if err != nil {
		return nil, err
	}
	return &AutoPings{cache: cache, src: src}, nil
}

// Participant is the cache to register with a warmcache.Bridge.
func (a *AutoPings) Participant() warmcache.Participant { return a.cache }

func (a *AutoPings) Close() { a.cache.Close() }

// All returns a copy of every expression and its subscribers.
func (a *AutoPings) All(ctx context.Context) (Subscriptions, error) {
	subs, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	return subs.clone(), nil
}

// current returns the cached map itself; callers must not modify it.
func (a *AutoPings) current(ctx context.Context) (Subscriptions, error) {
	return a.cache.GetOrFetch(ctx, func(ctx context.Context) (Subscriptions, error) {
		subs, err := remote.FetchAll(ctx, a.src, KeyAutoPings)
		if err != nil {
			return nil, err
		}
		return normalize(subs), nil
	})
}

// Subscribers returns the users subscribed to expr.
func (a *AutoPings) Subscribers(ctx context.Context, expr string) ([]string, error) {
	subs, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	users, ok := subs[strings.ToLower(expr)]
	if !ok {
		return nil, fmt.Errorf("expression %q: %w", expr, ErrNotFound)
	}
	return slices.Clone(users), nil
}

// Match returns the sorted users with at least one expression contained in
// text, case-insensitively. author is never pinged for their own message.
func (a *AutoPings) Match(ctx context.Context, text, author string) ([]string, error) {
	subs, err := a.current(ctx)
	if err != nil {
		return nil, err
	}
	text = strings.ToLower(text)
	var users []string
	for expr, ids := range subs {
		if expr == "" || !strings.Contains(text, expr) {
			continue
		}
		for _, id := range ids {
			if id != author {
				users = append(users, id)
			}
		}
	}
	slices.Sort(users)
	return slices.Compact(users), nil
}

// Add subscribes user to exprs.
func (a *AutoPings) Add(ctx context.Context, user string, exprs []string) (Subscriptions, error) {
	return a.mutate(ctx, remote.OpAdd, user, exprs)
}

// Remove unsubscribes user from exprs.
func (a *AutoPings) Remove(ctx context.Context, user string, exprs []string) (Subscriptions, error) {
	return a.mutate(ctx, remote.OpRemove, user, exprs)
}

func (a *AutoPings) mutate(ctx context.Context, op remote.Op, user string, exprs []string) (Subscriptions, error) {
	if user == "" || len(exprs) == 0 {
		return nil, fmt.Errorf("%w: user and expressions are required", ErrInvalidArgument)
	}
	change := PingChange{User: user, Expressions: make([]string, 0, len(exprs))}
	for _, e := range exprs {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			change.Expressions = append(change.Expressions, e)
		}
	}
	if len(change.Expressions) == 0 {
		return nil, fmt.Errorf("%w: blank expressions", ErrInvalidArgument)
	}

	subs, err := a.src.Do(ctx, remote.Request{Op: op, Key: KeyAutoPings, Payload: change})
	if err != nil {
		return nil, err
	}
	subs = normalize(subs)
	a.cache.Put(subs)
	return subs.clone(), nil
}

func (s Subscriptions) clone() Subscriptions {
	out := make(Subscriptions, len(s))
	for expr, ids := range s {
		out[expr] = slices.Clone(ids)
	}
	return out
}

// normalize lowercases expressions and sorts/dedupes subscriber lists so the
// cached value compares and snapshots deterministically.
func normalize(in Subscriptions) Subscriptions {
	out := make(Subscriptions, len(in))
	for expr, ids := range in {
		key := strings.ToLower(expr)
		merged := append(slices.Clone(out[key]), ids...)
		slices.Sort(merged)
		out[key] = slices.Compact(merged)
	}
	return out
}

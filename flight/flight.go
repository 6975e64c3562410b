// Package flight coalesces concurrent operations that share a key.
//
// At most one operation per key is in flight. Callers that arrive while it
// runs attach to it and receive its value or its error. Once it completes the
// key is forgotten, so the next caller starts a brand-new execution; results
// are never cached here.
package flight

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group is safe for concurrent use. The zero value is ready to use.
// A Group is untyped: caches of different value types may share one.
type Group struct {
	g singleflight.Group
}

// New returns an empty Group.
func New() *Group { return &Group{} }

// Do runs op for key unless an execution is already in flight, in which case
// it waits for that execution instead. shared reports whether the result was
// handed to more than one caller.
//
// op runs on a context detached from ctx's cancellation so that the first
// caller giving up does not fail everyone attached to the ticket. Each caller
// stops waiting when its own ctx is done and gets ctx.Err(); op keeps running
// for the rest.
func Do[V any](ctx context.Context, g *Group, key string, op func(context.Context) (V, error)) (v V, shared bool, err error) {
	detached := context.WithoutCancel(ctx)
	ch := g.g.DoChan(key, func() (any, error) {
		return op(detached)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return v, res.Shared, res.Err
		}
		v, _ = res.Val.(V) //nolint:errcheck // op always returns V
		return v, res.Shared, nil
	case <-ctx.Done():
		return v, false, ctx.Err()
	}
}

// Forget drops the ticket for key. Callers already attached still get the
// in-flight result; the next Do for key starts a fresh execution.
func (g *Group) Forget(key string) { g.g.Forget(key) }

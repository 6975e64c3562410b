// Package remote talks to the Remote Source: the backend that owns a cached
// resource. Every call returns either the full resource collection or an
// error; mutations answer with the collection as it is after the change.
package remote

import (
	"context"
	"fmt"
)

// Op discriminates the request kinds a Remote Source understands.
type Op string

const (
	OpFetchAll Op = "fetch-all"
	OpAdd      Op = "add"
	OpRemove   Op = "remove"
)

// Request is one call to a Remote Source. Payload is only sent for
// mutations and is encoded as JSON.
type Request struct {
	Op      Op     `json:"op"`
	Key     string `json:"key,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Source is a Remote Source for a resource of type V.
type Source[V any] interface {
	Do(ctx context.Context, req Request) (V, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[V any] func(ctx context.Context, req Request) (V, error)

func (f SourceFunc[V]) Do(ctx context.Context, req Request) (V, error) { return f(ctx, req) }

// FetchAll asks src for the whole collection stored under key.
func FetchAll[V any](ctx context.Context, src Source[V], key string) (V, error) {
	return src.Do(ctx, Request{Op: OpFetchAll, Key: key})
}

// StatusError is a structured failure reported by the Remote Source.
type StatusError struct {
	Code int
	Op   Op
	Body string // truncated
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("remote %s: status %d: %s", e.Op, e.Code, e.Body)
}

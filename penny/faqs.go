package penny

import (
	"context"
	"fmt"
	"maps"

	"github.com/pennybot/warmcache"
	c "github.com/pennybot/warmcache/codec"
	"github.com/pennybot/warmcache/remote"
)

// Texts maps a FAQ name to its text.
type Texts map[string]string

// FAQ is the mutation payload for FAQs. Text is empty on remove.
type FAQ struct {
	Name string `json:"name" msgpack:"name"`
	Text string `json:"text,omitempty" msgpack:"text,omitempty"`
}

// FAQs serves help text. Snapshot-eligible; entries are msgpack-encoded.
type FAQs struct {
	cache warmcache.Cache[Texts]
	src   remote.Source[Texts]
}

func NewFAQs(src remote.Source[Texts], cfg Config) (*FAQs, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil faqs source", ErrInvalidArgument)
	}
	opts := options[Texts](cfg, KeyFAQs, warmcache.TTLText)
	opts.Codec = c.Msgpack[Texts]{}
	cache, err := warmcache.New(opts)
	if err != nil {
		return nil, err
	}
	return &FAQs{cache: cache, src: src}, nil
}

// Participant is the cache to register with a warmcache.Bridge.
func (f *FAQs) Participant() warmcache.Participant { return f.cache }

func (f *FAQs) Close() { f.cache.Close() }

// All returns a copy of every FAQ.
func (f *FAQs) All(ctx context.Context) (Texts, error) {
	all, err := f.current(ctx)
	if err != nil {
		return nil, err
	}
	return maps.Clone(all), nil
}

// current returns the cached map itself; callers must not modify it.
func (f *FAQs) current(ctx context.Context) (Texts, error) {
	return f.cache.GetOrFetch(ctx, func(ctx context.Context) (Texts, error) {
		return remote.FetchAll(ctx, f.src, KeyFAQs)
	})
}

func (f *FAQs) Get(ctx context.Context, name string) (string, error) {
	all, err := f.current(ctx)
	if err != nil {
		return "", err
	}
	text, ok := all[name]
	if !ok {
		return "", fmt.Errorf("faq %q: %w", name, ErrNotFound)
	}
	return text, nil
}

// Set creates or replaces name.
func (f *FAQs) Set(ctx context.Context, name, text string) error {
	if name == "" || text == "" {
		return fmt.Errorf("%w: name and text are required", ErrInvalidArgument)
	}
	return f.mutate(ctx, remote.OpAdd, FAQ{Name: name, Text: text})
}

// Remove deletes name. The Remote Source answers 404 for unknown names.
func (f *FAQs) Remove(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}
	return f.mutate(ctx, remote.OpRemove, FAQ{Name: name})
}

func (f *FAQs) mutate(ctx context.Context, op remote.Op, faq FAQ) error {
	all, err := f.src.Do(ctx, remote.Request{Op: op, Key: KeyFAQs, Payload: faq})
	if err != nil {
		return notFound(err)
	}
	f.cache.Put(maps.Clone(all))
	return nil
}

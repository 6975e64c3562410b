package penny

import (
	"context"
	"fmt"
	"strings"

	"github.com/pennybot/warmcache"
	c "github.com/pennybot/warmcache/codec"
	"github.com/pennybot/warmcache/remote"
)

// Files serves mirrored GitHub files (Swift Evolution proposals and the
// like) through a cache family keyed "github-file:<path>". Read-only; not
// snapshotted.
type Files struct {
	family *warmcache.Family[string]
	src    remote.Source[string]
}

func NewFiles(src remote.Source[string], cfg Config) (*Files, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil files source", ErrInvalidArgument)
	}
	ttl := warmcache.TTLText
	if cfg.TTL > 0 {
		ttl = cfg.TTL
	}
	family, err := warmcache.NewFamily(warmcache.FamilyOptions[string]{
		Prefix:       PrefixFiles,
		MaxEntries:   cfg.MaxFiles,
		TTL:          ttl,
		Codec:        c.String{},
		FetchTimeout: cfg.FetchTimeout,
		Coalescer:    cfg.Coalescer,
		Clock:        cfg.Clock,
		Logger:       cfg.Logger,
		Hooks:        cfg.Hooks,
	})
	if err != nil {
		return nil, err
	}
	return &Files{family: family, src: src}, nil
}

func (f *Files) Close() { f.family.Close() }

// Get returns the text of the file at path, e.g.
// "swiftlang/swift-evolution/main/proposals/0296-async-await.md".
// A leading "/" is ignored. Missing files map to ErrNotFound.
func (f *Files) Get(ctx context.Context, path string) (string, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "", fmt.Errorf("%w: path is required", ErrInvalidArgument)
	}
	text, err := f.family.GetOrFetch(ctx, path, func(ctx context.Context) (string, error) {
		return remote.FetchAll(ctx, f.src, f.family.Key(path))
	})
	if err != nil {
		return "", notFound(err)
	}
	return text, nil
}

// Forget drops the cached copy of path, e.g. after a push to the mirrored
// repository. The next Get fetches it again.
func (f *Files) Forget(path string) {
	f.family.Invalidate(strings.TrimPrefix(path, "/"))
}

// Package file stores blobs as files under a root directory:
// <root>/<namespace>/<key>. Writes are atomic, so a reader never sees a
// partial envelope even if the writer is killed mid-Put.
package file

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/pennybot/warmcache/blobstore"
)

// Store implements blobstore.Store on the local filesystem.
type Store struct {
	root string
}

var _ blobstore.Store = (*Store)(nil)

// New creates root if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("file store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// path escapes both components so that keys cannot climb out of root.
func (s *Store) path(namespace, key string) string {
	return filepath.Join(s.root, escape(namespace), escape(key))
}

// escape maps every part to a distinct, plain file name. Names that would be
// special ("", ".", "..") or that already start with "_" get a "_" prefix.
func escape(part string) string {
	e := url.PathEscape(part)
	if e == "" || e == "." || e == ".." || strings.HasPrefix(e, "_") {
		return "_" + strings.ReplaceAll(e, ".", "%2E")
	}
	return e
}

func (s *Store) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	b, err := os.ReadFile(s.path(namespace, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Store) Put(_ context.Context, namespace, key string, value []byte) error {
	p := s.path(namespace, key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(p, bytes.NewReader(value))
}

func (s *Store) Delete(_ context.Context, namespace, key string) error {
	err := os.Remove(s.path(namespace, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) Close(context.Context) error { return nil }

package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "warmcache", "snapshot", []byte("first")))
	require.NoError(t, s.Put(ctx, "warmcache", "snapshot", []byte("second")))
	got, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, s.Delete(ctx, "warmcache", "snapshot"))
	require.NoError(t, s.Delete(ctx, "warmcache", "snapshot"))
	_, ok, err = s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreEscapesKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "..", "../../escape", []byte("v")))
	got, ok, err := s.Get(ctx, "..", "../../escape")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape"))
	assert.True(t, os.IsNotExist(err), "key must stay under root")
}

func TestNewRequiresRoot(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestEscape(t *testing.T) {
	tests := map[string]string{
		"snapshot":   "snapshot",
		"a/b":        "a%2Fb",
		"..":         "_%2E%2E",
		".":          "_%2E",
		"":           "_",
		"_":          "__",
		"_a.b":       "__a%2Eb",
		"coin-count": "coin-count",
	}
	for in, want := range tests {
		assert.Equal(t, want, escape(in), "escape(%q)", in)
	}
}

func TestStoreKeepsEmptyAndUnderscoreApart(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "warmcache", "", []byte("empty")))
	require.NoError(t, s.Put(ctx, "warmcache", "_", []byte("underscore")))

	got, ok, err := s.Get(ctx, "warmcache", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("empty"), got)

	got, ok, err = s.Get(ctx, "warmcache", "_")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("underscore"), got)
}

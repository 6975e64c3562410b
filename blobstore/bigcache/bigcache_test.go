package bigcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{})
	require.NoError(t, err)
	defer s.Close(ctx)

	_, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "warmcache", "snapshot", []byte("v1")))
	require.NoError(t, s.Put(ctx, "other", "snapshot", []byte("v2")))

	got, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	got, ok, err = s.Get(ctx, "other", "snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), got)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{})
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Delete(ctx, "ns", "missing"))
	require.NoError(t, s.Put(ctx, "ns", "k", []byte("v")))
	require.NoError(t, s.Delete(ctx, "ns", "k"))
	require.NoError(t, s.Delete(ctx, "ns", "k"))

	_, ok, err := s.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreNamespaceWithColon(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{})
	require.NoError(t, err)
	defer s.Close(ctx)

	require.NoError(t, s.Put(ctx, "a:b", "c", []byte("first")))
	require.NoError(t, s.Put(ctx, "a", "b:c", []byte("second")))

	got, ok, err := s.Get(ctx, "a:b", "c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), got)
}

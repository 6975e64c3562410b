package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennybot/warmcache/blobstore"
)

// fakeTable is an in-memory API keyed by namespace/key.
type fakeTable struct {
	items   map[string]map[string]types.AttributeValue
	lastPut *dynamodb.PutItemInput
	getErr  error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func fakeKey(k map[string]types.AttributeValue) string {
	ns := k["namespace"].(*types.AttributeValueMemberS).Value
	key := k["key"].(*types.AttributeValueMemberS).Value
	return ns + "/" + key
}

func (f *fakeTable) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.items[fakeKey(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPut = in
	f.items[fakeKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	delete(f.items, fakeKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		client  API
		config  Config
		wantErr bool
	}{
		{name: "nil client returns error", client: nil, config: Config{Table: "t"}, wantErr: true},
		{name: "missing table returns error", client: newFakeTable(), config: Config{}, wantErr: true},
		{name: "valid", client: newFakeTable(), config: Config{Table: "t", Expiry: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.client, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "t", s.table)
		})
	}

	_, err := New(nil, Config{Table: "t"})
	assert.ErrorIs(t, err, blobstore.ErrNilClient)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	s, err := New(table, Config{Table: "snapshots", Expiry: time.Hour})
	require.NoError(t, err)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	_, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "warmcache", "snapshot", []byte("envelope")))
	assert.Equal(t, aws.String("snapshots"), table.lastPut.TableName)
	exp, ok := table.lastPut.Item["expires_at"].(*types.AttributeValueMemberN)
	require.True(t, ok, "expires_at should be a number attribute")
	assert.Equal(t, "1704070800", exp.Value)

	got, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("envelope"), got)

	require.NoError(t, s.Delete(ctx, "warmcache", "snapshot"))
	_, ok, err = s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreOmitsExpiryWhenUnset(t *testing.T) {
	table := newFakeTable()
	s, err := New(table, Config{Table: "snapshots"})
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "ns", "k", []byte("v")))
	_, present := table.lastPut.Item["expires_at"]
	assert.False(t, present)
}

func TestStoreGetError(t *testing.T) {
	table := newFakeTable()
	table.getErr = errors.New("throttled")
	s, err := New(table, Config{Table: "snapshots"})
	require.NoError(t, err)
	_, ok, err := s.Get(context.Background(), "ns", "k")
	assert.False(t, ok)
	assert.EqualError(t, err, "throttled")
}

func TestStoreGetSkipsExpiredItem(t *testing.T) {
	ctx := context.Background()
	s, err := New(newFakeTable(), Config{Table: "snapshots", Expiry: time.Hour})
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "warmcache", "snapshot", []byte("envelope")))

	now = now.Add(59 * time.Minute)
	_, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.True(t, ok, "item inside its expiry should be returned")

	now = now.Add(time.Minute)
	got, ok, err := s.Get(ctx, "warmcache", "snapshot")
	require.NoError(t, err)
	assert.False(t, ok, "expired item not yet reaped by TTL must be a miss")
	assert.Nil(t, got)
}

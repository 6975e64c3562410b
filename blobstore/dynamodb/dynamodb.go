// Package dynamodb stores blobs in a DynamoDB table with hash key
// "namespace" and range key "key".
package dynamodb

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/pennybot/warmcache/blobstore"
)

// API is the subset of *dynamodb.Client the store uses.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// Config defines the configuration options for the DynamoDB store.
type Config struct {
	Table string

	// Expiry sets the expires_at attribute so DynamoDB TTL can reap an
	// envelope nobody consumed. 0 omits the attribute.
	Expiry time.Duration
}

// Store implements blobstore.Store on DynamoDB.
type Store struct {
	client API
	table  string
	expiry time.Duration
	now    func() time.Time
}

var _ blobstore.Store = (*Store)(nil)

type item struct {
	Namespace string `dynamodbav:"namespace"`
	Key       string `dynamodbav:"key"`
	Payload   []byte `dynamodbav:"payload"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

// New validates the configuration and returns a Store.
func New(client API, config Config) (*Store, error) {
	if client == nil {
		return nil, blobstore.ErrNilClient
	}
	if config.Table == "" {
		return nil, errors.New("dynamodb store: table is required")
	}
	return &Store{
		client: client,
		table:  config.Table,
		expiry: config.Expiry,
		now:    time.Now,
	}, nil
}

func itemKey(namespace, k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"namespace": &types.AttributeValueMemberS{Value: namespace},
		"key":       &types.AttributeValueMemberS{Value: k},
	}
}

func (s *Store) Get(ctx context.Context, namespace, k string) ([]byte, bool, error) {
	output, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            itemKey(namespace, k),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, err
	}
	if output.Item == nil {
		return nil, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(output.Item, &it); err != nil {
		return nil, false, err
	}
	// TTL deletion is lazy; an expired item may still be returned.
	if it.ExpiresAt != 0 && it.ExpiresAt <= s.now().Unix() {
		return nil, false, nil
	}
	return it.Payload, true, nil
}

func (s *Store) Put(ctx context.Context, namespace, k string, value []byte) error {
	now := s.now().UTC()
	it := item{
		Namespace: namespace,
		Key:       k,
		Payload:   value,
		UpdatedAt: now.Unix(),
	}
	if s.expiry > 0 {
		it.ExpiresAt = now.Add(s.expiry).Unix()
	}

	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	return err
}

// Delete is idempotent; DynamoDB reports success for absent items.
func (s *Store) Delete(ctx context.Context, namespace, k string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(namespace, k),
	})
	return err
}

// Close is a no-op; the SDK client has nothing to release.
func (s *Store) Close(context.Context) error { return nil }

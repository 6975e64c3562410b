// Package postgres stores blobs in a PostgreSQL table, one row per
// (namespace, key).
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/pennybot/warmcache/blobstore"
)

// ErrPingFailed is returned by New if the initial ping fails.
var ErrPingFailed = errors.New("ping returned error")

var (
	//go:embed create_table.sql
	queryCreateTable string
	//go:embed fetch_blob.sql
	queryFetchBlob string
	//go:embed upsert_blob.sql
	queryUpsertBlob string
	//go:embed delete_blob.sql
	queryDeleteBlob string
)

// Config defines the configuration options for the PostgreSQL store.
type Config struct {
	// Expiry bounds how long a row is readable. 0 means rows never expire.
	Expiry time.Duration

	// CloseDB closes the *sql.DB on Close.
	CloseDB bool
}

// Store implements blobstore.Store on PostgreSQL.
type Store struct {
	db      *sql.DB
	expiry  time.Duration
	closeDB bool

	now func() time.Time
}

var _ blobstore.Store = (*Store)(nil)

// New verifies the connection and creates the table if needed.
func New(ctx context.Context, db *sql.DB, config *Config) (*Store, error) {
	if db == nil {
		return nil, blobstore.ErrNilClient
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(ErrPingFailed, err)
	}
	if _, err := db.ExecContext(ctx, queryCreateTable); err != nil {
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	if config != nil {
		s.expiry = config.Expiry
		s.closeDB = config.CloseDB
	}
	return s, nil
}

func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, queryFetchBlob, namespace, key, s.now().UTC()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *Store) Put(ctx context.Context, namespace, key string, value []byte) error {
	now := s.now().UTC()
	var expires sql.NullTime
	if s.expiry > 0 {
		expires = sql.NullTime{Time: now.Add(s.expiry), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, queryUpsertBlob, namespace, key, value, now, expires)
	return err
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, queryDeleteBlob, namespace, key)
	return err
}

func (s *Store) Close(context.Context) error {
	if s.closeDB {
		return s.db.Close()
	}
	return nil
}

// Package boltkv is a kvstore.Store backed by a bbolt file
package boltkv

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/types"
)

const bucketName = "framehub"

// Store keeps every key in a single bucket
type Store struct {
	db *bbolt.DB
}

var _ kvstore.Store = (*Store)(nil)

// Open opens or creates the database file at path
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, types.NewError(types.ErrCodeInvalidArgument, "storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, types.WrapError(types.ErrCodeUnavailable, "open storage db", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, types.WrapError(types.ErrCodeInternal, "create bucket", err)
	}
	return &Store{db: db}, nil
}

// Get returns a copy of the value stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return types.NewError(types.ErrCodeInternal, "bucket is missing")
		}
		v := b.Get([]byte(key))
		if v == nil {
			return kvstore.ErrNotFound
		}
		// bbolt values are only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "key is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return types.NewError(types.ErrCodeInternal, "bucket is missing")
		}
		return b.Put([]byte(key), value)
	})
}

// Close releases the database file
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

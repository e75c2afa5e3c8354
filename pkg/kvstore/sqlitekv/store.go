// Package sqlitekv is a kvstore.Store backed by a SQLite table
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/billm/framehub/pkg/kvstore"
	"github.com/billm/framehub/pkg/types"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store keeps values in the kv table
type Store struct {
	db *sql.DB
}

var _ kvstore.Store = (*Store)(nil)

// Open opens or creates the database at path and ensures the schema
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, types.NewError(types.ErrCodeInvalidArgument, "storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeUnavailable, "open sqlite db", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, types.WrapError(types.ErrCodeUnavailable, "ping sqlite db", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, types.WrapError(types.ErrCodeInternal, "create kv table", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, types.WrapError(types.ErrCodeUnavailable, "get "+key, err)
	}
	return value, nil
}

// Set upserts value under key
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "key is required")
	}
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli(),
	)
	if err != nil {
		return types.WrapError(types.ErrCodeUnavailable, "set "+key, err)
	}
	return nil
}

// Close releases the database handle
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

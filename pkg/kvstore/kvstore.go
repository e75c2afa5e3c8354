// Package kvstore defines the persisted key-value store the hub keeps UI
// state and the session in. Implementations live in subpackages.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/billm/framehub/pkg/types"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = types.NewError(types.ErrCodeNotFound, "key not found")

// Store is a get/set store of opaque values
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// IsNotFound reports whether err means the key is absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || types.IsErrCode(err, types.ErrCodeNotFound)
}

// GetJSON reads key and decodes it into out
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return types.WrapError(types.ErrCodeInvalid, "decode "+key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return types.WrapError(types.ErrCodeInvalidArgument, "encode "+key, err)
	}
	return s.Set(ctx, key, data)
}

// Memory is a Store that lives only as long as the process
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, types.NewError(types.ErrCodeUnavailable, "store is closed")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return types.NewError(types.ErrCodeUnavailable, "store is closed")
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

package session

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by a [Backend] when a key holds no value.
var ErrNotFound = errors.New("session key not found")

// ErrBackendUnavailable wraps every I/O failure reported by a [Backend].
var ErrBackendUnavailable = errors.New("session backend unavailable")

// Backend is the key/value persistence a [Store] writes through to.
//
// PutAll and DeleteAll must apply all keys or none where the backend can offer that;
// DeleteAll must succeed when the keys are already absent.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PutAll(ctx context.Context, entries map[string][]byte) error
	DeleteAll(ctx context.Context, keys ...string) error
	Close() error
}

// MemoryBackend keeps entries in process memory. It does not survive a restart and is
// meant for tests and ephemeral sessions.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryBackend returns an empty [MemoryBackend].
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]byte)}
}

// Get returns a copy of the value at key, or [ErrNotFound].
func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// PutAll stores copies of all entries under one lock.
func (m *MemoryBackend) PutAll(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range entries {
		m.entries[k] = append([]byte(nil), v...)
	}
	return nil
}

// DeleteAll removes keys; absent keys are ignored.
func (m *MemoryBackend) DeleteAll(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }

// Package memory implements the register backend in process memory. It is
// meant for tests and single-process deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Backend implements ports.RegisterBackend with in-memory maps.
// Safe for concurrent use.
type Backend struct {
	mu     sync.Mutex
	data   map[string][]byte
	expiry map[string]time.Time // lock key -> expiration
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		data:   make(map[string][]byte),
		expiry: make(map[string]time.Time),
	}
}

// Lock performs a set-if-absent on the lock entry, honoring expired holders.
func (b *Backend) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if exp, held := b.expiry[key]; held && time.Now().Before(exp) {
		return false, nil
	}

	b.expiry[key] = time.Now().Add(ttl)
	return true, nil
}

// Unlock releases the lock entry.
func (b *Backend) Unlock(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.expiry, key)
	return nil
}

// Get returns the register contents, or an empty map when absent. Data goes
// through a JSON round trip so callers get the same shapes a remote backend
// would hand back.
func (b *Backend) Get(ctx context.Context, key string) (map[string]any, error) {
	b.mu.Lock()
	raw, ok := b.data[key]
	b.mu.Unlock()

	if !ok {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding register %q: %w", key, err)
	}
	return out, nil
}

// Set replaces the register contents.
func (b *Backend) Set(ctx context.Context, key string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding register %q: %w", key, err)
	}

	b.mu.Lock()
	b.data[key] = raw
	b.mu.Unlock()
	return nil
}

// Package redis implements the register backend on Redis, providing
// cross-process mutual exclusion through SET NX PX locks.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only when it still carries our token, so a
// holder whose lock expired cannot release somebody else's lock.
const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// Backend implements ports.RegisterBackend using Redis.
type Backend struct {
	client *backend.Client
	prefix string
	ttl    time.Duration // content expiry, 0 = keep forever

	mu     sync.Mutex
	tokens map[string]string // key -> lock token we hold
}

// Option configures the backend.
type Option func(*Backend)

// WithPrefix sets the key namespace. Defaults to "register::".
func WithPrefix(prefix string) Option {
	return func(b *Backend) { b.prefix = prefix }
}

// WithContentTTL sets an expiration on register contents, implementing the
// storage policy under which stale conversations disappear.
func WithContentTTL(ttl time.Duration) Option {
	return func(b *Backend) { b.ttl = ttl }
}

// New creates a backend with its own client.
func New(addr, password string, db int, opts ...Option) *Backend {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewFromClient creates a backend from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		prefix: "register::",
		tokens: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) lockKey(key string) string {
	return b.prefix + "lock:" + key
}

func (b *Backend) contentKey(key string) string {
	return b.prefix + "content:" + key
}

// Lock attempts SET NX PX on the lock key with a random token.
func (b *Backend) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := b.client.SetNX(ctx, b.lockKey(key), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock %q: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	b.mu.Lock()
	b.tokens[key] = token
	b.mu.Unlock()
	return true, nil
}

// Unlock releases the lock if we still hold it.
func (b *Backend) Unlock(ctx context.Context, key string) error {
	b.mu.Lock()
	token, held := b.tokens[key]
	delete(b.tokens, key)
	b.mu.Unlock()

	if !held {
		return nil
	}

	if err := b.client.Eval(ctx, unlockScript, []string{b.lockKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("redis unlock %q: %w", key, err)
	}
	return nil
}

// Get fetches and decodes the register contents, defaulting to an empty map.
func (b *Backend) Get(ctx context.Context, key string) (map[string]any, error) {
	val, err := b.client.Get(ctx, b.contentKey(key)).Result()
	if err == backend.Nil {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, fmt.Errorf("decoding register %q: %w", key, err)
	}
	return out, nil
}

// Set encodes and stores the register contents.
func (b *Backend) Set(ctx context.Context, key string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding register %q: %w", key, err)
	}

	if err := b.client.Set(ctx, b.contentKey(key), raw, b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

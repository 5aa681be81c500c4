// Package ports defines the boundary interfaces between the dispatch core
// and its infrastructure adapters.
package ports

import (
	"context"
	"time"
)

// RegisterBackend is the storage contract behind the register store. It is
// implementable against any key-value store offering conditional set and
// expiry; Redis is one backend, not the only valid one.
//
// The TTL on Lock covers crash recovery: a crashed holder's lock self-expires
// instead of wedging the conversation forever.
type RegisterBackend interface {
	// Lock attempts a conditional set-if-absent on the lock key. It returns
	// true when the lock was acquired, false when somebody else holds it.
	// It never blocks waiting for the lock; polling is the caller's job.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock releases the lock key. Releasing a lock that expired or was
	// never held is not an error.
	Unlock(ctx context.Context, key string) error

	// Get returns the register contents for the key. A missing value is an
	// empty map, not an error.
	Get(ctx context.Context, key string) (map[string]any, error)

	// Set replaces the register contents for the key.
	Set(ctx context.Context, key string, data map[string]any) error
}

// Package register implements the per-conversation register store: exclusive,
// atomic read-modify-write access to conversation state, across goroutines
// and across processes sharing the same backend.
package register

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ardelane/parley/internal/logging"
	"github.com/ardelane/parley/pkg/domain"
	"github.com/ardelane/parley/pkg/ports"
)

// Store coordinates scoped register access over a backend. At most one
// in-flight dispatch cycle holds a given conversation's lock at a time, even
// when several processes share the backend.
type Store struct {
	backend ports.RegisterBackend

	lockTTL      time.Duration
	pollInterval time.Duration
	maxAttempts  int

	logger     *slog.Logger
	onLockWait func(ctx context.Context, conversation string, wait time.Duration)
}

// Option configures the Store.
type Option func(*Store)

// WithLockTTL sets the lock time-to-live. A crashed holder's lock self-expires
// after this duration.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Store) { s.lockTTL = ttl }
}

// WithPollInterval sets the sleep between lock acquisition attempts.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.pollInterval = d }
}

// WithMaxAttempts bounds the total lock wait. Exhaustion is a fatal timeout,
// not infinite blocking.
func WithMaxAttempts(n int) Option {
	return func(s *Store) { s.maxAttempts = n }
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithLockWaitHook registers a callback fired after each successful
// acquisition with the time spent waiting.
func WithLockWaitHook(fn func(ctx context.Context, conversation string, wait time.Duration)) Option {
	return func(s *Store) { s.onLockWait = fn }
}

// New creates a register store over a backend.
func New(backend ports.RegisterBackend, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		lockTTL:      60 * time.Second,
		pollInterval: time.Second,
		maxAttempts:  1000,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// With runs fn while holding the conversation's exclusive lock. It reads the
// current register, invokes fn, writes the staged replacement (if any) back,
// and releases the lock on every exit path, fn error included.
func (s *Store) With(ctx context.Context, conversation string, fn func(context.Context, *domain.Register) error) error {
	start := time.Now()
	if err := s.acquire(ctx, conversation); err != nil {
		return err
	}
	if s.onLockWait != nil {
		s.onLockWait(ctx, conversation, time.Since(start))
	}

	defer func() {
		if err := s.backend.Unlock(ctx, conversation); err != nil {
			s.logger.Warn("failed to release conversation lock (will expire via TTL)",
				"conversation", conversation,
				"err", err,
			)
		}
	}()

	data, err := s.backend.Get(ctx, conversation)
	if err != nil {
		return fmt.Errorf("reading register %q: %w", conversation, err)
	}

	reg := domain.NewRegister(data)
	fnErr := fn(ctx, reg)

	// The replacement is committed even when fn failed after staging it;
	// whoever staged it decided the data was worth keeping.
	if replacement, ok := reg.Replacement(); ok {
		if err := s.backend.Set(ctx, conversation, replacement); err != nil {
			return errors.Join(fnErr, fmt.Errorf("writing register %q: %w", conversation, err))
		}
	}

	return fnErr
}

// acquire polls the backend's conditional set until the lock is obtained,
// the context is canceled, or the attempt budget runs out.
func (s *Store) acquire(ctx context.Context, conversation string) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		ok, err := s.backend.Lock(ctx, conversation, s.lockTTL)
		if err != nil {
			return fmt.Errorf("acquiring lock for %q: %w", conversation, err)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("lock for %q after %d attempts: %w",
		conversation, s.maxAttempts, domain.ErrLockTimeout)
}

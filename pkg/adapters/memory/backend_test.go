package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardelane/parley/pkg/adapters/memory"
	"github.com/ardelane/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_Contract(t *testing.T) {
	ports.RunBackendContract(t, memory.NewBackend())
}

func TestMemoryBackend_LockExpires(t *testing.T) {
	b := memory.NewBackend()
	ctx := context.Background()

	ok, err := b.Lock(ctx, "conv", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	// Held lock blocks a second taker.
	ok, err = b.Lock(ctx, "conv", 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	// Expired lock behaves as released, covering crash recovery.
	time.Sleep(20 * time.Millisecond)
	ok, err = b.Lock(ctx, "conv", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryBackend_GetIsolation(t *testing.T) {
	b := memory.NewBackend()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "conv", map[string]any{"state": "a"}))

	first, err := b.Get(ctx, "conv")
	require.NoError(t, err)
	first["state"] = "mutated"

	second, err := b.Get(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, "a", second["state"], "callers must not share map instances")
}

package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBackendContract verifies that a RegisterBackend honors the behavior the
// register store relies on. Every backend's test suite should call it.
func RunBackendContract(t *testing.T, b RegisterBackend) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMissingReturnsEmptyMap", func(t *testing.T) {
		data, err := b.Get(ctx, "contract-missing")
		require.NoError(t, err)
		require.NotNil(t, data)
		assert.Empty(t, data)
	})

	t.Run("SetGetRoundTrip", func(t *testing.T) {
		in := map[string]any{
			"state": "app.states.Hello",
			"transition": map[string]any{
				"choices": map[string]any{
					"yes": map[string]any{"text": "Yes", "intent": ""},
				},
			},
		}
		require.NoError(t, b.Set(ctx, "contract-rt", in))

		out, err := b.Get(ctx, "contract-rt")
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("LockIsExclusive", func(t *testing.T) {
		ok, err := b.Lock(ctx, "contract-lock", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = b.Lock(ctx, "contract-lock", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "second Lock on a held key must fail")

		require.NoError(t, b.Unlock(ctx, "contract-lock"))

		ok, err = b.Lock(ctx, "contract-lock", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "Lock must succeed again after Unlock")
		require.NoError(t, b.Unlock(ctx, "contract-lock"))
	})

	t.Run("LocksAreIndependentPerKey", func(t *testing.T) {
		ok, err := b.Lock(ctx, "contract-a", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		defer b.Unlock(ctx, "contract-a")

		ok, err = b.Lock(ctx, "contract-b", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, b.Unlock(ctx, "contract-b"))
	})

	t.Run("UnlockUnheldIsNoError", func(t *testing.T) {
		assert.NoError(t, b.Unlock(ctx, "contract-never-held"))
	})
}

package sqlitestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_State(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key reads as empty", func(t *testing.T) {
		store := setupTestStore(t)

		value, err := store.GetState(ctx, "device_id")
		require.NoError(t, err)
		assert.Empty(t, value)
	})

	t.Run("set then get", func(t *testing.T) {
		store := setupTestStore(t)

		require.NoError(t, store.SetState(ctx, "device_id", "kiosk-01"))

		value, err := store.GetState(ctx, "device_id")
		require.NoError(t, err)
		assert.Equal(t, "kiosk-01", value)
	})

	t.Run("set overwrites", func(t *testing.T) {
		store := setupTestStore(t)

		require.NoError(t, store.SetState(ctx, "device_id", "kiosk-01"))
		require.NoError(t, store.SetState(ctx, "device_id", "kiosk-02"))

		value, err := store.GetState(ctx, "device_id")
		require.NoError(t, err)
		assert.Equal(t, "kiosk-02", value)
	})
}

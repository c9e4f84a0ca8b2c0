// Package storagetest checks that a storage.Store honours the slot contract.
package storagetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-server-session/storage"
	"github.com/stretchr/testify/require"
)

// Run exercises get, set, overwrite and remove against store.
func Run(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("absent key", func(t *testing.T) {
		v, ok, err := store.Get(ctx, "session-missing")
		require.NoError(t, err)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "session-app", `{"bearer":"t1"}`))
		v, ok, err := store.Get(ctx, "session-app")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, `{"bearer":"t1"}`, v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "session-app", `{"bearer":"t2"}`))
		v, ok, err := store.Get(ctx, "session-app")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, `{"bearer":"t2"}`, v)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "session-other", "x"))
		require.NoError(t, store.Remove(ctx, "session-other"))
		v, ok, err := store.Get(ctx, "session-app")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, `{"bearer":"t2"}`, v)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, "session-app"))
		_, ok, err := store.Get(ctx, "session-app")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("remove absent key", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, "session-app"))
	})
}

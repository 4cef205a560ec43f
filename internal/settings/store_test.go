package settings

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_GetDefaults(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
	assert.Nil(t, got.UpdatedAt)
}

func TestStore_PutAndGet(t *testing.T) {
	store := openTestStore(t)
	fixed := time.Date(2025, 6, 20, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	saved, err := store.Put(context.Background(), "uid-1", Settings{
		DefaultTickers:       "7203, 9984",
		PreferredMarket:      MarketUS,
		SubscribeDigest:      false,
		NotifyProductUpdates: true,
		Notes:                "自動車セクター",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.UpdatedAt)
	assert.True(t, fixed.Equal(*saved.UpdatedAt))

	got, err := store.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "7203, 9984", got.DefaultTickers)
	assert.Equal(t, MarketUS, got.PreferredMarket)
	assert.False(t, got.SubscribeDigest)
	assert.True(t, got.NotifyProductUpdates)
	assert.Equal(t, "自動車セクター", got.Notes)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, fixed.Equal(*got.UpdatedAt))

	// upsert overwrites
	store.now = func() time.Time { return fixed.Add(time.Hour) }
	_, err = store.Put(context.Background(), "uid-1", Settings{Notes: "更新"})
	require.NoError(t, err)
	got, err = store.Get(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "更新", got.Notes)
	assert.Equal(t, MarketJP, got.PreferredMarket)
	assert.True(t, fixed.Add(time.Hour).Equal(*got.UpdatedAt))

	// other users are untouched
	other, err := store.Get(context.Background(), "uid-2")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), other)
}

func TestStore_Validation(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = store.Put(context.Background(), "", Defaults())
	assert.ErrorIs(t, err, ErrUserRequired)

	_, err = store.Put(context.Background(), "uid-1", Settings{PreferredMarket: "eu"})
	assert.ErrorIs(t, err, ErrInvalidMarket)
}

func TestOpen_Memory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Put(context.Background(), "uid", Defaults())
	require.NoError(t, err)
	got, err := store.Get(context.Background(), "uid")
	require.NoError(t, err)
	assert.NotNil(t, got.UpdatedAt)
}

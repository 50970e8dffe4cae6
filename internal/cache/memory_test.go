package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T, size int) *MemoryCache {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Size = size
	c, err := NewMemoryCache(cfg)
	require.NoError(t, err)
	return c
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	c := newMemory(t, 4)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = c.Get(ctx, "missing")
	assert.True(t, IsCacheMiss(err))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := newMemory(t, 4)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.Set(ctx, "default", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "forever", []byte("3"), -1))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "short")
	assert.True(t, IsCacheMiss(err))
	_, err = c.Get(ctx, "default")
	assert.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = c.Get(ctx, "default")
	assert.True(t, IsCacheMiss(err))
	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newMemory(t, 2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("b"), 0))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", []byte("c"), 0))

	assert.Equal(t, 2, c.Len())
	_, err = c.Get(ctx, "b")
	assert.True(t, IsCacheMiss(err))
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	c := newMemory(t, 4)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("b"), 0))

	require.NoError(t, c.Delete(ctx, "a"))
	_, err := c.Get(ctx, "a")
	assert.True(t, IsCacheMiss(err))

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
}

func TestMemoryCache_CancelledContext(t *testing.T) {
	c := newMemory(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Set(ctx, "k", []byte("v"), 0), context.Canceled)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{Backend: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(ctx, Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = New(ctx, Config{Backend: "memcached"})
	assert.Error(t, err)
}

func TestDependentsKey(t *testing.T) {
	assert.Equal(t, DependentsKey("window:w", "DocStatus"), DependentsKey("window:w", "DocStatus"))
	assert.NotEqual(t, DependentsKey("window:w", "DocStatus"), DependentsKey("window:w", "docstatus"))
	assert.NotEqual(t, DependentsKey("window:w", "DocStatus"), DependentsKey("container:w", "DocStatus"))
	assert.Contains(t, DependentsKey("a", "b"), "deps:")
}

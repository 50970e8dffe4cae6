package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheWithClient(client, DefaultConfig())
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Backend = BackendRedis
	cfg.RedisAddr = mr.Addr()

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
	assert.NoError(t, c.Close())
}

func TestNewRedisCache_ConnectionError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "localhost:99999"

	_, err := NewRedisCache(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("dictquery:k"))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	assert.Equal(t, 5*time.Minute, mr.TTL("dictquery:k"))

	mr.FastForward(6 * time.Minute)
	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCache_ClearKeepsForeignKeys(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:k", "x"))
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))

	require.NoError(t, c.Clear(ctx))
	assert.False(t, mr.Exists("dictquery:a"))
	assert.False(t, mr.Exists("dictquery:b"))
	assert.True(t, mr.Exists("other:k"))
}

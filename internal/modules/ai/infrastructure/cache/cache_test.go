package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	now = now.Add(2 * time.Minute)
	v, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMemoryCacheDel(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Del(ctx, "a", "missing"))
	v, _ := c.Get(ctx, "a")
	assert.Empty(t, v)
}

func TestRedisCacheWithoutConnectionIsMiss(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache()
	require.NoError(t, c.Set(ctx, "k", "v", time.Second))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.NoError(t, c.Del(ctx, "k"))
}

func TestRedisLockerLocalFallback(t *testing.T) {
	ctx := context.Background()
	l := NewRedisLocker()
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	ok, err := l.Lock(ctx, "ai:research:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Lock(ctx, "ai:research:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held lock must not be re-acquired")

	ok, err = l.Lock(ctx, "ai:research:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "different key is independent")

	now = now.Add(2 * time.Minute)
	ok, err = l.Lock(ctx, "ai:research:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be taken")

	require.NoError(t, l.Unlock(ctx, "ai:research:1"))
	ok, err = l.Lock(ctx, "ai:research:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

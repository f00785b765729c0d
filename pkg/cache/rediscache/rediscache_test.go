package rediscache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()

	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set, skipping Redis cache test")
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	c, err := New(&Config{
		Addr:          fmt.Sprintf("%s:%s", host, port),
		Prefix:        fmt.Sprintf("eurocore:test:%s:", t.Name()),
		TTL:           ttl,
		EnableMetrics: true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, c.Clear(context.Background()))
		assert.NoError(t, c.Close())
	})
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	_, found := c.Get(ctx, "tag:Team")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "tag:Team", 42))
	id, found := c.Get(ctx, "tag:Team")
	assert.True(t, found)
	assert.Equal(t, int64(42), id)

	require.NoError(t, c.Delete(ctx, "tag:Team"))
	_, found = c.Get(ctx, "tag:Team")
	assert.False(t, found)

	m := c.Metrics()
	assert.Equal(t, uint64(1), m.Hits)
	assert.Equal(t, uint64(2), m.Misses)
	assert.Equal(t, uint64(1), m.KeysEvicted)
}

func TestCache_TTL(t *testing.T) {
	c := newTestCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "relation_type:uses", 7))
	ttl, err := c.rdb.TTL(ctx, c.prefix+"relation_type:uses").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, 0)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("tag:%d", i), int64(i)))
	}
	require.NoError(t, c.Clear(ctx))

	_, found := c.Get(ctx, "tag:149")
	assert.False(t, found)
}

func TestNewWithClient_Defaults(t *testing.T) {
	c := NewWithClient(nil, &Config{TTL: -time.Minute}, nil)
	assert.Equal(t, DefaultPrefix, c.prefix)
	assert.Equal(t, time.Duration(0), c.ttl)
}

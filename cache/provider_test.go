package cache

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseProvider runs the behaviour every CacheProvider shares.
func exerciseProvider(t *testing.T, p CacheProvider) {
	ctx := context.Background()
	now := time.Unix(time.Now().Unix(), 0)

	t.Run("miss", func(t *testing.T) {
		_, ok, err := p.Get(ctx, "ns:GET:/missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put and get", func(t *testing.T) {
		entry := CacheEntry{
			Key:         "ns:GET:/a",
			Expires:     now.Add(time.Minute),
			RequestedAt: now.Add(-time.Second),
			ReceivedAt:  now,
			Bytes:       []byte("stored"),
		}
		require.NoError(t, p.Put(ctx, entry))

		got, ok, err := p.Get(ctx, entry.Key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entry.Key, got.Key)
		assert.Equal(t, entry.Bytes, got.Bytes)
		assert.True(t, entry.Expires.Equal(got.Expires))
		assert.True(t, entry.RequestedAt.Equal(got.RequestedAt))
		assert.True(t, entry.ReceivedAt.Equal(got.ReceivedAt))
	})

	t.Run("stale entries are kept", func(t *testing.T) {
		entry := CacheEntry{Key: "ns:GET:/stale", ReceivedAt: now.Add(-time.Hour), Bytes: []byte("old")}
		require.NoError(t, p.Put(ctx, entry))

		got, ok, err := p.Get(ctx, entry.Key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.Expires.IsZero())
		assert.Equal(t, []byte("old"), got.Bytes)
	})

	t.Run("replace", func(t *testing.T) {
		require.NoError(t, p.Put(ctx, CacheEntry{Key: "ns:GET:/r", Bytes: []byte("1")}))
		require.NoError(t, p.Put(ctx, CacheEntry{Key: "ns:GET:/r", Bytes: []byte("2")}))
		got, ok, err := p.Get(ctx, "ns:GET:/r")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("2"), got.Bytes)
	})

	t.Run("all keys by prefix", func(t *testing.T) {
		require.NoError(t, p.Put(ctx, CacheEntry{Key: "other:GET:/x", Bytes: []byte("x")}))
		keys := make([]string, 0)
		require.NoError(t, p.AllKeys(ctx, "ns:", func(key string) {
			keys = append(keys, key)
		}))
		sort.Strings(keys)
		assert.Equal(t, []string{"ns:GET:/a", "ns:GET:/r", "ns:GET:/stale"}, keys)
	})

	t.Run("purge", func(t *testing.T) {
		require.NoError(t, p.Purge(ctx, "ns:GET:/a"))
		require.NoError(t, p.Purge(ctx, "ns:GET:/never-stored"))
		_, ok, err := p.Get(ctx, "ns:GET:/a")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSQLiteCache(t *testing.T) {
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	exerciseProvider(t, c)
}

func TestMemCache(t *testing.T) {
	c, err := NewMemCache(16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	exerciseProvider(t, c)
}

func TestMemCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemCache(2)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, CacheEntry{Key: "a"}))
	require.NoError(t, c.Put(ctx, CacheEntry{Key: "b"}))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Put(ctx, CacheEntry{Key: "c"}))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok, "b should have been evicted")
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestMemCacheCopiesBytes(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemCache(0)
	require.NoError(t, err)

	b := []byte("abc")
	require.NoError(t, c.Put(ctx, CacheEntry{Key: "k", Bytes: b}))
	b[0] = 'x'

	got, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got.Bytes)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `ns:GET:/a\?b=\*`, escapeGlob("ns:GET:/a?b=*"))
	assert.Equal(t, `\[x\]`, escapeGlob("[x]"))
}

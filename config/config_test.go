package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/always-cache/revalidate"
	"github.com/always-cache/revalidate/cache"
	"github.com/always-cache/revalidate/transport"
)

const sample = `
policy: reload
provider: memory
memorySize: 32
namespace: tests
timeout: 5s
headers:
  User-Agent: revalidate-test
redis:
  addr: redis:6379
  retention: 1h
rules:
  - host: api.example.com
    prefix: /items
    default: max-age=60
`

func writeConfig(t *testing.T, content string) string {
	filename := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	return filename
}

func TestDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
	assert.Equal(t, revalidate.CacheThenFetch, config.Policy)
}

func TestLoadFile(t *testing.T) {
	config, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, revalidate.Direct(transport.IgnoreCacheReload), config.Policy)
	assert.Equal(t, ProviderMemory, config.Provider)
	assert.Equal(t, 32, config.MemorySize)
	assert.Equal(t, "tests", config.Namespace)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, "revalidate-test", config.Headers["User-Agent"])
	assert.Equal(t, cache.RedisConfig{Addr: "redis:6379", Retention: time.Hour}, config.Redis)
	require.Len(t, config.Rules, 1)
	assert.Equal(t, "/items", config.Rules[0].Prefix)
	// untouched fields keep their defaults
	assert.Equal(t, "cache.db", config.DB)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("REVALIDATE_POLICY", "cache-only")
	t.Setenv("REVALIDATE_TIMEOUT", "250ms")
	t.Setenv("REVALIDATE_REDIS_ADDR", "elsewhere:6379")

	config, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, revalidate.Direct(transport.CacheOnlyNoNetwork), config.Policy)
	assert.Equal(t, 250*time.Millisecond, config.Timeout)
	assert.Equal(t, "elsewhere:6379", config.Redis.Addr)
	assert.Equal(t, ProviderMemory, config.Provider)
}

func TestInvalidConfig(t *testing.T) {
	_, err := Load(writeConfig(t, "policy: sometimes\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "provider: floppy\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	t.Setenv("REVALIDATE_POLICY", "sometimes")
	_, err = Load("")
	assert.Error(t, err)
}

func TestOpenCacheAndFetcherConfig(t *testing.T) {
	config, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	store, err := config.OpenCache(context.Background(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.IsType(t, &cache.MemCache{}, store)

	logger := zerolog.Nop()
	fc := config.FetcherConfig(store, &logger)
	assert.Equal(t, "revalidate-test", fc.Header.Get("User-Agent"))
	assert.Equal(t, "tests", fc.Namespace)
	assert.Equal(t, 5*time.Second, fc.Timeout)
	_, err = transport.NewHTTPFetcher(fc)
	assert.NoError(t, err)
}

func TestOpenSQLite(t *testing.T) {
	config := Default()
	config.DB = filepath.Join(t.TempDir(), "cache.db")
	store, err := config.OpenCache(context.Background(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.IsType(t, &cache.SQLiteCache{}, store)
}

func TestOpenCacheFailureReturnsNilStore(t *testing.T) {
	config := Default()
	config.DB = filepath.Join(t.TempDir(), "missing", "cache.db")
	store, err := config.OpenCache(context.Background(), zerolog.Nop())
	require.Error(t, err)
	assert.True(t, store == nil, "store must be a nil interface, got %#v", store)
}

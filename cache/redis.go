package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	// Retention bounds how long an entry is kept after it was written.
	// Zero keeps entries until purged or evicted by Redis.
	Retention time.Duration `yaml:"retention" env:"RETENTION"`
}

// RedisCache stores msgpack encoded entries in Redis.
type RedisCache struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	retention   time.Duration
}

// NewRedisCache creates and connects a new RedisCache.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Connected to Redis")

	return &RedisCache{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisCache").Logger(),
		retention:   cfg.Retention,
	}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	data, err := c.redisClient.Get(ctx, key).Bytes()
	// a redis.Nil error is a normal cache miss
	if errors.Is(err, redis.Nil) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	var entry CacheEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("Failed to unmarshal cached entry")
		return CacheEntry{}, false, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	entry.Key = key
	return entry, true, nil
}

func (c *RedisCache) Put(ctx context.Context, entry CacheEntry) error {
	data, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if err := c.redisClient.Set(ctx, entry.Key, data, c.retention).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	c.logger.Trace().Str("key", entry.Key).Msg("Stored entry")
	return nil
}

func (c *RedisCache) Purge(ctx context.Context, key string) error {
	return c.redisClient.Del(ctx, key).Err()
}

func (c *RedisCache) AllKeys(ctx context.Context, prefix string, cb func(string)) error {
	iter := c.redisClient.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		cb(iter.Val())
	}
	return iter.Err()
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	if c.redisClient != nil {
		return c.redisClient.Close()
	}
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

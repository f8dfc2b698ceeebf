// Package config loads the settings of the revalidate command from a YAML
// file and REVALIDATE_* environment variables.
package config

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/always-cache/revalidate"
	"github.com/always-cache/revalidate/cache"
	responsetransformer "github.com/always-cache/revalidate/pkg/response-transformer"
	"github.com/always-cache/revalidate/transport"
)

const EnvPrefix = "REVALIDATE_"

const (
	ProviderSQLite = "sqlite"
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
)

type Config struct {
	Policy     revalidate.Policy `yaml:"policy" env:"POLICY"`
	Provider   string            `yaml:"provider" env:"PROVIDER"`
	DB         string            `yaml:"db" env:"DB"`
	MemorySize int               `yaml:"memorySize" env:"MEMORY_SIZE"`
	Redis      cache.RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	Namespace  string            `yaml:"namespace" env:"NAMESPACE"`
	Timeout    time.Duration     `yaml:"timeout" env:"TIMEOUT"`
	// Headers are added to every origin request.
	Headers map[string]string         `yaml:"headers" env:"HEADERS"`
	Rules   responsetransformer.Rules `yaml:"rules"`
}

func Default() Config {
	return Config{
		Policy:    revalidate.CacheThenFetch,
		Provider:  ProviderSQLite,
		DB:        "cache.db",
		Namespace: transport.DefaultNamespace,
		Timeout:   30 * time.Second,
		Redis:     cache.RedisConfig{Addr: "localhost:6379"},
	}
}

// Load returns the defaults, overridden by the file (if filename is not
// empty), overridden by the environment.
func Load(filename string) (Config, error) {
	config := Default()
	if filename != "" {
		configBytes, err := os.ReadFile(filename)
		if err != nil {
			return config, fmt.Errorf("could not read config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, &config); err != nil {
			return config, fmt.Errorf("could not parse config %s: %w", filename, err)
		}
	}
	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return config, fmt.Errorf("could not read environment: %w", err)
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderSQLite, ProviderMemory, ProviderRedis:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", c.Timeout)
	}
	return nil
}

// OpenCache opens the configured store.
func (c Config) OpenCache(ctx context.Context, logger zerolog.Logger) (cache.CacheProvider, error) {
	switch c.Provider {
	case ProviderMemory:
		store, err := cache.NewMemCache(c.MemorySize)
		if err != nil {
			return nil, err
		}
		return store, nil
	case ProviderRedis:
		store, err := cache.NewRedisCache(ctx, c.Redis, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case ProviderSQLite:
		db := c.DB
		if db == "memory" {
			db = ""
		}
		store, err := cache.NewSQLiteCache(db)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown provider %q", c.Provider)
}

// FetcherConfig returns the transport settings for store.
func (c Config) FetcherConfig(store cache.CacheProvider, logger *zerolog.Logger) transport.Config {
	header := make(http.Header)
	for name, value := range c.Headers {
		header.Set(name, value)
	}
	return transport.Config{
		Cache:     store,
		Namespace: c.Namespace,
		Rules:     c.Rules,
		Header:    header,
		Timeout:   c.Timeout,
		Logger:    logger,
	}
}

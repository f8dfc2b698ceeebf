package cache

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemCacheSize is used when NewMemCache is given a non-positive size.
const DefaultMemCacheSize = 1024

// MemCache is a bounded in-memory store evicting the least recently used entry.
type MemCache struct {
	lruCache *lru.Cache[string, CacheEntry]
}

func NewMemCache(size int) (*MemCache, error) {
	if size <= 0 {
		size = DefaultMemCacheSize
	}
	lruCache, err := lru.New[string, CacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("could not create lru cache: %w", err)
	}
	return &MemCache{lruCache: lruCache}, nil
}

func (m *MemCache) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	entry, ok := m.lruCache.Get(key)
	return entry, ok, nil
}

func (m *MemCache) Put(_ context.Context, entry CacheEntry) error {
	// copy the bytes so callers can't mutate stored entries
	entry.Bytes = append([]byte(nil), entry.Bytes...)
	m.lruCache.Add(entry.Key, entry)
	return nil
}

func (m *MemCache) Purge(_ context.Context, key string) error {
	m.lruCache.Remove(key)
	return nil
}

func (m *MemCache) AllKeys(ctx context.Context, prefix string, cb func(string)) error {
	for _, key := range m.lruCache.Keys() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(key, prefix) {
			cb(key)
		}
	}
	return nil
}

func (m *MemCache) Len() int {
	return m.lruCache.Len()
}

func (m *MemCache) Close() error {
	m.lruCache.Purge()
	return nil
}

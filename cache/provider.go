// Package cache contains the stores a transport.HTTPFetcher keeps responses in.
package cache

import (
	"context"
	"time"
)

// CacheProvider is an interface for a cache provider.
// It stores and retrieves serialized HTTP responses under string keys.
// Keys are namespaced by a prefix, so that several fetchers may share one store.
//
// Entries are never dropped because they are stale: a stale entry is still
// served to cache-only lookups. Stores may evict for capacity reasons.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns the entry stored under key.
	// The boolean is false on a miss; err is reserved for store failures.
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	// Put stores the entry under entry.Key, replacing any previous one.
	Put(ctx context.Context, entry CacheEntry) error
	// Purge removes the entry for the given key. Purging a missing key is not an error.
	Purge(ctx context.Context, key string) error
	// AllKeys calls the given callback for each key with the given prefix.
	// It calls the callback in order to enable very large lists of keys to be
	// processable (provider implementation might use paging, for instance).
	AllKeys(ctx context.Context, prefix string, cb func(string)) error
	// Close releases the resources held by the store.
	Close() error
}

// CacheEntry is a stored response along with its bookkeeping timestamps.
type CacheEntry struct {
	Key string `msgpack:"key"`
	// Expires is the moment the stored response stops being fresh.
	// Zero means the response was stale on arrival.
	Expires time.Time `msgpack:"expires"`
	// The value of the clock when the request producing the response was sent.
	RequestedAt time.Time `msgpack:"requested_at"`
	// The value of the clock when the response was received.
	ReceivedAt time.Time `msgpack:"received_at"`
	Bytes      []byte    `msgpack:"bytes"`
}

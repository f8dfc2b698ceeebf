package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	cachekey "github.com/always-cache/revalidate/pkg/cache-key"
)

// RefreshStats counts the outcome of a RefreshAll run.
type RefreshStats struct {
	Refreshed int
	Purged    int
}

// RefreshAll reloads every stored response of the namespace from the origin.
// A key that still fails after one retry is purged from the cache.
func (f *HTTPFetcher) RefreshAll(ctx context.Context) (RefreshStats, error) {
	var stats RefreshStats
	keys := make([]string, 0)
	err := f.cache.AllKeys(ctx, f.keyer.MethodPrefix(http.MethodGet), func(key string) {
		keys = append(keys, key)
	})
	if err != nil {
		return stats, err
	}
	f.log.Info().Int("keys", len(keys)).Msg("Refreshing stored responses")
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ok := f.refreshEntry(ctx, key)
		switch {
		case ok:
			stats.Refreshed++
		case ctx.Err() != nil:
			return stats, ctx.Err()
		default:
			stats.Purged++
		}
	}
	return stats, nil
}

// refreshEntry will update the stored response identified by the given key.
// If there is an error while updating, the key will be purged from the cache.
func (f *HTTPFetcher) refreshEntry(ctx context.Context, key string) bool {
	log := f.log.With().Str("key", key).Logger()

	var result Result
	req, err := f.keyer.RequestFromKey(key)
	if err == nil {
		log.Trace().Str("url", req.URL.String()).Msg("Refreshing stored response")
		result = f.run(ctx, http.MethodGet, req.URL.String(), IgnoreCacheReload)
		// if there was an error, sleep and retry
		if !refreshed(result) && ctx.Err() == nil {
			select {
			case <-time.After(f.retryDelay):
			case <-ctx.Done():
			}
			result = f.run(ctx, http.MethodGet, req.URL.String(), IgnoreCacheReload)
		}
		err = result.Err
	}
	if refreshed(result) {
		return true
	}
	// an interrupted refresh says nothing about the entry
	if ctx.Err() != nil {
		return false
	}

	// log error if not explicitly disabled
	if err != nil && !errors.Is(err, cachekey.ErrMethodNotSupported) {
		log.Error().Err(err).Msg("Could not refresh stored response")
	}
	// if the response was not stored, it means it should be purged
	if err := f.cache.Purge(ctx, key); err != nil {
		log.Error().Err(err).Msg("Could not purge stored response")
	}
	return false
}

func refreshed(r Result) bool {
	return r.OK() && r.Meta != nil && r.Meta.CacheStatus.IsStored()
}

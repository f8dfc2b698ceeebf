// Package revalidate implements read policies over a caching transport.Fetcher,
// most notably CacheThenFetch: deliver stored data at once, revalidate with
// the network, and deliver again only if the data changed.
package revalidate

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/transport"
)

type Config struct {
	// Fetcher performs the cache and network operations. Required.
	Fetcher transport.Fetcher
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
	// Registerer for the client's metrics. Metrics are not exported if nil.
	Registerer prometheus.Registerer
}

// Client dispatches FetchData calls according to their Policy.
// It keeps no state between calls and is safe for concurrent use.
type Client struct {
	fetcher transport.Fetcher
	log     zerolog.Logger
	metrics *metrics
}

// CreateClient initializes a client over the configured fetcher.
func CreateClient(config Config) (*Client, error) {
	if config.Fetcher == nil {
		return nil, errors.New("revalidate: fetcher is required")
	}
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	m, err := newMetrics(config.Registerer)
	if err != nil {
		return nil, err
	}
	return &Client{
		fetcher: config.Fetcher,
		log:     logger.With().Str("component", "revalidate").Logger(),
		metrics: m,
	}, nil
}

// FetchData fetches url under policy and reports to done.
//
// With Direct policies done is called exactly once, as the fetcher would.
// With CacheThenFetch done is called at most twice: first with the stored
// response (or, on a miss, with fallback as a success unless fallback is
// absent), then with the network response if it differs from what was
// delivered. A network failure is only delivered when nothing stored was.
//
// done is required; use FetchDataCallbacks for a validated callback pair.
// The handle cancels the cache lookup only. Cancelling it before the lookup
// completes guarantees done is never called; the revalidation request, once
// started, always runs to completion.
func (c *Client) FetchData(url string, policy Policy, fallback body.Body, done transport.Completion) *transport.Handle {
	if done == nil {
		c.log.Error().Str("url", url).Msg("FetchData called without completion, results are dropped")
		done = func(transport.Result) {}
	}
	return c.fetch(url, policy, fallback, done, nil)
}

// fetch is FetchData with a hook called once every phase has concluded.
func (c *Client) fetch(url string, policy Policy, fallback body.Body, done transport.Completion, finished func()) *transport.Handle {
	if finished == nil {
		finished = func() {}
	}
	if directive, ok := policy.Directive(); ok {
		return c.fetcher.Fetch(http.MethodGet, url, directive, func(r transport.Result) {
			c.metrics.delivered(policy, phaseDirect, r)
			done(r)
			finished()
		})
	}
	return c.cacheThenFetch(url, fallback, done, finished)
}

func (c *Client) cacheThenFetch(url string, fallback body.Body, done transport.Completion, finished func()) *transport.Handle {
	log := c.log.With().
		Str("url", url).
		Str("request_id", uuid.NewString()).
		Logger()

	deliver := func(phase string, r transport.Result) {
		log.Debug().Str("phase", phase).Bool("ok", r.OK()).Msg("Delivering result")
		c.metrics.delivered(CacheThenFetch, phase, r)
		done(r)
	}

	return c.fetcher.Fetch(http.MethodGet, url, transport.CacheOnlyNoNetwork, func(cached transport.Result) {
		// written once here, read only by the revalidation completion
		var cachedBody body.Body
		hasCachedBody := false
		mustDeliver := false

		if cached.OK() {
			deliver(phaseCache, cached)
			cachedBody = cached.Body
			hasCachedBody = true
		} else {
			log.Trace().Err(cached.Err).Msg("Cache lookup failed")
			if !fallback.IsAbsent() {
				deliver(phaseCache, transport.Success(cached.Meta, fallback))
			}
			mustDeliver = true
		}

		log.Trace().Msg("Revalidating with network")
		c.fetcher.Fetch(http.MethodGet, url, transport.IgnoreCacheReload, func(fresh transport.Result) {
			defer finished()
			switch {
			case fresh.OK() && (mustDeliver || !hasCachedBody || hasChanged(cachedBody, fresh.Body)):
				deliver(phaseFetch, fresh)
			case !fresh.OK() && mustDeliver:
				deliver(phaseFetch, fresh)
			case fresh.OK():
				log.Trace().Msg("Revalidated data unchanged")
				c.metrics.suppress(suppressedUnchanged)
			default:
				log.Debug().Err(fresh.Err).Msg("Revalidation failed, stored data stands")
				c.metrics.suppress(suppressedFailure)
			}
		})
	})
}

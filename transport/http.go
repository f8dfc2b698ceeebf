package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/cache"
	cachekey "github.com/always-cache/revalidate/pkg/cache-key"
	serializer "github.com/always-cache/revalidate/pkg/response-serializer"
	responsetransformer "github.com/always-cache/revalidate/pkg/response-transformer"
	"github.com/always-cache/revalidate/rfc9111"
	"github.com/always-cache/revalidate/rfc9211"

	"github.com/rs/zerolog"
)

const (
	DefaultNamespace = "revalidate"
	DefaultCacheName = "Revalidate"
)

// now is the clock used for request and response timestamps.
var now = time.Now

type Config struct {
	// Storage for cache entries. Required.
	Cache cache.CacheProvider
	// HTTP client used for origin requests. http.DefaultClient if nil.
	Client *http.Client
	// Key namespace, so that several fetchers can share one store.
	Namespace string
	// Name reported in Cache-Status.
	CacheName string
	// Rules applied to 200 responses before they are considered for storage.
	Rules responsetransformer.Rules
	// Optional function for transforming the origin response, run after Rules.
	ResponseModifier func(*http.Response) error
	// Header fields added to every origin request.
	Header http.Header
	// Timeout for a single Fetch, zero for none.
	Timeout time.Duration
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

// HTTPFetcher is a Fetcher backed by net/http and a CacheProvider.
type HTTPFetcher struct {
	cache          cache.CacheProvider
	client         *http.Client
	keyer          cachekey.CacheKeyer
	cacheName      string
	rules          responsetransformer.Rules
	modifyResponse func(*http.Response) error
	header         http.Header
	timeout        time.Duration
	log            zerolog.Logger
	// retryDelay is the pause before RefreshAll retries a failed key.
	retryDelay time.Duration
}

func NewHTTPFetcher(config Config) (*HTTPFetcher, error) {
	if config.Cache == nil {
		return nil, errors.New("transport: cache provider is required")
	}
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}
	if config.CacheName == "" {
		config.CacheName = DefaultCacheName
	}
	if config.Client == nil {
		config.Client = http.DefaultClient
	}
	return &HTTPFetcher{
		cache:          config.Cache,
		client:         config.Client,
		keyer:          cachekey.NewCacheKeyer(config.Namespace),
		cacheName:      config.CacheName,
		rules:          config.Rules,
		modifyResponse: config.ResponseModifier,
		header:         config.Header.Clone(),
		timeout:        config.Timeout,
		log: logger.With().
			Str("component", "fetcher").
			Str("namespace", config.Namespace).
			Logger(),
		retryDelay: time.Second,
	}, nil
}

// Fetch implements Fetcher. The operation runs on its own goroutine.
func (f *HTTPFetcher) Fetch(method, url string, directive Directive, done Completion) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHandle(cancel)
	go func() {
		defer cancel()
		res := f.run(ctx, method, url, directive)
		if !h.Complete(done, res) {
			f.log.Trace().Str("url", url).Msg("Fetch cancelled, dropping result")
		}
	}()
	return h
}

// run applies the configured timeout to do.
func (f *HTTPFetcher) run(ctx context.Context, method, rawURL string, directive Directive) Result {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	return f.do(ctx, method, rawURL, directive)
}

// do runs one fetch synchronously.
func (f *HTTPFetcher) do(ctx context.Context, method, rawURL string, directive Directive) Result {
	meta := &Meta{Method: method, URL: rawURL, CacheStatus: rfc9211.New(f.cacheName)}
	log := f.log.With().Str("url", rawURL).Stringer("directive", directive).Logger()

	if method != http.MethodGet {
		meta.CacheStatus.Forward(rfc9211.FwdMethod)
		return Failure(meta, ErrMethodNotSupported)
	}
	key, err := f.keyer.Key(method, rawURL)
	if err != nil {
		meta.CacheStatus.Forward(rfc9211.FwdBypass)
		return Failure(meta, err)
	}

	switch directive {
	case CacheOnlyNoNetwork:
		stored, ok := f.load(ctx, key, log)
		if !ok {
			meta.CacheStatus.Forward(rfc9211.FwdUriMiss)
			return Failure(meta, ErrCacheMiss)
		}
		log.Trace().Msg("Serving stored response")
		return f.storedResult(meta, stored)

	case IgnoreCacheReload:
		req, err := f.newRequest(ctx, rawURL)
		if err != nil {
			return Failure(meta, err)
		}
		meta.CacheStatus.Forward(rfc9211.FwdRequest)
		return f.forward(ctx, req, key, meta, log)

	case UseDefault:
		req, err := f.newRequest(ctx, rawURL)
		if err != nil {
			return Failure(meta, err)
		}
		stored, ok := f.load(ctx, key, log)
		if !ok {
			meta.CacheStatus.Forward(rfc9211.FwdUriMiss)
			return f.forward(ctx, req, key, meta, log)
		}
		if rfc9111.IsFresh(stored.Response, stored.RequestTime, stored.ResponseTime) &&
			!rfc9111.MustValidate(stored.Response) {
			log.Trace().Msg("Serving fresh stored response")
			return f.storedResult(meta, stored)
		}
		meta.CacheStatus.Forward(rfc9211.FwdStale)
		return f.validate(ctx, req, key, stored, meta, log)
	}
	return Failure(meta, fmt.Errorf("unknown directive %s", directive))
}

func (f *HTTPFetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for name, values := range f.header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	return req, nil
}

// validate sends a conditional request for a stale stored response.
func (f *HTTPFetcher) validate(ctx context.Context, req *http.Request, key string, stored serializer.TimedResponse, meta *Meta, log zerolog.Logger) Result {
	condReq, conditional := rfc9111.ConditionalRequest(req, stored.Response)
	if !conditional {
		return f.forward(ctx, req, key, meta, log)
	}
	res, payload, reqTime, resTime, err := f.roundTrip(condReq)
	if err != nil {
		return Failure(meta, err)
	}
	if res.StatusCode != http.StatusNotModified {
		return f.handleResponse(ctx, res, payload, reqTime, resTime, key, meta, log)
	}

	log.Trace().Msg("Stored response validated")
	meta.CacheStatus.ForwardStatus(http.StatusNotModified)
	meta.CacheStatus.Detail("validated")
	rfc9111.FreshenHeaders(stored.Response.Header, res.Header)
	stored.RequestTime = reqTime
	stored.ResponseTime = resTime
	f.store(ctx, key, stored, log)
	result := f.storedResult(meta, stored)
	// the stored result marks itself as a hit; it was a forward
	meta.CacheStatus.Forward(rfc9211.FwdStale)
	return result
}

// forward sends req to the origin and stores the answer if allowed.
func (f *HTTPFetcher) forward(ctx context.Context, req *http.Request, key string, meta *Meta, log zerolog.Logger) Result {
	log.Debug().Msg("Requesting content from origin")
	res, payload, reqTime, resTime, err := f.roundTrip(req)
	if err != nil {
		return Failure(meta, err)
	}
	return f.handleResponse(ctx, res, payload, reqTime, resTime, key, meta, log)
}

func (f *HTTPFetcher) handleResponse(ctx context.Context, res *http.Response, payload []byte, reqTime, resTime time.Time, key string, meta *Meta, log zerolog.Logger) Result {
	meta.StatusCode = res.StatusCode
	meta.RequestTime = reqTime
	meta.ResponseTime = resTime
	meta.CacheStatus.ForwardStatus(res.StatusCode)
	if res.Request != nil && res.Request.URL != nil {
		meta.URL = res.Request.URL.String()
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Debug().Int("status", res.StatusCode).Msg("Origin answered with unsuccessful status")
	}

	f.rules.Apply(res)
	if f.modifyResponse != nil {
		if err := f.modifyResponse(res); err != nil {
			return Failure(meta, err)
		}
	}
	meta.Header = res.Header.Clone()

	if res.StatusCode == http.StatusOK {
		if rfc9111.MustNotStore(res) {
			// a previously stored response must not outlive a no-store answer
			if err := f.cache.Purge(ctx, key); err != nil {
				log.Error().Err(err).Msg("Could not purge stored response")
			}
		} else if f.store(ctx, key, serializer.TimedResponse{
			Response:     res,
			Body:         payload,
			RequestTime:  reqTime,
			ResponseTime: resTime,
		}, log) {
			meta.CacheStatus.Stored()
		}
	}
	meta.CacheStatus.TTL(rfc9111.FreshnessLifetime(res) - rfc9111.CurrentAge(res, reqTime, resTime))
	return Success(meta, body.Decode(res.Header.Get("Content-Type"), payload))
}

func (f *HTTPFetcher) roundTrip(req *http.Request) (*http.Response, []byte, time.Time, time.Time, error) {
	reqTime := now()
	res, err := f.client.Do(req)
	if err != nil {
		return nil, nil, reqTime, reqTime, err
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, reqTime, reqTime, fmt.Errorf("could not read response body: %w", err)
	}
	return res, payload, reqTime, now(), nil
}

// load returns the stored response for key. Store failures and corrupt
// entries count as misses; corrupt entries are purged.
func (f *HTTPFetcher) load(ctx context.Context, key string, log zerolog.Logger) (serializer.TimedResponse, bool) {
	entry, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		log.Error().Err(err).Msg("Could not read from cache")
		return serializer.TimedResponse{}, false
	}
	if !ok {
		return serializer.TimedResponse{}, false
	}
	stored, err := serializer.BytesToStoredResponse(entry.Bytes)
	if err != nil {
		log.Error().Err(err).Msg("Could not read stored response, purging")
		if err := f.cache.Purge(ctx, key); err != nil {
			log.Error().Err(err).Msg("Could not purge stored response")
		}
		return serializer.TimedResponse{}, false
	}
	return stored, true
}

func (f *HTTPFetcher) store(ctx context.Context, key string, stored serializer.TimedResponse, log zerolog.Logger) bool {
	stored.Response.Header = rfc9111.StorableHeader(stored.Response.Header)
	bts, err := serializer.StoredResponseToBytes(stored)
	if err != nil {
		log.Error().Err(err).Msg("Could not serialize response")
		return false
	}
	err = f.cache.Put(ctx, cache.CacheEntry{
		Key:         key,
		Expires:     rfc9111.GetExpiration(stored.Response, stored.ResponseTime),
		RequestedAt: stored.RequestTime,
		ReceivedAt:  stored.ResponseTime,
		Bytes:       bts,
	})
	if err != nil {
		log.Error().Err(err).Msg("Could not store response")
		return false
	}
	log.Trace().Msg("Stored response")
	return true
}

// storedResult serves a stored response as a cache hit.
func (f *HTTPFetcher) storedResult(meta *Meta, stored serializer.TimedResponse) Result {
	res := stored.Response
	header := res.Header.Clone()
	aged := &http.Response{StatusCode: res.StatusCode, Header: header, Request: res.Request}
	rfc9111.AddAgeHeader(aged, stored.RequestTime, stored.ResponseTime)

	meta.StatusCode = res.StatusCode
	meta.Header = header
	meta.RequestTime = stored.RequestTime
	meta.ResponseTime = stored.ResponseTime
	meta.CacheStatus.Hit()
	meta.CacheStatus.TTL(rfc9111.FreshnessLifetime(res) -
		rfc9111.CurrentAge(res, stored.RequestTime, stored.ResponseTime))
	return Success(meta, body.Decode(header.Get("Content-Type"), stored.Body))
}

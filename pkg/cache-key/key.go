// Package cachekey derives store keys for GET requests and maps them back to requests.
package cachekey

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

var ErrMethodNotSupported = errors.New("method not supported")

const (
	namespaceSeparator = ":"
	methodSeparator    = ":"
)

type CacheKeyer struct {
	// Namespace separates the entries of different fetchers sharing a store.
	Namespace string
	// Cache key prefix for this namespace
	Prefix string
}

func NewCacheKeyer(namespace string) CacheKeyer {
	return CacheKeyer{
		Namespace: namespace,
		Prefix:    namespace + namespaceSeparator,
	}
}

// MethodPrefix gets the key prefix for the namespace with the given method.
// E.g. prefix for all GET requests in the cache.
func (c CacheKeyer) MethodPrefix(method string) string {
	return c.Prefix + method + methodSeparator
}

// Key returns the cache key for a GET of rawURL.
// URLs differing only in query parameter order, fragment or the case of
// scheme and host map to the same key.
func (c CacheKeyer) Key(method, rawURL string) (string, error) {
	if method != http.MethodGet {
		return "", ErrMethodNotSupported
	}
	u, err := Normalize(rawURL)
	if err != nil {
		return "", err
	}
	return c.MethodPrefix(method) + u, nil
}

// RequestFromKey generates a request that is caching-wise equal to the
// request that resulted in the provided key.
func (c CacheKeyer) RequestFromKey(key string) (*http.Request, error) {
	if !strings.HasPrefix(key, c.Prefix) {
		return nil, fmt.Errorf("key and namespace do not match: %s", key)
	}
	method, uri, found := strings.Cut(strings.TrimPrefix(key, c.Prefix), methodSeparator)
	if !found {
		return nil, fmt.Errorf("malformed key: %s", key)
	}
	if method != http.MethodGet {
		return nil, ErrMethodNotSupported
	}
	return http.NewRequest(method, uri, nil)
}

// Normalize returns the canonical form of an absolute http(s) URL.
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid url %q: unsupported scheme", rawURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url %q: missing host", rawURL)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	if u.RawQuery != "" {
		// Encode sorts by key, keeping the order of repeated values
		u.RawQuery = u.Query().Encode()
	}
	return u.String(), nil
}

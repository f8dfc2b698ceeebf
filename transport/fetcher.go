// Package transport issues single GET requests under a cache directive and
// reports the outcome once through a Completion.
package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/rfc9211"
)

// Directive tells the fetcher how to treat its local cache for one request.
type Directive int

const (
	// UseDefault follows HTTP caching rules: fresh stored responses are
	// reused, stale ones are validated with the origin.
	UseDefault Directive = iota
	// IgnoreCacheReload always goes to the network and stores the result.
	IgnoreCacheReload
	// CacheOnlyNoNetwork answers from the store regardless of staleness
	// and never touches the network.
	CacheOnlyNoNetwork
)

func (d Directive) String() string {
	switch d {
	case UseDefault:
		return "default"
	case IgnoreCacheReload:
		return "reload"
	case CacheOnlyNoNetwork:
		return "cache-only"
	}
	return fmt.Sprintf("Directive(%d)", int(d))
}

// Meta describes the response a Result was produced from.
// Fields other than Method and URL are zero if no response was obtained.
type Meta struct {
	Method      string
	URL         string
	StatusCode  int
	Header      http.Header
	CacheStatus *rfc9211.CacheStatus
	// RequestTime and ResponseTime are the clock values around the origin
	// request the response came from. For stored responses they are the
	// values recorded when the response was stored.
	RequestTime  time.Time
	ResponseTime time.Time
}

// Result is what a Completion receives. Err is nil on success.
type Result struct {
	Meta *Meta
	Body body.Body
	Err  error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Success builds a successful Result.
func Success(meta *Meta, b body.Body) Result {
	return Result{Meta: meta, Body: b}
}

// Failure builds a failed Result. err is wrapped in an *Error carrying meta.
func Failure(meta *Meta, err error) Result {
	return Result{Meta: meta, Body: body.Absent(), Err: &Error{Meta: meta, Err: err}}
}

// Completion receives the outcome of a Fetch.
type Completion func(Result)

// Fetcher performs exactly one cache or network operation per call.
// done is invoked exactly once, on another goroutine, unless the returned
// handle is cancelled first, in which case it is never invoked.
type Fetcher interface {
	Fetch(method, url string, directive Directive, done Completion) *Handle
}

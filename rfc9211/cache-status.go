// Package rfc9211 builds values for the Cache-Status response header field.
package rfc9211

import (
	"fmt"
	"strings"
	"time"
)

// HeaderName is the field name defined by RFC 9211.
const HeaderName = "Cache-Status"

// Status is either a hit or a forward.
type Status string

const (
	StatusHit Status = "hit"
	StatusFwd Status = "fwd"
)

// FwdReason describes why a request was forwarded to the origin.
type FwdReason string

const (
	// The cache was configured to not handle this request.
	FwdBypass FwdReason = "bypass"

	// The request method's semantics require the request to be
	// forwarded.
	FwdMethod FwdReason = "method"

	// The cache did not contain any responses that matched the
	// request URI.
	FwdUriMiss FwdReason = "uri-miss"

	// The cache did not contain any responses that could be used to
	// satisfy this request.
	FwdMiss FwdReason = "miss"

	// The cache was able to select a fresh response for the
	// request, but the request's semantics did not allow its use.
	FwdRequest FwdReason = "request"

	// The cache was able to select a response for the request, but
	// it was stale.
	FwdStale FwdReason = "stale"
)

// CacheStatus accumulates how a cache handled a single request.
// The zero value has no status; String then renders only the cache name.
type CacheStatus struct {
	Name      string
	status    Status
	fwdReason FwdReason
	fwdStatus int
	ttl       *time.Duration
	stored    bool
	detail    string
}

// New returns a CacheStatus for the named cache.
func New(name string) *CacheStatus {
	return &CacheStatus{Name: name}
}

func (cs *CacheStatus) Hit() {
	cs.status = StatusHit
	cs.fwdReason = ""
}

func (cs *CacheStatus) Forward(reason FwdReason) {
	cs.status = StatusFwd
	cs.fwdReason = reason
}

// ForwardStatus records the status code the origin answered a forward with.
func (cs *CacheStatus) ForwardStatus(code int) {
	cs.fwdStatus = code
}

// TTL records the remaining freshness; negative for stale responses.
func (cs *CacheStatus) TTL(ttl time.Duration) {
	cs.ttl = &ttl
}

// Stored marks that the forwarded response was stored.
func (cs *CacheStatus) Stored() {
	cs.stored = true
}

func (cs *CacheStatus) Detail(detail string) {
	cs.detail = detail
}

func (cs *CacheStatus) IsHit() bool {
	return cs != nil && cs.status == StatusHit
}

func (cs *CacheStatus) IsStored() bool {
	return cs != nil && cs.stored
}

func (cs *CacheStatus) FwdReason() FwdReason {
	if cs == nil {
		return ""
	}
	return cs.fwdReason
}

func (cs *CacheStatus) String() string {
	if cs == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(cs.Name)
	switch cs.status {
	case StatusHit:
		b.WriteString("; hit")
	case StatusFwd:
		if cs.fwdReason != "" {
			fmt.Fprintf(&b, "; fwd=%s", cs.fwdReason)
		} else {
			b.WriteString("; fwd=miss")
		}
		if cs.fwdStatus != 0 {
			fmt.Fprintf(&b, "; fwd-status=%d", cs.fwdStatus)
		}
	}
	if cs.ttl != nil {
		fmt.Fprintf(&b, "; ttl=%d", int64(cs.ttl.Seconds()))
	}
	if cs.stored {
		b.WriteString("; stored")
	}
	if cs.detail != "" {
		b.WriteString("; detail=" + cs.detail)
	}
	return b.String()
}

package revalidate

import (
	"fmt"
	"strings"

	"github.com/always-cache/revalidate/transport"
)

type policyKind int

const (
	direct policyKind = iota
	cacheThenFetch
)

// Policy decides how FetchData uses the fetcher's cache.
// The zero value is Direct(transport.UseDefault).
type Policy struct {
	kind      policyKind
	directive transport.Directive
}

// Direct passes directive straight to the fetcher.
func Direct(directive transport.Directive) Policy {
	return Policy{kind: direct, directive: directive}
}

// CacheThenFetch delivers the stored response at once, if any, then
// revalidates with the network and delivers again if the data changed.
var CacheThenFetch = Policy{kind: cacheThenFetch}

// Directive returns the directive of a Direct policy.
func (p Policy) Directive() (transport.Directive, bool) {
	return p.directive, p.kind == direct
}

func (p Policy) String() string {
	if p.kind == cacheThenFetch {
		return "cache-then-fetch"
	}
	return p.directive.String()
}

// ParsePolicy accepts "default", "reload", "cache-only" and "cache-then-fetch".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Direct(transport.UseDefault), nil
	case "reload":
		return Direct(transport.IgnoreCacheReload), nil
	case "cache-only":
		return Direct(transport.CacheOnlyNoNetwork), nil
	case "cache-then-fetch":
		return CacheThenFetch, nil
	}
	return Policy{}, fmt.Errorf("unknown policy %q", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

package rfc9111

import (
	"net/http"
	"strings"
	"time"
)

// §  5.2.  Cache-Control
// §
// §     The "Cache-Control" header field is used to list directives for
// §     caches along the request/response chain.
// §
// §       Cache-Control   = #cache-directive
// §
// §       cache-directive = token [ "=" ( token / quoted-string ) ]

// CacheControl implements parsing of the "Cache-Control" header (/field).
type CacheControl struct {
	directives map[string]string
}

// Get returns the value (/argument) of the specified directive,
// along with a boolean indicating whether this directive is present
func (c CacheControl) Get(directive string) (string, bool) {
	val, ok := c.directives[directive]
	return val, ok
}

// HasDirective returns whether the specified directive is present
func (c CacheControl) HasDirective(directive string) bool {
	_, ok := c.Get(directive)
	return ok
}

// ParseCacheControl takes Cache-Control headers as a slice of strings
// and returns an instance of `CacheControl`.
func ParseCacheControl(headers []string) CacheControl {
	m := make(map[string]string)
	// note setting map values like this means last defined directive wins
	for _, header := range headers {
		for _, directive := range strings.Split(header, ",") {
			directive = strings.TrimSpace(directive)
			if directive == "" {
				continue
			}
			name, arg, _ := strings.Cut(directive, "=")
			m[directiveName(name)] = directiveArgument(arg)
		}
	}
	return CacheControl{m}
}

// responseCacheControl parses the Cache-Control fields of a response.
func responseCacheControl(res *http.Response) CacheControl {
	return ParseCacheControl(res.Header.Values("Cache-Control"))
}

func directiveName(token string) string {
	// §  [...] to be compared case-insensitively [...]
	return strings.ToLower(strings.TrimSpace(token))
}

func directiveArgument(arg string) string {
	// §  [...] argument that can use both token and quoted-string syntax. [...]
	return strings.Trim(strings.TrimSpace(arg), "\"")
}

// MaxAge returns "max-age" as a duration, along with a boolean indicating
// whether the "max-age" directive was present with an argument.
func (c CacheControl) MaxAge() (time.Duration, bool) {
	return c.getDeltaSeconds("max-age")
}

// getDeltaSeconds returns the "delta-seconds" as `time.Duration`,
// as well as a boolean indicating whether the directive was set.
//
// Examples:
// directive    -> 0,  false
// directive=0  -> 0,  true
// directive=60 -> 60, true
func (c CacheControl) getDeltaSeconds(directive string) (time.Duration, bool) {
	if secondsStr, ok := c.Get(directive); ok && secondsStr != "" {
		return deltaSeconds(secondsStr), true
	}
	return 0, false
}

// GetListHeader splits all values of a list-based header field into items.
func GetListHeader(header http.Header, field string) []string {
	list := make([]string, 0)
	for _, hdr := range header.Values(field) {
		for _, item := range strings.Split(hdr, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

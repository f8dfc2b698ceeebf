package rfc9111

import (
	"net/http"
	"strings"
)

// §  4.3.1.  Sending a Validation Request
// §
// §     When generating a conditional request for validation, a cache
// §     either starts with a request it is attempting to satisfy or -- if it
// §     is initiating the request independently -- synthesizes a request
// §     using a stored response by copying the method, target URI, and
// §     request header fields identified by the Vary header field.

// ConditionalRequest returns a copy of req carrying the validators of the
// stored response. The boolean is false if the stored response has no
// validators, in which case the request is returned unchanged.
func ConditionalRequest(req *http.Request, stored *http.Response) (*http.Request, bool) {
	etag := stored.Header.Get("ETag")
	lastModified := stored.Header.Get("Last-Modified")
	if etag == "" && lastModified == "" {
		return req, false
	}
	r := req.Clone(req.Context())
	// §     *  When the stored response contains an entity tag, the cache
	// §        SHOULD send it in the If-None-Match header field.
	if etag != "" {
		r.Header.Set("If-None-Match", etag)
	}
	// §     *  When the stored response contains a Last-Modified value, the cache
	// §        SHOULD send it in the If-Modified-Since header field.
	if lastModified != "" {
		r.Header.Set("If-Modified-Since", lastModified)
	}
	return r, true
}

// §  3.2.  Updating Stored Header Fields
// §
// §     Caches are required to update a stored response's header fields from
// §     another (typically newer) response in several situations; for
// §     example, see Sections 3.4, 4.3.4, and 4.3.5.
// §
// §     When doing so, the cache MUST add each header field in the provided
// §     response to the stored response, replacing field values that are
// §     already present, with the following exceptions:
// §
// §     *  Header fields excepted from storage in Section 3.1,
// §     *  Header fields that the cache's stored response depends upon, as
// §        described below,
// §     *  Header fields that are automatically processed and removed by the
// §        recipient, as described below, and
// §     *  The Content-Length header field.

// FreshenHeaders updates the stored header with the fields of a 304 response.
func FreshenHeaders(stored, validated http.Header) {
	for name, values := range StorableHeader(validated) {
		if strings.EqualFold(name, "Content-Length") ||
			strings.EqualFold(name, "Content-Encoding") {
			continue
		}
		stored[name] = append([]string(nil), values...)
	}
}

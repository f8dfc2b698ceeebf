package rfc9111

import (
	"net/http"
)

// §  3.  Storing Responses in Caches
// §
// §     A cache MUST NOT store a response to a request unless:

// MustNotStore returns a boolean indicating if a response MUST NOT be stored
// by a private (single user) cache. The response must have its Request set.
func MustNotStore(res *http.Response) bool {
	if res == nil || res.Request == nil {
		return true
	}
	cc := responseCacheControl(res)
	// §      *  the request method is understood by the cache;
	if res.Request.Method != http.MethodGet {
		return true
	}
	// §      *  the response status code is final (see Section 15 of [HTTP]);
	// §      *  if the response status code is 206 or 304, or the must-understand
	// §         cache directive (see Section 5.2.3) is present: the cache
	// §         understands the response status code;
	//
	// only complete 200 responses are understood
	if res.StatusCode != http.StatusOK {
		return true
	}
	// §      *  the no-store cache directive is not present in the response (see
	// §         Section 5.2.2.5);
	if cc.HasDirective("no-store") {
		return true
	}
	// the shared-cache conditions (private, Authorization, s-maxage) do not apply,
	// and a private cache may always use heuristic freshness for a 200
	return false
}

// §  3.1.  Storing Header and Trailer Fields
// §
// §     Caches MUST include all received response header fields -- including
// §     unrecognized ones -- when storing a response; [...] However, the
// §     following exceptions are made:

// StorableHeader returns a copy of the header with hop-by-hop fields removed.
func StorableHeader(header http.Header) http.Header {
	if header == nil {
		return make(http.Header)
	}
	h := header.Clone()
	// §     *  The Connection header field and fields whose names are listed in
	// §        it are required by Section 7.6.1 of [HTTP] to be removed before
	// §        forwarding the message.
	for _, name := range GetListHeader(header, "Connection") {
		h.Del(name)
	}
	h.Del("Connection")
	h.Del("Proxy-Connection")
	h.Del("Keep-Alive")
	h.Del("TE")
	h.Del("Transfer-Encoding")
	h.Del("Upgrade")
	return h
}

// MustValidate reports whether a stored response carries no-cache,
// i.e. it may only be reused after successful validation.
func MustValidate(res *http.Response) bool {
	return responseCacheControl(res).HasDirective("no-cache")
}

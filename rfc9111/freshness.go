package rfc9111

import (
	"net/http"
	"time"
)

// now is the clock used for age calculations.
var now = time.Now

// maxHeuristicLifetime caps the freshness lifetime derived from Last-Modified.
const maxHeuristicLifetime = 24 * time.Hour

// §  4.2.  Freshness
// §
// §     A "fresh" response is one whose age has not yet exceeded its
// §     freshness lifetime.

// IsFresh reports whether a stored response may be used without validation.
// requestTime and responseTime are the clock values recorded around the
// request that produced the stored response.
func IsFresh(res *http.Response, requestTime, responseTime time.Time) bool {
	return FreshnessLifetime(res) > CurrentAge(res, requestTime, responseTime)
}

// GetExpiration returns the moment a response received at responseTime stops
// being fresh. The zero time is returned if it is stale on arrival.
func GetExpiration(res *http.Response, responseTime time.Time) time.Time {
	if ttl := FreshnessLifetime(res); ttl > 0 {
		return responseTime.Add(ttl)
	}
	return time.Time{}
}

// §  4.2.1.  Calculating Freshness Lifetime
// §
// §     A cache can calculate the freshness lifetime (denoted as
// §     freshness_lifetime) of a response by evaluating the following rules
// §     and using the first match:

// FreshnessLifetime returns the freshness lifetime of a response, as seen by a private cache.
func FreshnessLifetime(res *http.Response) time.Duration {
	cc := responseCacheControl(res)
	// §     *  If the max-age response directive (Section 5.2.2.1) is present,
	// §        use its value, or
	if val, ok := cc.MaxAge(); ok {
		return val
	}
	// §     *  If the Expires response header field (Section 5.3) is present, use
	// §        its value minus the value of the Date response header field
	if res.Header.Get("Expires") != "" {
		expires, err := HttpDate(res.Header.Get("Expires"))
		if err != nil {
			// §  A cache recipient MUST interpret invalid date formats, especially the
			// §  value "0", as representing a time in the past (i.e., "already expired").
			return 0
		}
		if date, err := HttpDate(res.Header.Get("Date")); err == nil {
			return durationMax(0, expires.Sub(date))
		}
		return 0
	}
	// §     *  Otherwise, no explicit expiration time is present in the response.
	// §        A heuristic freshness lifetime might be applicable; see
	// §        Section 4.2.2.
	return heuristicLifetime(res)
}

// §  4.2.2.  Calculating Heuristic Freshness
// §
// §     If the response has a Last-Modified header field (Section 8.8.2 of
// §     [HTTP]), caches are encouraged to use a heuristic expiration value
// §     that is no more than some fraction of the interval since that time.
// §     A typical setting of this fraction might be 10%.
func heuristicLifetime(res *http.Response) time.Duration {
	if res.StatusCode != http.StatusOK {
		return 0
	}
	lastModified, err := HttpDate(res.Header.Get("Last-Modified"))
	if err != nil {
		return 0
	}
	date, err := HttpDate(res.Header.Get("Date"))
	if err != nil {
		return 0
	}
	lifetime := date.Sub(lastModified) / 10
	if lifetime > maxHeuristicLifetime {
		return maxHeuristicLifetime
	}
	return durationMax(0, lifetime)
}

// §  4.2.3.  Calculating Age
// §
// §       apparent_age = max(0, response_time - date_value);
// §       response_delay = response_time - request_time;
// §       corrected_age_value = age_value + response_delay;
// §       corrected_initial_age = max(apparent_age, corrected_age_value);
// §       resident_time = now - response_time;
// §       current_age = corrected_initial_age + resident_time;

// CurrentAge returns the current_age of a stored response.
func CurrentAge(res *http.Response, requestTime, responseTime time.Time) time.Duration {
	apparentAge := time.Duration(0)
	if date, err := HttpDate(res.Header.Get("Date")); err == nil {
		apparentAge = durationMax(0, responseTime.Sub(date))
	}
	responseDelay := durationMax(0, responseTime.Sub(requestTime))
	correctedAgeValue := ageValue(res) + responseDelay
	correctedInitialAge := durationMax(apparentAge, correctedAgeValue)
	residentTime := now().Sub(responseTime)
	return correctedInitialAge + residentTime
}

// §  5.1.  Age
// §
// §     The "Age" response header field conveys the sender's estimate of the
// §     time since the response was generated or successfully validated at
// §     the origin server.
func ageValue(res *http.Response) time.Duration {
	if secondsStr := res.Header.Get("Age"); secondsStr != "" {
		return deltaSeconds(secondsStr)
	}
	return 0
}

// AddAgeHeader adds the Age header to the response, as mandated by the standard.
// It directly mutates the response headers.
// It is based on the `current_age` calculation.
func AddAgeHeader(res *http.Response, requestTime, responseTime time.Time) {
	age := CurrentAge(res, requestTime, responseTime)
	res.Header.Set("Age", toDeltaSeconds(durationMax(0, age)))
}

func durationMax(d1, d2 time.Duration) time.Duration {
	if d1 > d2 {
		return d1
	}
	return d2
}

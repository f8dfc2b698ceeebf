package rfc9111

import (
	"net/http"
	"testing"
	"time"
)

func TestMaxAge(t *testing.T) {
	cc := ParseCacheControl([]string{"max-age=60"})
	val, ok := cc.Get("max-age")
	if !ok {
		t.Fatal("Could not get directive")
	}
	if val != "60" {
		t.Fatalf("Value is %s", val)
	}
}

func TestReal(t *testing.T) {
	cc := ParseCacheControl([]string{"public,max-age=0, S-MaxAge=\"600\""})
	if val, ok := cc.Get("public"); !ok || val != "" {
		t.Fatalf("val: '%s', ok: %v", val, ok)
	}
	if val, ok := cc.Get("max-age"); !ok || val != "0" {
		t.Fatalf("val: '%s', ok: %v", val, ok)
	}
	if val, ok := cc.Get("s-maxage"); !ok || val != "600" {
		t.Fatalf("val: '%s', ok: %v", val, ok)
	}
}

func TestToDeltaSeconds(t *testing.T) {
	fiveSeconds := 5 * time.Second
	if s := toDeltaSeconds(fiveSeconds); s != "5" {
		t.Fatalf("Delta seconds is %s", s)
	}
}

func TestHttpDateRFC850(t *testing.T) {
	_, err := HttpDate("Thursday, 18-Aug-50 02:01:18 GMT")
	if err != nil {
		t.Fatalf("Error parsing date %+v", err)
	}
}

func TestHttpDateTZCase(t *testing.T) {
	_, err := HttpDate("Thu, 18 Aug 2050 02:01:18 gMT")
	if err != nil {
		t.Fatalf("Error parsing date %+v", err)
	}
}

func TestHttpDateRoundTrip(t *testing.T) {
	in := time.Date(2022, 6, 1, 10, 30, 0, 0, time.UTC)
	out, err := HttpDate(ToHttpDate(in))
	if err != nil {
		t.Fatalf("Error parsing date %+v", err)
	}
	if !out.Equal(in) {
		t.Fatalf("Date is %v, expected %v", out, in)
	}
}

func TestDeltaSecondsParam(t *testing.T) {
	res := &http.Response{
		Header: make(http.Header),
	}
	res.Header.Add("Age", "7200;foo=bar")
	if age := ageValue(res); age != time.Second*7200 {
		t.Fatalf("Age is %v", age)
	}
}

func withClock(t *testing.T, at time.Time) {
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func makeResponse(status int, headers ...string) *http.Response {
	res := &http.Response{StatusCode: status, Header: make(http.Header)}
	for i := 0; i+1 < len(headers); i += 2 {
		res.Header.Add(headers[i], headers[i+1])
	}
	res.Request, _ = http.NewRequest(http.MethodGet, "http://example.com/", nil)
	return res
}

func TestFreshnessLifetime(t *testing.T) {
	date := time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		res      *http.Response
		lifetime time.Duration
	}{
		{"max-age", makeResponse(200, "Cache-Control", "max-age=60"), time.Minute},
		{"max-age wins over expires", makeResponse(200,
			"Cache-Control", "max-age=5",
			"Date", ToHttpDate(date),
			"Expires", ToHttpDate(date.Add(time.Hour))), 5 * time.Second},
		{"expires", makeResponse(200,
			"Date", ToHttpDate(date),
			"Expires", ToHttpDate(date.Add(time.Hour))), time.Hour},
		{"invalid expires", makeResponse(200, "Date", ToHttpDate(date), "Expires", "0"), 0},
		{"heuristic", makeResponse(200,
			"Date", ToHttpDate(date),
			"Last-Modified", ToHttpDate(date.Add(-10*time.Hour))), time.Hour},
		{"heuristic capped", makeResponse(200,
			"Date", ToHttpDate(date),
			"Last-Modified", ToHttpDate(date.Add(-100*24*time.Hour))), 24 * time.Hour},
		{"heuristic not for 404", makeResponse(404,
			"Date", ToHttpDate(date),
			"Last-Modified", ToHttpDate(date.Add(-10*time.Hour))), 0},
		{"nothing", makeResponse(200), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if lifetime := FreshnessLifetime(tt.res); lifetime != tt.lifetime {
				t.Fatalf("Lifetime is %v, expected %v", lifetime, tt.lifetime)
			}
		})
	}
}

func TestIsFresh(t *testing.T) {
	received := time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)
	res := makeResponse(200, "Cache-Control", "max-age=60", "Date", ToHttpDate(received))

	withClock(t, received.Add(30*time.Second))
	if !IsFresh(res, received, received) {
		t.Fatal("Response should be fresh after 30s")
	}

	withClock(t, received.Add(61*time.Second))
	if IsFresh(res, received, received) {
		t.Fatal("Response should be stale after 61s")
	}
}

func TestCurrentAgeIncludesAgeHeader(t *testing.T) {
	received := time.Date(2022, 6, 1, 10, 0, 0, 0, time.UTC)
	res := makeResponse(200, "Age", "100", "Date", ToHttpDate(received))
	withClock(t, received.Add(10*time.Second))

	if age := CurrentAge(res, received, received); age != 110*time.Second {
		t.Fatalf("Age is %v", age)
	}
	AddAgeHeader(res, received, received)
	if got := res.Header.Get("Age"); got != "110" {
		t.Fatalf("Age header is %s", got)
	}
}

func TestMustNotStore(t *testing.T) {
	if MustNotStore(makeResponse(200)) {
		t.Fatal("Plain 200 should be storable by a private cache")
	}
	if !MustNotStore(makeResponse(200, "Cache-Control", "no-store")) {
		t.Fatal("no-store must not be stored")
	}
	if !MustNotStore(makeResponse(500)) {
		t.Fatal("500 must not be stored")
	}
	post := makeResponse(200)
	post.Request.Method = http.MethodPost
	if !MustNotStore(post) {
		t.Fatal("POST must not be stored")
	}
	if MustNotStore(makeResponse(200, "Cache-Control", "private")) {
		t.Fatal("private should be storable by a private cache")
	}
}

func TestConditionalRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)

	if _, ok := ConditionalRequest(req, makeResponse(200)); ok {
		t.Fatal("No validators, no conditional request")
	}

	stored := makeResponse(200, "ETag", `"v1"`, "Last-Modified", "Wed, 01 Jun 2022 10:00:00 GMT")
	cond, ok := ConditionalRequest(req, stored)
	if !ok {
		t.Fatal("Expected conditional request")
	}
	if cond.Header.Get("If-None-Match") != `"v1"` {
		t.Fatalf("If-None-Match is %s", cond.Header.Get("If-None-Match"))
	}
	if cond.Header.Get("If-Modified-Since") != "Wed, 01 Jun 2022 10:00:00 GMT" {
		t.Fatalf("If-Modified-Since is %s", cond.Header.Get("If-Modified-Since"))
	}
	if req.Header.Get("If-None-Match") != "" {
		t.Fatal("Original request was modified")
	}
}

func TestFreshenHeaders(t *testing.T) {
	stored := http.Header{}
	stored.Set("Cache-Control", "max-age=1")
	stored.Set("Content-Length", "10")
	validated := http.Header{}
	validated.Set("Cache-Control", "max-age=60")
	validated.Set("Content-Length", "0")
	validated.Set("Connection", "close")

	FreshenHeaders(stored, validated)

	if stored.Get("Cache-Control") != "max-age=60" {
		t.Fatalf("Cache-Control is %s", stored.Get("Cache-Control"))
	}
	if stored.Get("Content-Length") != "10" {
		t.Fatalf("Content-Length is %s", stored.Get("Content-Length"))
	}
	if stored.Get("Connection") != "" {
		t.Fatal("Connection should not be stored")
	}
}

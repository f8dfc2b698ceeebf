package rfc9111

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// §  1.2.2.  Delta Seconds
// §
// §     The delta-seconds rule specifies a non-negative integer, representing
// §     time in seconds.

func deltaSeconds(secondsStr string) time.Duration {
	// parameters after the value are ignored, e.g. "Age: 60;foo=bar"
	secondsStr, _, _ = strings.Cut(secondsStr, ";")
	if seconds, err := strconv.ParseUint(strings.TrimSpace(secondsStr), 10, 64); err == nil {
		return time.Second * time.Duration(seconds)
	}
	return 0
}

func toDeltaSeconds(duration time.Duration) string {
	return fmt.Sprintf("%.f", duration.Seconds())
}

// This section is from the HTTP specification (RFC9110), not the cache specification

const imfDateLayout = "Mon, 02 Jan 2006 15:04:05 MST"

// HttpDate parses an HTTP-date in IMF-fixdate form,
// falling back to the obsolete RFC 850 and asctime forms.
func HttpDate(dateStr string) (time.Time, error) {
	if date, err := imfDate(dateStr); err == nil {
		return date, err
	} else {
		// try to parse as obsolete date
		if date, err := obsDate(dateStr); err == nil {
			return date, err
		}
		// return original error if unsuccessful
		return date, err
	}
}

// ToHttpDate formats a time as an IMF-fixdate.
func ToHttpDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}

func imfDate(dateStr string) (time.Time, error) {
	date, err := time.Parse(imfDateLayout, normalizeDateStr(dateStr))
	if err != nil {
		return date, err
	}
	// the zone may resolve to Local when the host runs in a GMT zone
	if name, offset := date.Zone(); offset != 0 {
		return date, fmt.Errorf("Date %s is not in GMT time, but %s", date, name)
	}
	return date.UTC(), nil
}

func obsDate(dateStr string) (time.Time, error) {
	str := normalizeDateStr(dateStr)
	if date, err := time.Parse(time.RFC850, str); err == nil {
		return date, err
	}
	return time.Parse(time.ANSIC, str)
}

// normalizeDateStr upper-cases the zone so that e.g. "gmt" parses.
func normalizeDateStr(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	if i := strings.LastIndex(dateStr, " "); i != -1 {
		return dateStr[:i] + strings.ToUpper(dateStr[i:])
	}
	return dateStr
}

// Package serializer converts stored responses to bytes and back.
package serializer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	responseTimeHeaderName = "Revalidate-Response-Time"
	requestTimeHeaderName  = "Revalidate-Request-Time"
)

var ErrMalformed = errors.New("malformed stored response")

type TimedResponse struct {
	// Response has its Request set; its Body is not used, see Body.
	Response *http.Response
	Body     []byte
	// The value of the clock at the time of the request that resulted in the stored response.
	// Needed for age calculation.
	RequestTime time.Time
	// The value of the clock at the time the response was received.
	// Needed for age calculation.
	ResponseTime time.Time
}

var delim = []byte("\r\n\r\n----\r\n\r\n")

// StoredResponseToBytes returns the HTTP/1.1 representation of the request and
// response, with the timestamps carried in extra headers.
// The response passed in is not modified.
func StoredResponseToBytes(sRes TimedResponse) ([]byte, error) {
	if sRes.Response == nil || sRes.Response.Request == nil {
		return nil, fmt.Errorf("%w: request not set", ErrMalformed)
	}
	buf := &bytes.Buffer{}

	req := sRes.Response.Request.Clone(sRes.Response.Request.Context())
	req.Body = nil
	req.ContentLength = 0
	if err := req.Write(buf); err != nil {
		return nil, fmt.Errorf("could not write request: %w", err)
	}
	buf.Write(delim)

	res := *sRes.Response
	res.Header = sRes.Response.Header.Clone()
	res.Header.Set(responseTimeHeaderName, strconv.FormatInt(sRes.ResponseTime.UnixNano(), 10))
	res.Header.Set(requestTimeHeaderName, strconv.FormatInt(sRes.RequestTime.UnixNano(), 10))
	res.Body = io.NopCloser(bytes.NewReader(sRes.Body))
	res.ContentLength = int64(len(sRes.Body))
	res.TransferEncoding = nil
	res.Close = false
	res.ProtoMajor, res.ProtoMinor = 1, 1
	if err := res.Write(buf); err != nil {
		return nil, fmt.Errorf("could not write response: %w", err)
	}
	return buf.Bytes(), nil
}

// BytesToStoredResponse reads back what StoredResponseToBytes wrote.
func BytesToStoredResponse(b []byte) (TimedResponse, error) {
	sRes := TimedResponse{}
	reqBytes, resBytes, found := bytes.Cut(b, delim)
	if !found {
		return sRes, ErrMalformed
	}
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(reqBytes)))
	if err != nil {
		return sRes, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.URL.Host == "" {
		req.URL.Host = req.Host
	}
	res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(resBytes)), req)
	if err != nil {
		return sRes, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer res.Body.Close()
	if sRes.Body, err = io.ReadAll(res.Body); err != nil {
		return sRes, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	sRes.Response = res
	if sRes.ResponseTime, err = parseTime(res.Header.Get(responseTimeHeaderName)); err != nil {
		return sRes, err
	}
	if sRes.RequestTime, err = parseTime(res.Header.Get(requestTimeHeaderName)); err != nil {
		return sRes, err
	}
	// delete extra headers
	res.Header.Del(responseTimeHeaderName)
	res.Header.Del(requestTimeHeaderName)
	return sRes, nil
}

func parseTime(s string) (time.Time, error) {
	nanos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid time %q", ErrMalformed, s)
	}
	return time.Unix(0, nanos), nil
}

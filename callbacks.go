package revalidate

import (
	"errors"

	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/transport"
)

// ErrNilCallback is returned when a Callbacks field is nil.
var ErrNilCallback = errors.New("revalidate: nil callback")

// Callbacks splits results into successes and failures.
type Callbacks struct {
	OnSuccess func(meta *transport.Meta, b body.Body)
	OnFailure func(meta *transport.Meta, err error)
}

// Completion adapts the callbacks to a transport.Completion.
func (cb Callbacks) Completion() (transport.Completion, error) {
	if cb.OnSuccess == nil || cb.OnFailure == nil {
		return nil, ErrNilCallback
	}
	return func(r transport.Result) {
		if r.OK() {
			cb.OnSuccess(r.Meta, r.Body)
		} else {
			cb.OnFailure(r.Meta, r.Err)
		}
	}, nil
}

// FetchDataCallbacks is FetchData with a success/failure callback pair.
func (c *Client) FetchDataCallbacks(url string, policy Policy, fallback body.Body, cb Callbacks) (*transport.Handle, error) {
	done, err := cb.Completion()
	if err != nil {
		return nil, err
	}
	return c.FetchData(url, policy, fallback, done), nil
}

package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheMiss is returned for CacheOnlyNoNetwork when nothing is stored.
	ErrCacheMiss = errors.New("no stored response")
	// ErrMethodNotSupported is returned for anything but GET.
	ErrMethodNotSupported = errors.New("method not supported")
)

// Error is the failure reported in a Result.
type Error struct {
	Meta *Meta
	Err  error
}

func (e *Error) Error() string {
	if e.Meta == nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %v", e.Meta.Method, e.Meta.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

package transport

import (
	"context"
	"sync/atomic"
)

const (
	pending int32 = iota
	completed
	cancelled
)

// Handle references one in-flight Fetch.
// Exactly one of Cancel and Complete takes effect.
type Handle struct {
	state  atomic.Int32
	cancel context.CancelFunc
}

// NewHandle returns a pending handle. cancel, if not nil, is called when the
// handle is cancelled while pending.
func NewHandle(cancel context.CancelFunc) *Handle {
	return &Handle{cancel: cancel}
}

// Cancel suppresses the completion if it has not fired yet.
// It reports whether the operation was still pending. Safe on a nil handle.
func (h *Handle) Cancel() bool {
	if h == nil || !h.state.CompareAndSwap(pending, cancelled) {
		return false
	}
	if h.cancel != nil {
		h.cancel()
	}
	return true
}

// Complete calls done with r unless the handle was cancelled or already completed.
func (h *Handle) Complete(done Completion, r Result) bool {
	if !h.state.CompareAndSwap(pending, completed) {
		return false
	}
	done(r)
	return true
}

func (h *Handle) Cancelled() bool {
	return h != nil && h.state.Load() == cancelled
}

func (h *Handle) Completed() bool {
	return h != nil && h.state.Load() == completed
}

package revalidate

import (
	"context"

	"github.com/always-cache/revalidate/body"
	"github.com/always-cache/revalidate/transport"
)

// Stream is FetchData delivering on a channel. The channel is closed once
// every phase has concluded, or right away if ctx ends before the cache
// lookup completes, in which case nothing is delivered.
func (c *Client) Stream(ctx context.Context, url string, policy Policy, fallback body.Body) <-chan transport.Result {
	// at most two deliveries, so sends never block
	results := make(chan transport.Result, 2)
	finished := make(chan struct{})
	h := c.fetch(url, policy, fallback, func(r transport.Result) {
		results <- r
	}, func() {
		close(results)
		close(finished)
	})
	go func() {
		select {
		case <-finished:
		case <-ctx.Done():
			if h.Cancel() {
				close(results)
			}
		}
	}()
	return results
}

// Collect gathers the results of Stream. If ctx ends first, the results
// delivered so far are returned along with ctx.Err().
func (c *Client) Collect(ctx context.Context, url string, policy Policy, fallback body.Body) ([]transport.Result, error) {
	results := make([]transport.Result, 0, 2)
	stream := c.Stream(ctx, url, policy, fallback)
	for {
		select {
		case r, ok := <-stream:
			if !ok {
				if len(results) == 0 && ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return results, nil
			}
			results = append(results, r)
		case <-ctx.Done():
			return results, ctx.Err()
		}
	}
}

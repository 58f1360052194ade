// Package fetcher retrieves trace flame graphs from a backend or from JSON
// files on disk. Every fetch delivers exactly one Result on a channel.
package fetcher

import (
	"context"
	"time"

	"github.com/tobert/trace-flamegraph/internal/flamegraph"
)

// Result is the outcome of one fetch: a forest or an error, never both.
type Result struct {
	Forest flamegraph.Forest
	Err    error
}

// Fetcher issues flame-graph requests.
// The returned channel receives exactly one Result and is then closed.
type Fetcher interface {
	Fetch(ctx context.Context, q flamegraph.Query) <-chan Result
}

// Getter is the synchronous half of a Fetcher.
type Getter interface {
	Get(ctx context.Context, q flamegraph.Query) (flamegraph.Forest, error)
}

// async runs get on its own goroutine and delivers its outcome once.
func async(ctx context.Context, source string, q flamegraph.Query, get func(context.Context, flamegraph.Query) (flamegraph.Forest, error)) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		start := time.Now()
		forest, err := get(ctx, q)
		observeFetch(source, err, time.Since(start))
		if err != nil {
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Forest: forest}
	}()
	return ch
}

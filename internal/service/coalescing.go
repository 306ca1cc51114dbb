package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjstillabower/weatherwise/internal/observability"
)

// call is one upstream fetch that several callers may wait on.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// requestCoalescer collapses concurrent requests for the same key into one fetch.
type requestCoalescer[T any] struct {
	mu       sync.Mutex
	inFlight map[string]*call[T]
	timeout  time.Duration
}

func newRequestCoalescer[T any](timeout time.Duration) *requestCoalescer[T] {
	return &requestCoalescer[T]{
		inFlight: make(map[string]*call[T]),
		timeout:  timeout,
	}
}

// GetOrDo runs fn for key unless a run is already in flight, in which case it
// waits for that result. fn runs in its own goroutine and is not canceled when
// a waiter gives up; waiting is bounded by ctx and the coalescer timeout.
func (rc *requestCoalescer[T]) GetOrDo(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	rc.mu.Lock()
	c, shared := rc.inFlight[key]
	if !shared {
		c = &call[T]{done: make(chan struct{})}
		rc.inFlight[key] = c
		go rc.run(key, c, fn)
	}
	rc.mu.Unlock()

	if shared {
		observability.CoalescedRequestsTotal.Inc()
	}

	timer := time.NewTimer(rc.timeout)
	defer timer.Stop()

	var zero T
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-timer.C:
		return zero, fmt.Errorf("waiting for in-flight request %q: %w", key, context.DeadlineExceeded)
	}
}

func (rc *requestCoalescer[T]) run(key string, c *call[T], fn func() (T, error)) {
	c.val, c.err = fn()
	rc.mu.Lock()
	delete(rc.inFlight, key)
	rc.mu.Unlock()
	close(c.done)
}

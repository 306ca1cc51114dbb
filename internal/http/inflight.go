package http

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/weatherwise/internal/observability"
)

// requestCounter counts requests between MetricsMiddleware entry and exit.
// Every change is mirrored into the in-flight gauge.
type requestCounter struct {
	n atomic.Int64
}

func (c *requestCounter) enter() {
	observability.HTTPRequestsInFlight.Set(float64(c.n.Add(1)))
}

func (c *requestCounter) leave() {
	observability.HTTPRequestsInFlight.Set(float64(c.n.Add(-1)))
}

func (c *requestCounter) load() int64 {
	return c.n.Load()
}

// drain polls every interval until the count is zero or ctx is done.
func (c *requestCounter) drain(ctx context.Context, every time.Duration) error {
	if c.load() == 0 {
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.load() == 0 {
				return nil
			}
		}
	}
}

var inFlight requestCounter

// InFlightCount returns the number of requests being served.
func InFlightCount() int64 {
	return inFlight.load()
}

// WaitForInFlight blocks until no request is being served or ctx is done.
// Call after http.Server.Shutdown so no new requests arrive.
func WaitForInFlight(ctx context.Context, every time.Duration) error {
	return inFlight.drain(ctx, every)
}

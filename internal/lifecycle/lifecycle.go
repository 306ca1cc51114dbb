// Package lifecycle tracks process-wide drain state.
package lifecycle

import (
	"sync/atomic"
	"time"
)

// drainStart holds the UnixNano at which shutdown began; zero means serving.
var drainStart atomic.Int64

// BeginShutdown marks the process as draining. Only the first call records
// the start time.
func BeginShutdown(now time.Time) {
	drainStart.CompareAndSwap(0, now.UnixNano())
}

// IsShuttingDown reports whether BeginShutdown has been called.
func IsShuttingDown() bool {
	return drainStart.Load() != 0
}

// DrainingFor returns how long the process has been draining, or zero.
func DrainingFor(now time.Time) time.Duration {
	start := drainStart.Load()
	if start == 0 {
		return 0
	}
	return now.Sub(time.Unix(0, start))
}

// Reset clears the drain state. Tests only.
func Reset() {
	drainStart.Store(0)
}

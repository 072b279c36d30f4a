// Package coarsetime provides a clock with a 50ms resolution for hot paths
// that stamp many events, like connection checkouts.
//
// The clock is refreshed by a single goroutine started on first use.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

const tick = 50 * time.Millisecond

var (
	now   atomic.Pointer[time.Time]
	start sync.Once
)

func run() {
	t := time.Now()
	now.Store(&t)

	ticker := time.NewTicker(tick)
	go func() {
		for range ticker.C {
			t := time.Now()
			now.Store(&t)
		}
	}()
}

// Now returns the current time, up to 50ms stale.
func Now() time.Time {
	start.Do(run)
	return *now.Load()
}

// Since returns the time elapsed since t according to the coarse clock.
// The result is never negative.
func Since(t time.Time) time.Duration {
	d := Now().Sub(t)
	if d < 0 {
		return 0
	}
	return d
}

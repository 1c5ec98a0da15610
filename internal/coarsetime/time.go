// Package coarsetime provides a clock read from memory, refreshed every
// 50ms by a background goroutine. It serves frequent timestamps (activity
// tracking, staleness checks) where a 50ms error does not matter.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

const resolution = 50 * time.Millisecond

var (
	now   atomic.Int64 // unix nanoseconds
	start sync.Once
)

func refresh() {
	ticker := time.NewTicker(resolution)
	for t := range ticker.C {
		now.Store(t.UnixNano())
	}
}

// Now returns the current time, at most 50ms behind the wall clock. The
// refresh goroutine starts on first use.
func Now() time.Time {
	start.Do(func() {
		now.Store(time.Now().UnixNano())
		go refresh()
	})
	return time.Unix(0, now.Load())
}

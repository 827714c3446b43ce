//go:build !tinygo

package main

import (
	"context"
	"time"

	"steppump/core"
)

// tickInterval is how often the host clock is sampled and timers dispatched
const tickInterval = 100 * time.Microsecond

// runClock advances the tick clock from wall time and dispatches due timers,
// the host counterpart of reading the hardware timer in the main loop.
func runClock(ctx context.Context, sched *core.Scheduler) {
	start := time.Now()
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		core.SetTime(uint32(time.Since(start).Microseconds()))
		sched.ProcessTimers()
	}
}

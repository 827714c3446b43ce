package core

import "sync/atomic"

// Timer frequency of the tick clock. Both the RP2040 hardware timer and the
// host simulation count microseconds.
const (
	TimerFreq = 1000000 // 1MHz
)

var systemTicks atomic.Uint32

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return systemTicks.Load()
}

// SetTime sets the current system time. Targets call this with the
// hardware counter before dispatching timers.
func SetTime(ticks uint32) {
	systemTicks.Store(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32((uint64(us) * TimerFreq) / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32((uint64(ticks) * 1000000) / TimerFreq)
}

// timeBefore reports whether a is before b on the wrapping 32-bit clock
func timeBefore(a, b uint32) bool {
	return int32(a-b) < 0
}

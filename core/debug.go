package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a timing-critical event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Axis      uint8  // Axis the event belongs to
	Clock     uint32 // System clock at event
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtStepArmed    = 1 // Step timer armed by run()
	EvtStepStopped  = 2 // Running axis stopped (v1 = steps)
	EvtPollArmed    = 3 // Homing poll armed (v1 = mode, v2 = seq)
	EvtEdgeDetected = 4 // Homing edge posted (v1 = mode, v2 = seq)
	EvtPollExpired  = 5 // Homing axis stopped before an edge
	EvtTimerPast    = 6 // Timer rescheduled into the past
	EvtCommand      = 7 // Command dispatched (v1 = fid, v2 = status)
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled atomic.Bool

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8 // Next write position
	timingLock     criticalSection
	timingEnabled  atomic.Bool

	// Async debug output channel
	debugChan chan string
)

func init() {
	timingEnabled.Store(true)
}

// SetDebugWriter sets the platform-specific debug output function.
// Call before starting any goroutine that logs.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetTimingEnabled enables or disables timing capture
func SetTimingEnabled(enabled bool) {
	timingEnabled.Store(enabled)
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker(debugChan)
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker(ch chan string) {
	for msg := range ch {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
// Blocks if debug is enabled (use DebugAsync for non-blocking)
func DebugPrintln(msg string) {
	if debugEnabled.Load() && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
			// Channel full, drop message (non-blocking)
		}
	}
}

// RecordTiming captures a timing event in the ring buffer. Safe to call
// from timer context.
func RecordTiming(eventType, axis uint8, clock, value1, value2 uint32) {
	if !timingEnabled.Load() {
		return
	}
	timingLock.enter()
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Axis:      axis,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
	timingLock.exit()
}

// TimingEvents returns the captured events, oldest first
func TimingEvents() []TimingEvent {
	timingLock.enter()
	defer timingLock.exit()

	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error).
// Not for use from timer context.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		var name string
		switch evt.EventType {
		case EvtStepArmed:
			name = "STEP_ARMED"
		case EvtStepStopped:
			name = "STEP_STOPPED"
		case EvtPollArmed:
			name = "POLL_ARMED"
		case EvtEdgeDetected:
			name = "EDGE"
		case EvtPollExpired:
			name = "POLL_EXPIRED"
		case EvtTimerPast:
			name = "TIMER_PAST!"
		case EvtCommand:
			name = "COMMAND"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[TIMING] " + name +
			" axis=" + itoa(int(evt.Axis)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	timingLock.enter()
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
	timingLock.exit()
}

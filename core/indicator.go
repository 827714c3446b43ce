package core

// BlinkInterval is the indicator toggle period while waiting for a client (500ms)
const BlinkInterval = 500000

// Indicator shows the board state on the status LED:
// waiting for a connection blinks, idle is solid on, running and connected
// leave the LED where it is, anything else turns it off.
type Indicator struct {
	led        *DigitalOut
	sched      *Scheduler
	blinkTimer Timer
	interval   uint32

	// blinking is only touched by the goroutine calling Show
	blinking bool
}

// NewIndicator creates an indicator on led. A zero interval selects
// BlinkInterval.
func NewIndicator(sched *Scheduler, led *DigitalOut, interval uint32) *Indicator {
	if interval == 0 {
		interval = BlinkInterval
	}
	ind := &Indicator{led: led, sched: sched, interval: interval}
	ind.blinkTimer.Handler = ind.blinkEvent
	return ind
}

// Show updates the LED for state. Showing the waiting state again while
// already blinking keeps the current blink phase.
func (ind *Indicator) Show(state BoardState) {
	switch state {
	case BoardWaitForConnection:
		if ind.blinking {
			return
		}
		ind.blinking = true
		ind.blinkTimer.WakeTime = ind.sched.Now() + ind.interval
		ind.sched.Schedule(&ind.blinkTimer)

	case BoardIdle:
		ind.stopBlink()
		ind.sched.Critical(func() { ind.led.Set(true) })

	case BoardConnected, BoardPumpRunning:
		ind.stopBlink()

	default:
		ind.Off()
	}
}

// Off stops blinking and turns the LED off
func (ind *Indicator) Off() {
	ind.stopBlink()
	ind.sched.Critical(func() { ind.led.Set(false) })
}

// Lit reports whether the LED is logically on
func (ind *Indicator) Lit() bool {
	var on bool
	ind.sched.Critical(func() { on = ind.led.On() })
	return on
}

func (ind *Indicator) stopBlink() {
	if ind.blinking {
		ind.sched.Cancel(&ind.blinkTimer)
		ind.blinking = false
	}
}

func (ind *Indicator) blinkEvent(t *Timer) uint8 {
	ind.led.Toggle()
	t.WakeTime += ind.interval
	return SF_RESCHEDULE
}

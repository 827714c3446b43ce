package core

// Constant-rate step pulse generation
// Each axis toggles its step line from a periodic timer at half the step
// period, so one full pulse cycle spans one period.

import (
	"math"
	"sync/atomic"
)

// StepPulseGenerator drives one axis. Its accessors are safe to call from any
// goroutine while the step timer fires.
type StepPulseGenerator struct {
	Axis AxisID

	stepTimer Timer
	sched     *Scheduler
	backend   StepperBackend

	periodBits atomic.Uint32 // float32 seconds
	halfPeriod atomic.Uint32 // ticks between toggles
	configured atomic.Bool
	state      atomic.Uint32 // MotionState
	reverse    atomic.Bool
	steps      atomic.Uint32

	// pinLevel is only touched inside the scheduler's critical section or
	// while the step timer is not armed
	pinLevel bool
}

// NewStepPulseGenerator creates an unconfigured, idle generator. The backend
// must already be initialised.
func NewStepPulseGenerator(axis AxisID, sched *Scheduler, backend StepperBackend) *StepPulseGenerator {
	g := &StepPulseGenerator{
		Axis:    axis,
		sched:   sched,
		backend: backend,
	}
	g.stepTimer.Handler = g.stepEvent
	return g
}

// halfPeriodTicks rounds period/2 to the nearest tick, never below one
func halfPeriodTicks(period float32) uint32 {
	ticks := math.Round(float64(period) * TimerFreq / 2)
	if !(ticks >= 1) {
		return 1
	}
	if ticks > math.MaxInt32 {
		return math.MaxInt32
	}
	return uint32(ticks)
}

// Configure stores the step period in seconds and marks the axis configured.
// Range checks are the caller's job. A running axis picks up the new rate at
// its next toggle.
func (g *StepPulseGenerator) Configure(period float32) {
	g.periodBits.Store(math.Float32bits(period))
	g.halfPeriod.Store(halfPeriodTicks(period))
	g.configured.Store(true)
}

// Run starts pulsing. It returns false without effect when the axis was never
// configured. Running an axis that is already running keeps its step count.
func (g *StepPulseGenerator) Run() bool {
	if !g.configured.Load() {
		return false
	}
	if g.State() == MotionRunning {
		return true
	}

	g.steps.Store(0)
	g.pinLevel = false
	g.state.Store(uint32(MotionRunning))

	half := g.halfPeriod.Load()
	g.stepTimer.WakeTime = g.sched.Now() + half
	g.sched.Schedule(&g.stepTimer)

	RecordTiming(EvtStepArmed, uint8(g.Axis), g.stepTimer.WakeTime, half, 0)
	return true
}

// Stop disarms the step timer, forces the step line low and marks the axis
// idle. Safe to call when already stopped.
func (g *StepPulseGenerator) Stop() {
	g.sched.Cancel(&g.stepTimer)

	g.pinLevel = false
	g.backend.Stop()

	if MotionState(g.state.Swap(uint32(MotionIdle))) == MotionRunning {
		RecordTiming(EvtStepStopped, uint8(g.Axis), g.sched.Now(), g.steps.Load(), 0)
	}
}

// stepEvent toggles the step line; a low to high transition completes one step
func (g *StepPulseGenerator) stepEvent(t *Timer) uint8 {
	if MotionState(g.state.Load()) != MotionRunning {
		return SF_DONE
	}

	g.pinLevel = !g.pinLevel
	g.backend.SetStep(g.pinLevel)
	if g.pinLevel {
		g.steps.Add(1)
	}

	t.WakeTime += g.halfPeriod.Load()
	return SF_RESCHEDULE
}

// SetDirection drives the direction output
func (g *StepPulseGenerator) SetDirection(reverse bool) {
	g.reverse.Store(reverse)
	g.backend.SetDirection(reverse)
}

// Reverse reports whether the direction output is set to reverse
func (g *StepPulseGenerator) Reverse() bool {
	return g.reverse.Load()
}

// ResetSteps clears the step counter
func (g *StepPulseGenerator) ResetSteps() {
	g.steps.Store(0)
}

// StepsPerformed returns the number of completed pulses since the last run
func (g *StepPulseGenerator) StepsPerformed() uint32 {
	return g.steps.Load()
}

// StepPeriod returns the configured period in seconds, zero if unconfigured
func (g *StepPulseGenerator) StepPeriod() float32 {
	return math.Float32frombits(g.periodBits.Load())
}

// Configured reports whether a period has been set
func (g *StepPulseGenerator) Configured() bool {
	return g.configured.Load()
}

// State returns the current motion state
func (g *StepPulseGenerator) State() MotionState {
	return MotionState(g.state.Load())
}

// Backend returns the hardware backend
func (g *StepPulseGenerator) Backend() StepperBackend {
	return g.backend
}

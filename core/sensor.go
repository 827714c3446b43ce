package core

// Homing and port positioning
// A single poll timer samples the home and port sensors while one axis runs
// toward a reference position. Only one axis can position at a time: arming
// a new session replaces the previous one.

const (
	// HomingPollInterval is the sensor sampling period in ticks (100ms)
	HomingPollInterval = 100000

	edgeQueueSize = 4
)

// HomingSession describes the active positioning run
type HomingSession struct {
	Axis              AxisID
	Mode              HomingMode
	PreviousPortLevel bool

	// Seq increases on every Arm so stale edge events can be recognised
	Seq uint32
}

// EdgeEvent is posted by the poll timer when the session's sensor condition
// is met. The poll timer never stops the axis itself.
type EdgeEvent struct {
	Axis  AxisID
	Mode  HomingMode
	Seq   uint32
	Clock uint32
}

// SensorEdgeDetector polls the home and port sensors on behalf of one
// HomingSession at a time
type SensorEdgeDetector struct {
	home *DigitalIn
	port *DigitalIn

	sched     *Scheduler
	pollTimer Timer
	interval  uint32
	running   func(AxisID) bool

	// Guarded by the scheduler's critical section
	session HomingSession
	active  bool
	seq     uint32

	events chan EdgeEvent
}

// NewSensorEdgeDetector creates a detector. running reports whether an axis
// is still pulsing; it is called from timer context and must not block.
// A zero interval selects HomingPollInterval.
func NewSensorEdgeDetector(sched *Scheduler, home, port *DigitalIn, interval uint32, running func(AxisID) bool) *SensorEdgeDetector {
	if interval == 0 {
		interval = HomingPollInterval
	}
	d := &SensorEdgeDetector{
		home:     home,
		port:     port,
		sched:    sched,
		interval: interval,
		running:  running,
		events:   make(chan EdgeEvent, edgeQueueSize),
	}
	d.pollTimer.Handler = d.pollEvent
	return d
}

// Events returns the channel edge events are delivered on
func (d *SensorEdgeDetector) Events() <-chan EdgeEvent {
	return d.events
}

// HomeLevel returns the raw home sensor level
func (d *SensorEdgeDetector) HomeLevel() bool {
	return d.home.Level()
}

// PortLevel returns the raw port sensor level
func (d *SensorEdgeDetector) PortLevel() bool {
	return d.port.Level()
}

// AtHome reports whether both sensors are asserted
func (d *SensorEdgeDetector) AtHome() bool {
	return !d.home.Level() && !d.port.Level()
}

// Arm starts a session for axis, replacing any active one, and (re)starts the
// poll timer. The port level is sampled now so a PORT session only ends on a
// transition that happens after arming. It returns the session sequence.
func (d *SensorEdgeDetector) Arm(axis AxisID, mode HomingMode) uint32 {
	portLevel := d.port.Level()

	var seq, wake uint32
	d.sched.Critical(func() {
		d.seq++
		seq = d.seq
		d.session = HomingSession{
			Axis:              axis,
			Mode:              mode,
			PreviousPortLevel: portLevel,
			Seq:               seq,
		}
		d.active = true

		d.sched.removeLocked(&d.pollTimer)
		wake = d.sched.Now() + d.interval
		d.pollTimer.WakeTime = wake
		d.sched.insertLocked(&d.pollTimer)
	})

	RecordTiming(EvtPollArmed, uint8(axis), wake, uint32(mode), seq)
	return seq
}

// Disarm ends the active session, if any. Safe to call when nothing is armed.
func (d *SensorEdgeDetector) Disarm() {
	d.sched.Critical(func() {
		d.active = false
		d.sched.removeLocked(&d.pollTimer)
	})
}

// Session returns a copy of the active session
func (d *SensorEdgeDetector) Session() (HomingSession, bool) {
	var s HomingSession
	var ok bool
	d.sched.Critical(func() {
		s, ok = d.session, d.active
	})
	return s, ok
}

// DisarmAxis ends the session only if it belongs to axis
func (d *SensorEdgeDetector) DisarmAxis(axis AxisID) bool {
	var disarmed bool
	d.sched.Critical(func() {
		if d.active && d.session.Axis == axis {
			d.active = false
			d.sched.removeLocked(&d.pollTimer)
			disarmed = true
		}
	})
	return disarmed
}

// pollEvent samples the sensors. Runs in timer context.
func (d *SensorEdgeDetector) pollEvent(t *Timer) uint8 {
	if !d.active {
		return SF_DONE
	}
	s := &d.session

	// The axis stopped some other way; nothing left to watch for
	if !d.running(s.Axis) {
		d.active = false
		RecordTiming(EvtPollExpired, uint8(s.Axis), t.WakeTime, s.Seq, 0)
		return SF_DONE
	}

	home := d.home.Level()
	port := d.port.Level()

	var edge bool
	switch s.Mode {
	case HomingHome:
		edge = !home && !port
	case HomingPort:
		edge = s.PreviousPortLevel && !port
	}

	if edge {
		select {
		case d.events <- EdgeEvent{Axis: s.Axis, Mode: s.Mode, Seq: s.Seq, Clock: t.WakeTime}:
			d.active = false
			RecordTiming(EvtEdgeDetected, uint8(s.Axis), t.WakeTime, uint32(s.Mode), s.Seq)
			return SF_DONE
		default:
			// Consumer is behind; keep the previous level so the edge is
			// seen again on the next poll
			t.WakeTime += d.interval
			return SF_RESCHEDULE
		}
	}

	s.PreviousPortLevel = port
	t.WakeTime += d.interval
	return SF_RESCHEDULE
}

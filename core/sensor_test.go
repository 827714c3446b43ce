package core

import "testing"

type sensorRig struct {
	gpio    *MemGPIO
	clk     *fakeClock
	sched   *Scheduler
	det     *SensorEdgeDetector
	running [NumAxes]bool
}

func newSensorRig(t *testing.T) *sensorRig {
	t.Helper()

	r := &sensorRig{gpio: NewMemGPIO(), clk: &fakeClock{}}
	r.sched = NewScheduler(r.clk.Now)

	home, err := NewDigitalIn(r.gpio, testHomePin)
	if err != nil {
		t.Fatalf("NewDigitalIn failed: %v", err)
	}
	port, err := NewDigitalIn(r.gpio, testPortPin)
	if err != nil {
		t.Fatalf("NewDigitalIn failed: %v", err)
	}

	// running is read under the scheduler lock, like the controller's check
	r.det = NewSensorEdgeDetector(r.sched, home, port, 0, func(a AxisID) bool {
		return r.running[a]
	})
	return r
}

func (r *sensorRig) setRunning(axis AxisID, running bool) {
	r.sched.Critical(func() { r.running[axis] = running })
}

func (r *sensorRig) poll() {
	advance(r.clk, r.sched, HomingPollInterval)
}

func (r *sensorRig) event() (EdgeEvent, bool) {
	select {
	case ev := <-r.det.Events():
		return ev, true
	default:
		return EdgeEvent{}, false
	}
}

func TestHomeModeNeedsBothSensors(t *testing.T) {
	r := newSensorRig(t)
	r.setRunning(AxisY, true)

	seq := r.det.Arm(AxisY, HomingHome)

	// Port alone is not home
	r.gpio.SetInput(testPortPin, false)
	r.poll()
	if _, ok := r.event(); ok {
		t.Fatal("Expected no edge with only the port sensor asserted")
	}

	// Home alone is not home either
	r.gpio.SetInput(testPortPin, true)
	r.gpio.SetInput(testHomePin, false)
	r.poll()
	if _, ok := r.event(); ok {
		t.Fatal("Expected no edge with only the home sensor asserted")
	}

	r.gpio.SetInput(testPortPin, false)
	r.poll()
	ev, ok := r.event()
	if !ok {
		t.Fatal("Expected an edge with both sensors asserted")
	}
	if ev.Axis != AxisY || ev.Mode != HomingHome || ev.Seq != seq {
		t.Errorf("Unexpected event %+v", ev)
	}

	if _, active := r.det.Session(); active {
		t.Error("Expected session to end after the edge")
	}
	if r.sched.Armed(&r.det.pollTimer) {
		t.Error("Expected poll timer disarmed after the edge")
	}
}

func TestPortModeNeedsTransition(t *testing.T) {
	r := newSensorRig(t)
	r.setRunning(AxisX, true)

	// Armed while sitting on a port: low at arm time is not an edge
	r.gpio.SetInput(testPortPin, false)
	r.det.Arm(AxisX, HomingPort)

	r.poll()
	r.poll()
	if _, ok := r.event(); ok {
		t.Fatal("Expected no edge while the port sensor stays low")
	}

	r.gpio.SetInput(testPortPin, true)
	r.poll()
	if s, _ := r.det.Session(); !s.PreviousPortLevel {
		t.Error("Expected previous port level to follow the sensor")
	}

	r.gpio.SetInput(testPortPin, false)
	r.poll()
	ev, ok := r.event()
	if !ok {
		t.Fatal("Expected an edge on the high to low transition")
	}
	if ev.Mode != HomingPort {
		t.Errorf("Expected PORT mode, got %v", ev.Mode)
	}
}

func TestPollEndsWhenAxisStops(t *testing.T) {
	r := newSensorRig(t)
	r.setRunning(AxisZ, true)
	r.det.Arm(AxisZ, HomingHome)

	r.poll()
	if _, active := r.det.Session(); !active {
		t.Fatal("Expected session active while the axis runs")
	}

	r.setRunning(AxisZ, false)
	r.poll()
	if _, active := r.det.Session(); active {
		t.Error("Expected session to end once the axis stopped")
	}

	// Sensors asserting later must not produce an edge
	r.gpio.SetInput(testHomePin, false)
	r.gpio.SetInput(testPortPin, false)
	r.poll()
	if _, ok := r.event(); ok {
		t.Error("Expected no edge after the session ended")
	}
}

func TestArmReplacesSession(t *testing.T) {
	r := newSensorRig(t)
	r.setRunning(AxisX, true)
	r.setRunning(AxisY, true)

	first := r.det.Arm(AxisX, HomingHome)
	second := r.det.Arm(AxisY, HomingPort)
	if second == first {
		t.Fatal("Expected a new sequence for the replacing session")
	}

	s, active := r.det.Session()
	if !active || s.Axis != AxisY || s.Mode != HomingPort || s.Seq != second {
		t.Errorf("Expected the Y/PORT session, got %+v (active=%v)", s, active)
	}
}

func TestDisarmAxis(t *testing.T) {
	r := newSensorRig(t)
	r.setRunning(AxisX, true)
	r.det.Arm(AxisX, HomingHome)

	if r.det.DisarmAxis(AxisY) {
		t.Error("Expected DisarmAxis on another axis to do nothing")
	}
	if !r.det.DisarmAxis(AxisX) {
		t.Error("Expected DisarmAxis on the session axis to disarm")
	}
	if r.sched.Armed(&r.det.pollTimer) {
		t.Error("Expected poll timer disarmed")
	}

	// Disarm with nothing armed is harmless
	r.det.Disarm()
}

func TestEdgeRetriedWhenQueueFull(t *testing.T) {
	r := newSensorRig(t)
	r.setRunning(AxisX, true)

	// Fill the queue the way a stalled consumer would
	for i := 0; i < edgeQueueSize; i++ {
		r.det.events <- EdgeEvent{}
	}

	r.gpio.SetInput(testPortPin, true)
	r.det.Arm(AxisX, HomingPort)
	r.gpio.SetInput(testPortPin, false)
	r.poll()

	if _, active := r.det.Session(); !active {
		t.Fatal("Expected session kept armed while the queue is full")
	}

	// Drain and poll again: the edge is still seen
	for i := 0; i < edgeQueueSize; i++ {
		<-r.det.events
	}
	r.poll()
	if _, ok := r.event(); !ok {
		t.Error("Expected the edge to be delivered on the next poll")
	}
}

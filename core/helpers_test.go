package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"steppump/protocol"
)

// fakeClock is a manually advanced tick source
type fakeClock struct {
	now atomic.Uint32
}

func (c *fakeClock) Now() uint32 {
	return c.now.Load()
}

// advance moves the clock forward in 100us slices, dispatching timers after
// each slice the way the target main loops do
func advance(clk *fakeClock, sched *Scheduler, ticks uint32) {
	for ticks > 0 {
		slice := uint32(100)
		if slice > ticks {
			slice = ticks
		}
		clk.now.Add(slice)
		sched.ProcessTimers()
		ticks -= slice
	}
}

// Test board wiring
const (
	testHomePin   GPIOPin = 10
	testPortPin   GPIOPin = 11
	testEnablePin GPIOPin = 8
	testLEDPin    GPIOPin = 25
)

var (
	testStepPins = [NumAxes]GPIOPin{0, 1, 2}
	testDirPins  = [NumAxes]GPIOPin{3, 4, 5}
)

type staticNetwork struct {
	ip, mac string
}

func (n staticNetwork) IPAddress() string       { return n.ip }
func (n staticNetwork) HardwareAddress() string { return n.mac }

// testRig is a running controller on an in-memory board
type testRig struct {
	c     *Controller
	gpio  *MemGPIO
	clk   *fakeClock
	sched *Scheduler
}

func newTestRig(t *testing.T, mutate func(*ControllerConfig)) *testRig {
	t.Helper()

	r := &testRig{gpio: NewMemGPIO(), clk: &fakeClock{}}
	r.sched = NewScheduler(r.clk.Now)

	cfg := ControllerConfig{
		GPIO:         r.gpio,
		Scheduler:    r.sched,
		StepPins:     testStepPins,
		DirPins:      testDirPins,
		EnablePin:    testEnablePin,
		UseEnablePin: true,
		HomePin:      testHomePin,
		PortPin:      testPortPin,
		LEDPin:       testLEDPin,
		StepsPerML:   200,
		DeviceID:     "pump-test",
		Network:      staticNetwork{ip: "10.0.0.7", mac: "02:00:00:00:00:07"},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	r.c = c

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})

	return r
}

func (r *testRig) advance(ticks uint32) {
	advance(r.clk, r.sched, ticks)
}

func (r *testRig) connect(t *testing.T) {
	t.Helper()
	if err := r.c.ClientConnected(context.Background()); err != nil {
		t.Fatalf("ClientConnected failed: %v", err)
	}
}

func (r *testRig) exec(t *testing.T, cmd protocol.Command) (protocol.Header, []byte) {
	t.Helper()

	reply, err := r.c.Execute(context.Background(), protocol.EncodeCommand(cmd))
	if err != nil {
		t.Fatalf("Execute(%v) failed: %v", cmd.FID(), err)
	}
	h, payload, err := protocol.SplitFrame(reply)
	if err != nil {
		t.Fatalf("Bad reply frame %v: %v", reply, err)
	}
	if h.FID != cmd.FID() {
		t.Fatalf("Expected reply fid %v, got %v", cmd.FID(), h.FID)
	}
	return h, payload
}

// code runs cmd and returns the reply status
func (r *testRig) code(t *testing.T, cmd protocol.Command) protocol.Code {
	t.Helper()
	h, _ := r.exec(t, cmd)
	return h.Error
}

func (r *testRig) mustOK(t *testing.T, cmd protocol.Command) {
	t.Helper()
	if code := r.code(t, cmd); code != protocol.CodeOK {
		t.Fatalf("%v: expected OK, got %v", cmd.FID(), code)
	}
}

func (r *testRig) status(t *testing.T, axis int32) protocol.Status {
	t.Helper()
	h, payload := r.exec(t, protocol.GetStatus{Axis: axis})
	if h.Error != protocol.CodeOK {
		t.Fatalf("GET_STATUS: expected OK, got %v", h.Error)
	}
	st, err := protocol.DecodeStatus(payload)
	if err != nil {
		t.Fatalf("DecodeStatus failed: %v", err)
	}
	return st
}

// setSensors drives the active-low home and port inputs
func (r *testRig) setSensors(home, port bool) {
	r.gpio.SetInput(testHomePin, home)
	r.gpio.SetInput(testPortPin, port)
}

// waitFor polls cond until it holds. Edge events are handled on the Run
// goroutine, so their effects appear asynchronously.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func approxEqual(a, b float32) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}

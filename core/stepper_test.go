package core

import (
	"sync/atomic"
	"testing"
)

// recordingBackend counts the rising edges it is asked to drive
type recordingBackend struct {
	level   atomic.Bool
	rising  atomic.Uint32
	reverse atomic.Bool
	stops   atomic.Uint32
}

func (b *recordingBackend) Init(stepPin, dirPin GPIOPin) error { return nil }

func (b *recordingBackend) SetStep(high bool) {
	if high && !b.level.Load() {
		b.rising.Add(1)
	}
	b.level.Store(high)
}

func (b *recordingBackend) SetDirection(reverse bool) { b.reverse.Store(reverse) }

func (b *recordingBackend) Stop() {
	b.level.Store(false)
	b.stops.Add(1)
}

func (b *recordingBackend) GetName() string { return "recording" }

func newTestGenerator(axis AxisID) (*StepPulseGenerator, *recordingBackend, *fakeClock, *Scheduler) {
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)
	backend := &recordingBackend{}
	return NewStepPulseGenerator(axis, sched, backend), backend, clk, sched
}

func TestStepperRunUnconfigured(t *testing.T) {
	g, _, _, sched := newTestGenerator(AxisX)

	if g.Run() {
		t.Fatal("Expected Run to fail on an unconfigured axis")
	}
	if g.State() != MotionIdle {
		t.Errorf("Expected IDLE, got %v", g.State())
	}
	if sched.Armed(&g.stepTimer) {
		t.Error("Expected step timer to stay disarmed")
	}
}

func TestStepperCountsFullCycles(t *testing.T) {
	g, backend, clk, sched := newTestGenerator(AxisX)
	g.Configure(0.01)

	if !g.Run() {
		t.Fatal("Run failed")
	}
	if g.State() != MotionRunning {
		t.Fatalf("Expected RUNNING, got %v", g.State())
	}

	// Half period is 5ms: rising edges at 5ms, 15ms, 25ms...
	advance(clk, sched, 4900)
	if g.StepsPerformed() != 0 {
		t.Errorf("Expected 0 steps before first edge, got %d", g.StepsPerformed())
	}

	advance(clk, sched, 100)
	if g.StepsPerformed() != 1 {
		t.Errorf("Expected 1 step at first rising edge, got %d", g.StepsPerformed())
	}

	// Falling edge at 10ms does not count
	advance(clk, sched, 5000)
	if g.StepsPerformed() != 1 {
		t.Errorf("Expected falling edge not to count, got %d", g.StepsPerformed())
	}

	advance(clk, sched, 990000)
	if g.StepsPerformed() != 100 {
		t.Errorf("Expected 100 steps after 1s at 10ms, got %d", g.StepsPerformed())
	}
	if backend.rising.Load() != g.StepsPerformed() {
		t.Errorf("Expected %d rising edges on the line, got %d", g.StepsPerformed(), backend.rising.Load())
	}
}

func TestStepperRunIdempotent(t *testing.T) {
	g, _, clk, sched := newTestGenerator(AxisY)
	g.Configure(0.01)
	g.Run()

	advance(clk, sched, 50000)
	before := g.StepsPerformed()
	if before == 0 {
		t.Fatal("Expected some steps")
	}

	if !g.Run() {
		t.Fatal("Expected Run on a running axis to succeed")
	}
	if g.StepsPerformed() != before {
		t.Errorf("Expected step count %d kept, got %d", before, g.StepsPerformed())
	}
}

func TestStepperStop(t *testing.T) {
	g, backend, clk, sched := newTestGenerator(AxisZ)
	g.Configure(0.004)
	g.Run()

	// Stop mid-pulse with the line high
	advance(clk, sched, 2000)
	if !backend.level.Load() {
		t.Fatal("Expected step line high after first half period")
	}

	g.Stop()
	if backend.level.Load() {
		t.Error("Expected Stop to force the line low")
	}
	if g.State() != MotionIdle {
		t.Errorf("Expected IDLE, got %v", g.State())
	}
	if sched.Armed(&g.stepTimer) {
		t.Error("Expected step timer disarmed")
	}

	steps := g.StepsPerformed()
	advance(clk, sched, 100000)
	if g.StepsPerformed() != steps {
		t.Errorf("Expected no steps after Stop, got %d more", g.StepsPerformed()-steps)
	}

	// Stopping twice is harmless
	g.Stop()
	if backend.stops.Load() != 2 {
		t.Errorf("Expected backend stopped twice, got %d", backend.stops.Load())
	}
}

func TestStepperRestartResetsCount(t *testing.T) {
	g, _, clk, sched := newTestGenerator(AxisX)
	g.Configure(0.01)
	g.Run()
	advance(clk, sched, 100000)
	g.Stop()

	if g.StepsPerformed() == 0 {
		t.Fatal("Expected steps retained after Stop")
	}

	g.Run()
	if g.StepsPerformed() != 0 {
		t.Errorf("Expected Run to reset the count, got %d", g.StepsPerformed())
	}
}

func TestStepperIndependentAxes(t *testing.T) {
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)

	a := NewStepPulseGenerator(AxisX, sched, &recordingBackend{})
	b := NewStepPulseGenerator(AxisY, sched, &recordingBackend{})
	a.Configure(0.01)
	b.Configure(0.004)
	a.Run()
	b.Run()

	advance(clk, sched, 1000000)

	checkSteps := func(name string, got, want uint32) {
		if got+1 < want || got > want+1 {
			t.Errorf("%s: expected %d +/- 1 steps, got %d", name, want, got)
		}
	}
	checkSteps("axis A", a.StepsPerformed(), 100)
	checkSteps("axis B", b.StepsPerformed(), 250)

	a.Stop()
	if b.State() != MotionRunning {
		t.Errorf("Expected axis B still RUNNING, got %v", b.State())
	}

	before := b.StepsPerformed()
	advance(clk, sched, 40000)
	if b.StepsPerformed() != before+10 {
		t.Errorf("Expected axis B to keep stepping, got %d -> %d", before, b.StepsPerformed())
	}
}

func TestStepperReconfigureWhileRunning(t *testing.T) {
	g, _, clk, sched := newTestGenerator(AxisX)
	g.Configure(0.01)
	g.Run()

	advance(clk, sched, 100000) // 10 steps
	g.Configure(0.02)
	if g.StepPeriod() != 0.02 {
		t.Errorf("Expected period 0.02, got %v", g.StepPeriod())
	}

	advance(clk, sched, 200000)
	if got := g.StepsPerformed(); got < 19 || got > 21 {
		t.Errorf("Expected about 20 steps after slowing down, got %d", got)
	}
}

func TestStepperDirection(t *testing.T) {
	g, backend, _, _ := newTestGenerator(AxisX)

	g.SetDirection(true)
	if !g.Reverse() || !backend.reverse.Load() {
		t.Error("Expected reverse direction")
	}
	g.SetDirection(false)
	if g.Reverse() || backend.reverse.Load() {
		t.Error("Expected forward direction")
	}
}

func TestStepperBackend(t *testing.T) {
	g, backend, _, _ := newTestGenerator(AxisY)

	if g.Backend() != StepperBackend(backend) {
		t.Error("Expected the generator to expose its backend")
	}
	if g.Backend().GetName() != "recording" {
		t.Errorf("Expected backend name recording, got %s", g.Backend().GetName())
	}
}

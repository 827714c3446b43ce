package core

import "testing"

func newTestIndicator(t *testing.T, activeLow bool) (*Indicator, *MemGPIO, *fakeClock, *Scheduler) {
	t.Helper()
	mem := NewMemGPIO()
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)

	led, err := NewDigitalOut(mem, testLEDPin, activeLow)
	if err != nil {
		t.Fatalf("NewDigitalOut failed: %v", err)
	}
	return NewIndicator(sched, led, 0), mem, clk, sched
}

func TestIndicatorBlinksWhileWaiting(t *testing.T) {
	ind, _, clk, sched := newTestIndicator(t, false)

	ind.Show(BoardWaitForConnection)
	if ind.Lit() {
		t.Fatal("Expected LED off before the first blink")
	}

	advance(clk, sched, BlinkInterval)
	if !ind.Lit() {
		t.Error("Expected LED on after 500ms")
	}

	// Showing the same state again keeps the phase
	ind.Show(BoardWaitForConnection)
	advance(clk, sched, BlinkInterval)
	if ind.Lit() {
		t.Error("Expected LED off after 1s")
	}
}

func TestIndicatorStates(t *testing.T) {
	ind, mem, clk, sched := newTestIndicator(t, true)

	ind.Show(BoardWaitForConnection)
	ind.Show(BoardIdle)
	if !ind.Lit() {
		t.Fatal("Expected LED solid on when idle")
	}
	if mem.ReadPin(testLEDPin) {
		t.Error("Expected active-low LED pin driven low when on")
	}

	advance(clk, sched, 3*BlinkInterval)
	if !ind.Lit() {
		t.Error("Expected idle LED to stop blinking")
	}

	ind.Show(BoardPumpRunning)
	if !ind.Lit() {
		t.Error("Expected running state to leave the LED as it was")
	}

	ind.Show(BoardState(9))
	if ind.Lit() {
		t.Error("Expected unknown state to turn the LED off")
	}
}

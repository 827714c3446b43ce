package core

import "testing"

func TestSchedulerDispatchOrder(t *testing.T) {
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)

	var order []int
	mk := func(id int, wake uint32) *Timer {
		return &Timer{WakeTime: wake, Handler: func(*Timer) uint8 {
			order = append(order, id)
			return SF_DONE
		}}
	}

	sched.Schedule(mk(3, 300))
	sched.Schedule(mk(1, 100))
	sched.Schedule(mk(2, 200))
	sched.Schedule(mk(4, 200)) // same wake time keeps insertion order

	clk.now.Store(250)
	sched.ProcessTimers()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 4 {
		t.Fatalf("Expected [1 2 4], got %v", order)
	}

	clk.now.Store(300)
	sched.ProcessTimers()
	if len(order) != 4 || order[3] != 3 {
		t.Errorf("Expected timer 3 last, got %v", order)
	}
}

func TestSchedulerReschedule(t *testing.T) {
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)

	fired := 0
	timer := &Timer{WakeTime: 10, Handler: func(t *Timer) uint8 {
		fired++
		t.WakeTime += 10
		return SF_RESCHEDULE
	}}
	sched.Schedule(timer)

	advance(clk, sched, 1000)

	if fired != 100 {
		t.Errorf("Expected 100 firings, got %d", fired)
	}
	if !sched.Armed(timer) {
		t.Error("Expected periodic timer to stay armed")
	}
}

func TestSchedulerCancelIdempotent(t *testing.T) {
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)

	fired := false
	timer := &Timer{WakeTime: 50, Handler: func(*Timer) uint8 {
		fired = true
		return SF_DONE
	}}

	// Cancelling an idle timer is harmless
	sched.Cancel(timer)

	sched.Schedule(timer)
	sched.Schedule(timer) // re-scheduling must not duplicate the entry
	sched.Cancel(timer)
	sched.Cancel(timer)

	if sched.Armed(timer) {
		t.Fatal("Expected timer to be disarmed")
	}

	clk.now.Store(100)
	sched.ProcessTimers()
	if fired {
		t.Error("Cancelled timer fired")
	}
}

func TestSchedulerMovesQueuedTimer(t *testing.T) {
	clk := &fakeClock{}
	sched := NewScheduler(clk.Now)

	count := 0
	timer := &Timer{WakeTime: 100, Handler: func(*Timer) uint8 {
		count++
		return SF_DONE
	}}
	sched.Schedule(timer)

	sched.Cancel(timer)
	timer.WakeTime = 500
	sched.Schedule(timer)

	clk.now.Store(200)
	sched.ProcessTimers()
	if count != 0 {
		t.Fatalf("Expected no firing at 200, got %d", count)
	}

	clk.now.Store(500)
	sched.ProcessTimers()
	if count != 1 {
		t.Errorf("Expected one firing at 500, got %d", count)
	}
}

func TestSchedulerClockWrap(t *testing.T) {
	clk := &fakeClock{}
	clk.now.Store(0xFFFFFF00)
	sched := NewScheduler(clk.Now)

	var order []uint32
	handler := func(t *Timer) uint8 {
		order = append(order, t.WakeTime)
		return SF_DONE
	}

	// 0x40 is after 0xFFFFFFF0 on the wrapping clock
	late := &Timer{WakeTime: 0x40, Handler: handler}
	early := &Timer{WakeTime: 0xFFFFFFF0, Handler: handler}
	sched.Schedule(late)
	sched.Schedule(early)

	clk.now.Store(0xFFFFFFF8)
	sched.ProcessTimers()
	if len(order) != 1 || order[0] != 0xFFFFFFF0 {
		t.Fatalf("Expected only the pre-wrap timer, got %v", order)
	}

	clk.now.Store(0x100)
	sched.ProcessTimers()
	if len(order) != 2 || order[1] != 0x40 {
		t.Errorf("Expected post-wrap timer to fire, got %v", order)
	}
}

func TestTimerConversions(t *testing.T) {
	if got := TimerFromUS(1500); got != 1500 {
		t.Errorf("Expected 1500 ticks, got %d", got)
	}
	if got := TimerToUS(250000); got != 250000 {
		t.Errorf("Expected 250000us, got %d", got)
	}
	if got := halfPeriodTicks(0.01); got != 5000 {
		t.Errorf("Expected 5000 tick half period, got %d", got)
	}
	if got := halfPeriodTicks(0.0027); got != 1350 {
		t.Errorf("Expected 1350 tick half period, got %d", got)
	}
}

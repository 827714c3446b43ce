package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer

	queued bool
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by WakeTime and runs the due ones from
// ProcessTimers. Handlers run inside the scheduler's critical section: they
// must return quickly and must not call back into the Scheduler. A handler
// that wants to run again advances t.WakeTime and returns SF_RESCHEDULE.
type Scheduler struct {
	cs    criticalSection
	list  *Timer
	clock func() uint32
}

// NewScheduler creates a scheduler reading time from clock. A nil clock
// uses the global tick clock.
func NewScheduler(clock func() uint32) *Scheduler {
	if clock == nil {
		clock = GetTime
	}
	return &Scheduler{clock: clock}
}

var defaultScheduler = NewScheduler(GetTime)

// DefaultScheduler returns the scheduler driven by the global tick clock
func DefaultScheduler() *Scheduler {
	return defaultScheduler
}

// ProcessTimers dispatches due timers on the default schedule
func ProcessTimers() {
	defaultScheduler.ProcessTimers()
}

// Now returns the scheduler's current time in ticks
func (s *Scheduler) Now() uint32 {
	return s.clock()
}

// Schedule adds t at t.WakeTime. A timer that is already queued is moved.
func (s *Scheduler) Schedule(t *Timer) {
	s.cs.enter()
	defer s.cs.exit()

	s.removeLocked(t)
	s.insertLocked(t)
}

// Cancel removes t from the schedule. Cancelling an idle timer is a no-op.
func (s *Scheduler) Cancel(t *Timer) {
	s.cs.enter()
	defer s.cs.exit()

	s.removeLocked(t)
}

// Armed reports whether t is queued
func (s *Scheduler) Armed(t *Timer) bool {
	s.cs.enter()
	defer s.cs.exit()

	return t.queued
}

// Critical runs fn with timer dispatch held off, so fn can update state
// shared with timer handlers
func (s *Scheduler) Critical(fn func()) {
	s.cs.enter()
	defer s.cs.exit()

	fn()
}

// ProcessTimers runs every timer whose WakeTime is not after the current time
func (s *Scheduler) ProcessTimers() {
	s.cs.enter()
	defer s.cs.exit()

	now := s.clock()
	for s.list != nil && !timeBefore(now, s.list.WakeTime) {
		timer := s.list
		s.list = timer.Next
		timer.Next = nil // Clear Next pointer to avoid circular references
		timer.queued = false

		if timer.Handler(timer) == SF_RESCHEDULE {
			if timeBefore(timer.WakeTime, now) {
				RecordTiming(EvtTimerPast, 0, now, timer.WakeTime, 0)
			}
			s.insertLocked(timer)
		}
	}
}

// insertLocked inserts a timer in sorted order by WakeTime. Timers with equal
// WakeTime keep insertion order.
func (s *Scheduler) insertLocked(t *Timer) {
	t.queued = true

	if s.list == nil || timeBefore(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !timeBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

func (s *Scheduler) removeLocked(t *Timer) {
	if !t.queued {
		return
	}
	t.queued = false

	if s.list == t {
		s.list = t.Next
		t.Next = nil
		return
	}
	for current := s.list; current != nil; current = current.Next {
		if current.Next == t {
			current.Next = t.Next
			break
		}
	}
	t.Next = nil
}

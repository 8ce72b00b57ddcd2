package coop

import "time"

// The suspend operations below are the only points at which control moves
// between coroutines. All of them must be called from inside a running
// coroutine of this scheduler; calling them from anywhere else panics.

// Switch suspends the calling coroutine and transfers control to another.
// Passing nil switches to the main context. The calling coroutine is left
// ready to resume and continues from this call when something switches back
// into it.
//
// Switching into a coroutine that has ended is a caller error: no resumable
// state exists.
func (s *Scheduler) Switch(to *Coroutine) {
	c := s.mustCurrent("Switch")
	if to == nil {
		to = s.main
	}
	if to.state == StateEnded {
		panic("coop.Switch: switch into an ended coroutine")
	}
	c.state = StateResuming
	s.current = to
	s.park(c)
}

// Yield suspends the calling coroutine until a future turn of the host
// loop. It resumes as soon as possible, but never before control has
// returned to the host.
func (s *Scheduler) Yield() {
	c := s.mustCurrent("Yield")
	c.state = StateWaitingYield
	s.park(c)
}

// WaitFrame suspends the calling coroutine until the host's next frame
// callback.
func (s *Scheduler) WaitFrame() {
	c := s.mustCurrent("WaitFrame")
	c.state = StateWaitingFrame
	s.park(c)
}

// Sleep suspends the calling coroutine for at least d. The host may resume
// it later than requested, never earlier. Negative durations sleep for 0,
// which still parks the coroutine for one turn of the host loop.
func (s *Scheduler) Sleep(d time.Duration) {
	c := s.mustCurrent("Sleep")
	if d < 0 {
		d = 0
	}
	c.state = StateSleeping
	c.sleep = d
	s.park(c)
}

// Host timers are only accurate to a few milliseconds, so SleepPrecise
// sleeps through the bulk of the wait with a slightly shortened timer and
// spins on Yield for the remainder.
const (
	preciseGuard = 4500 * time.Microsecond
	preciseShave = 500 * time.Microsecond
)

// SleepPrecise suspends the calling coroutine until at least d has elapsed
// on the monotonic clock, with better accuracy than the host's timer
// granularity. From the caller's point of view it is indistinguishable from
// a blocking sleep. Like the other suspend operations it must be called
// from inside a running coroutine.
func (s *Scheduler) SleepPrecise(d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return
		}
		if remain > preciseGuard {
			s.Sleep(remain - preciseShave)
		} else {
			s.Yield()
		}
	}
}

package coop

import (
	"time"

	"github.com/dispatchrun/coop/internal/eventloop"
)

// Host is the set of wake sources the dispatcher multiplexes over. Every
// registration is one-shot: the callback runs once and the dispatcher
// re-arms on the next pending wait. Callbacks must be delivered one at a
// time, never concurrently; the scheduler's state is unlocked and relies on
// the host owning a single thread of control.
//
// A non-nil error means the wake source is unavailable; the dispatcher
// treats that as fatal, since the waiting coroutine would otherwise hang
// forever.
type Host interface {
	// Post schedules fn to run on a future turn of the host loop, as soon
	// as possible but never synchronously.
	Post(fn func()) error

	// RequestFrame schedules fn to run before the host's next frame.
	RequestFrame(fn func()) error

	// ScheduleTimer schedules fn to run no earlier than d from now.
	ScheduleTimer(d time.Duration, fn func()) error
}

// LoopHost adapts an eventloop.Loop to the Host interface.
type LoopHost struct {
	Loop *eventloop.Loop
}

func (h LoopHost) Post(fn func()) error { return h.Loop.Post(fn) }

func (h LoopHost) RequestFrame(fn func()) error { return h.Loop.OnFrame(fn) }

func (h LoopHost) ScheduleTimer(d time.Duration, fn func()) error { return h.Loop.After(d, fn) }

package coop

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/tliron/commonlog"

	"github.com/dispatchrun/coop/internal/eventloop"
)

// ErrAllocFailed wraps stack allocation failures reported by New and Run.
var ErrAllocFailed = errors.New("coop: stack allocation failed")

// Scheduler multiplexes any number of coroutines over the single thread of
// control granted by a Host. Exactly one coroutine runs at any instant;
// control moves between them only at the explicit suspend points (Switch,
// Yield, WaitFrame, Sleep).
//
// A Scheduler is not safe for concurrent use from multiple goroutines: its
// model is strictly single-threaded, with the host loop and the one running
// coroutine alternating. Scheduler methods must be called either from inside
// the running coroutine or from outside while no coroutine is running.
type Scheduler struct {
	host          Host
	alloc         Allocator
	log           commonlog.Logger
	trace         *Trace
	stackSize     int
	frameInterval time.Duration

	ownedLoop *eventloop.Loop

	// Everything below is only ever touched by the scheduler's single
	// logical thread of control, so no locking is needed.
	current *Coroutine
	main    *Coroutine
	coros   []*Coroutine
	parked  chan struct{}
	running bool
	nextID  int32
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHost supplies the wake sources. Without this option the scheduler
// creates and owns an internal event loop.
func WithHost(h Host) Option {
	return func(s *Scheduler) { s.host = h }
}

// WithAllocator supplies the stack region allocator.
func WithAllocator(a Allocator) Option {
	return func(s *Scheduler) { s.alloc = a }
}

// WithDefaultStackSize sets the stack region size used when a coroutine is
// created without WithStackSize.
func WithDefaultStackSize(size int) Option {
	return func(s *Scheduler) { s.stackSize = size }
}

// WithTrace enables switch instrumentation, keeping the last depth events.
func WithTrace(depth int) Option {
	return func(s *Scheduler) { s.trace = newTrace(depth) }
}

// WithLogger overrides the default "coop" logger.
func WithLogger(l commonlog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler creates a scheduler. If no Host is supplied, an internal
// event loop is started and owned by the scheduler; Close stops it.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		alloc:         heapAllocator{},
		log:           commonlog.GetLogger("coop"),
		stackSize:     DefaultStackSize,
		frameInterval: eventloop.DefaultFrameInterval,
		parked:        make(chan struct{}),
		nextID:        1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == nil {
		loop := eventloop.New(eventloop.WithFrameInterval(s.frameInterval))
		go loop.Run()
		s.ownedLoop = loop
		s.host = LoopHost{Loop: loop}
	}
	return s
}

// Close stops the scheduler's internal event loop, if it owns one. Parked
// coroutines are not interrupted; release them with Free first if their
// stack regions matter.
func (s *Scheduler) Close() {
	if s.ownedLoop != nil {
		s.ownedLoop.Stop()
	}
}

// Trace returns the switch trace, or nil if WithTrace was not given.
func (s *Scheduler) Trace() *Trace { return s.trace }

// New creates a coroutine in the entering state. The entry function is not
// called until something switches into the coroutine for the first time.
func (s *Scheduler) New(entry func(any), opts ...CoroutineOption) (*Coroutine, error) {
	if entry == nil {
		return nil, errors.New("coop: nil entry function")
	}
	o := coroutineOptions{stackSize: s.stackSize}
	for _, opt := range opts {
		opt(&o)
	}
	region, err := s.alloc.Alloc(o.stackSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}
	c := &Coroutine{
		id:       s.nextID,
		name:     o.name,
		entry:    entry,
		userData: o.userData,
		stack:    region,
		state:    StateEntering,
		wake:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.nextID++
	s.coros = append(s.coros, c)
	s.log.Debugf("created coroutine %d %q, stack %d bytes", c.id, c.name, len(c.stack))
	return c, nil
}

// Free releases a coroutine's stack region. An ended or never-entered
// coroutine is released immediately. A coroutine suspended mid-execution is
// interrupted first: it does not return from its suspend point, its deferred
// calls run, and Free returns once it has fully unwound. Freeing the running
// coroutine, or a handle that was already freed, is a caller error.
func (s *Scheduler) Free(c *Coroutine) {
	switch {
	case c.freed:
		panic("coop.Free: coroutine already freed")
	case c == s.current && s.running:
		panic("coop.Free: cannot free the running coroutine")
	case c.started && c.state != StateEnded:
		// Interrupt the parked coroutine and wait for it to unwind. The
		// unwinding goroutine marks the handle ended before it signals
		// done, so there is nothing left to write here.
		c.freed = true
		close(c.wake)
		<-c.done
	default:
		c.freed = true
		c.state = StateEnded
	}
	s.remove(c)
	s.alloc.Release(c.stack)
	c.stack = nil
	s.trace.record(EventFree, c)
	s.log.Debugf("freed coroutine %d %q", c.id, c.name)
}

func (s *Scheduler) remove(c *Coroutine) {
	for i, o := range s.coros {
		if o == c {
			s.coros = append(s.coros[:i], s.coros[i+1:]...)
			return
		}
	}
}

// Run executes fn as the main context and blocks until it returns. Wake
// sources keep firing for other coroutines afterwards, so a sleeping
// coroutine that was current when fn ended still resumes.
//
// Run must be called from outside the host loop.
func (s *Scheduler) Run(fn func()) error {
	if s.main != nil {
		return errors.New("coop: scheduler has already run")
	}
	region, err := s.alloc.Alloc(s.stackSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}
	main := &Coroutine{
		name:  "main",
		entry: func(any) { fn() },
		stack: region,
		state: StateEntering,
		wake:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	s.main = main
	s.current = main
	if err := s.host.Post(s.dispatch); err != nil {
		return fmt.Errorf("coop: host unavailable: %v", err)
	}
	<-main.done
	s.alloc.Release(main.stack)
	main.stack = nil
	return nil
}

// Main returns the main context, or nil before Run.
func (s *Scheduler) Main() *Coroutine { return s.main }

// dispatch is the wake-source multiplexer. It runs on the host loop and
// keeps resuming the current coroutine until it either ends or parks itself
// on a wake source that has not fired yet. A pending wait arms the matching
// wake source and flips the coroutine to resuming, so the next invocation
// rewinds into it.
func (s *Scheduler) dispatch() {
	for {
		c := s.current
		switch c.state {
		case StateEnded:
			return
		case StateWaitingFrame:
			s.arm(c, "frame", s.host.RequestFrame(s.dispatch))
			return
		case StateWaitingYield:
			s.arm(c, "message", s.host.Post(s.dispatch))
			return
		case StateSleeping:
			s.arm(c, "timer", s.host.ScheduleTimer(c.sleep, s.dispatch))
			return
		case StateEntering:
			go s.enter(c)
			s.resume(c)
		case StateResuming:
			s.resume(c)
		}
	}
}

// arm re-arms the wake source for a pending wait. A host that cannot provide
// the wake source would leave the coroutine suspended forever, so this fails
// loudly instead of degrading.
func (s *Scheduler) arm(c *Coroutine, source string, err error) {
	if err != nil {
		s.log.Criticalf("wake source %q unavailable: %v", source, err)
		panic(fmt.Sprintf("coop: wake source %q unavailable: %v", source, err))
	}
	s.trace.record(EventArm, c)
	c.state = StateResuming
}

// resume rewinds into c and blocks until it parks again or ends.
func (s *Scheduler) resume(c *Coroutine) {
	s.trace.record(EventResume, c)
	s.running = true
	c.wake <- struct{}{}
	<-s.parked
}

// enter runs the first entry of a coroutine on its own goroutine. The
// deferred block also runs when the coroutine is interrupted by Free, in
// which case the dispatcher is not waiting and must not be signaled.
// Closing done releases Free's caller, so it is the last thing the deferred
// block does: the handle must not be touched after that point.
func (s *Scheduler) enter(c *Coroutine) {
	c.started = true
	defer func() {
		c.state = StateEnded
		if !c.freed {
			s.trace.record(EventEnd, c)
			s.running = false
			s.parked <- struct{}{}
		}
		close(c.done)
	}()
	<-c.wake
	c.entry(c.userData)
}

// park publishes the suspend and hands control back to the dispatcher. It
// returns when the dispatcher rewinds into the coroutine. The wake state and
// scheduler cursor are updated by the caller before park, so they are always
// consistent by the time the host regains control.
func (s *Scheduler) park(c *Coroutine) {
	s.trace.record(EventSuspend, c)
	s.running = false
	s.parked <- struct{}{}
	if _, ok := <-c.wake; !ok {
		// Freed while suspended: unwind without returning from the
		// suspend point.
		runtime.Goexit()
	}
}

func (s *Scheduler) mustCurrent(op string) *Coroutine {
	if !s.running {
		panic("coop." + op + ": not called from a coroutine")
	}
	return s.current
}

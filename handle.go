package coop

import "time"

// Coroutine is the control block for one logical thread of execution. A
// coroutine shares the scheduler's single thread of control with all others
// and only ever runs when something explicitly switches into it.
//
// Handles are created with Scheduler.New and released with Scheduler.Free;
// the main context created by Run is one more Coroutine, so the exclusivity
// invariant holds uniformly.
type Coroutine struct {
	id       int32
	name     string
	entry    func(any)
	userData any

	// stack is the exclusively owned region reserved for this coroutine,
	// released back to the allocator by Free. Execution state lives on the
	// backing goroutine's stack; the region accounts for the budget the
	// caller granted.
	stack []byte

	state WakeState
	sleep time.Duration

	// wake is the hand-off channel the coroutine parks on between resumes.
	// Closing it interrupts a suspended coroutine (see Scheduler.Free).
	wake chan struct{}

	// done is closed once the coroutine has ended, whether its entry
	// function returned or it was interrupted.
	done chan struct{}

	started bool
	freed   bool
}

// ID returns the coroutine's scheduler-unique id. The main context has id 0.
func (c *Coroutine) ID() int32 { return c.id }

// Name returns the name given with WithName, or "".
func (c *Coroutine) Name() string { return c.name }

// State returns the coroutine's current wake state.
func (c *Coroutine) State() WakeState { return c.state }

// StackSize returns the size of the coroutine's stack region.
func (c *Coroutine) StackSize() int { return len(c.stack) }

// Done returns a channel that is closed once the coroutine has ended.
func (c *Coroutine) Done() <-chan struct{} { return c.done }

// CoroutineOption configures a coroutine at creation.
type CoroutineOption func(*coroutineOptions)

type coroutineOptions struct {
	userData  any
	stackSize int
	name      string
}

// WithUserData sets the value passed to the entry function on first entry.
func WithUserData(v any) CoroutineOption {
	return func(o *coroutineOptions) { o.userData = v }
}

// WithStackSize overrides the scheduler's default stack region size.
func WithStackSize(size int) CoroutineOption {
	return func(o *coroutineOptions) { o.stackSize = size }
}

// WithName gives the coroutine a name for logs and snapshots.
func WithName(name string) CoroutineOption {
	return func(o *coroutineOptions) { o.name = name }
}

// Package eventloop provides a single-goroutine event loop with the shape of
// a browser's: a FIFO message queue, one-shot frame callbacks delivered on a
// fixed cadence, and one-shot timers that never fire early. Callbacks run one
// at a time on the loop goroutine.
package eventloop

import (
	"errors"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display.
const DefaultFrameInterval = 16700 * time.Microsecond

// ErrStopped is returned by registrations made after Stop.
var ErrStopped = errors.New("eventloop: loop stopped")

// Loop is a single-goroutine event loop. Create it with New, drive it with
// Run, and retire it with Stop. Registration methods are safe to call from
// any goroutine, including from inside a callback.
type Loop struct {
	interval time.Duration

	mu    sync.Mutex
	queue []func()
	frame []func()

	wake chan struct{}
	quit chan struct{}
	stop sync.Once
}

// Option configures a Loop.
type Option func(*Loop)

// WithFrameInterval sets the cadence of frame callbacks.
func WithFrameInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// New creates a loop. Run must be called for callbacks to be delivered.
func New(opts ...Option) *Loop {
	l := &Loop{
		interval: DefaultFrameInterval,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes the loop until Stop is called.
func (l *Loop) Run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
			l.drain()
		case <-ticker.C:
			l.runFrame()
		}
	}
}

// Stop retires the loop. Pending callbacks are dropped; subsequent
// registrations return ErrStopped.
func (l *Loop) Stop() {
	l.stop.Do(func() { close(l.quit) })
}

// Post schedules fn to run on a future turn of the loop. fn never runs
// synchronously, even when Post is called from the loop goroutine.
func (l *Loop) Post(fn func()) error {
	if l.stopped() {
		return ErrStopped
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
	return nil
}

// OnFrame schedules fn to run once, on the next frame tick.
func (l *Loop) OnFrame(fn func()) error {
	if l.stopped() {
		return ErrStopped
	}
	l.mu.Lock()
	l.frame = append(l.frame, fn)
	l.mu.Unlock()
	return nil
}

// After schedules fn to run on the loop no earlier than d from now.
func (l *Loop) After(d time.Duration, fn func()) error {
	if l.stopped() {
		return ErrStopped
	}
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, func() {
		// The loop may have stopped while the timer was pending, in
		// which case the callback is dropped like any other.
		_ = l.Post(fn)
	})
	return nil
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()
		fn()
	}
}

func (l *Loop) runFrame() {
	l.mu.Lock()
	fns := l.frame
	l.frame = nil
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) stopped() bool {
	select {
	case <-l.quit:
		return true
	default:
		return false
	}
}

package coop

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dispatchrun/coop/internal/eventloop"
)

// manualHost queues registrations and delivers them only when the test calls
// step, so dispatcher behavior can be driven deterministically.
type manualHost struct {
	mu       sync.Mutex
	queue    []func()
	failPost bool
}

func (h *manualHost) Post(fn func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failPost {
		return errors.New("no message delivery")
	}
	h.queue = append(h.queue, fn)
	return nil
}

func (h *manualHost) RequestFrame(fn func()) error { return h.Post(fn) }

func (h *manualHost) ScheduleTimer(_ time.Duration, fn func()) error { return h.Post(fn) }

func (h *manualHost) setFailPost(v bool) {
	h.mu.Lock()
	h.failPost = v
	h.mu.Unlock()
}

func (h *manualHost) pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}

// step runs the oldest pending callback on the calling goroutine.
func (h *manualHost) step() {
	h.mu.Lock()
	fn := h.queue[0]
	h.queue = h.queue[1:]
	h.mu.Unlock()
	fn()
}

func TestRunHostUnavailable(t *testing.T) {
	l := eventloop.New()
	l.Stop()
	s := NewScheduler(WithHost(LoopHost{Loop: l}))

	if err := s.Run(func() { t.Error("main entry ran") }); err == nil {
		t.Error("expected an error from a stopped host")
	}
}

func TestWakeSourceUnavailable(t *testing.T) {
	h := &manualHost{}
	s := NewScheduler(WithHost(h))

	go func() {
		_ = s.Run(func() { s.Yield() })
	}()

	deadline := time.Now().Add(5 * time.Second)
	for h.pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("dispatch was never posted")
		}
		time.Sleep(time.Millisecond)
	}

	// The yield's wake source cannot be armed; the dispatcher must fail
	// loudly instead of leaving the coroutine suspended forever.
	h.setFailPost(true)
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		h.step()
	}()
	msg, ok := recovered.(string)
	if !ok || !strings.Contains(msg, "unavailable") {
		t.Errorf("recovered %v", recovered)
	}
}

package coop

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// EventKind labels one dispatcher transfer decision.
type EventKind int8

const (
	// EventResume is recorded when the dispatcher rewinds into a coroutine
	// (including first entry).
	EventResume EventKind = iota + 1

	// EventSuspend is recorded when a coroutine parks at a suspend point.
	EventSuspend

	// EventEnd is recorded when a coroutine's entry function returns.
	EventEnd

	// EventArm is recorded when the dispatcher arms a wake source for a
	// pending wait.
	EventArm

	// EventFree is recorded when a handle is freed, including handles that
	// were interrupted while parked.
	EventFree
)

func (k EventKind) String() string {
	switch k {
	case EventResume:
		return "resume"
	case EventSuspend:
		return "suspend"
	case EventEnd:
		return "end"
	case EventArm:
		return "arm"
	case EventFree:
		return "free"
	default:
		return "invalid"
	}
}

// SwitchEvent is one record of the scheduler's switch instrumentation.
// At is nanoseconds since the Unix epoch.
type SwitchEvent struct {
	Seq   uint64    `cbor:"1,keyasint"`
	Kind  EventKind `cbor:"2,keyasint"`
	Coro  int32     `cbor:"3,keyasint"`
	State WakeState `cbor:"4,keyasint"`
	At    int64     `cbor:"5,keyasint"`
}

// Trace is a bounded ring of switch events. It is written by the scheduler's
// single logical thread of control and needs no locking; read it from the
// same thread, or after the scheduler has gone idle.
type Trace struct {
	events []SwitchEvent
	depth  int
	seq    uint64
}

func newTrace(depth int) *Trace {
	if depth <= 0 {
		depth = 256
	}
	return &Trace{depth: depth}
}

// record appends an event, dropping the oldest once the ring is full. A nil
// trace records nothing, so the scheduler can call it unconditionally.
func (t *Trace) record(kind EventKind, c *Coroutine) {
	if t == nil {
		return
	}
	t.seq++
	ev := SwitchEvent{
		Seq:   t.seq,
		Kind:  kind,
		Coro:  c.id,
		State: c.state,
		At:    time.Now().UnixNano(),
	}
	if len(t.events) == t.depth {
		copy(t.events, t.events[1:])
		t.events[len(t.events)-1] = ev
	} else {
		t.events = append(t.events, ev)
	}
}

// Events returns the retained events, oldest first.
func (t *Trace) Events() []SwitchEvent {
	if t == nil {
		return nil
	}
	out := make([]SwitchEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Encode serializes the retained events to CBOR for offline inspection.
func (t *Trace) Encode() ([]byte, error) {
	return cbor.Marshal(t.Events())
}

// DecodeTrace reconstructs events serialized by Encode.
func DecodeTrace(b []byte) ([]SwitchEvent, error) {
	var events []SwitchEvent
	if err := cbor.Unmarshal(b, &events); err != nil {
		return nil, err
	}
	return events, nil
}

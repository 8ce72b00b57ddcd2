package coop

// WakeState describes what a coroutine is waiting for, and therefore what the
// dispatcher must do with it on its next pass: nothing (StateEnded), perform
// first entry (StateEntering), rewind into it (StateResuming), or arm the
// matching wake source (the three waiting states).
type WakeState int32

const (
	// StateEnded marks a coroutine whose entry function has returned, or
	// which has been freed. It cannot be switched into again.
	StateEnded WakeState = iota

	// StateEntering marks a coroutine that was created but has not yet been
	// switched into. The first switch calls the entry function instead of
	// resuming a prior suspension.
	StateEntering

	// StateResuming marks a coroutine that is ready to continue from its
	// last suspension point, either because it suspended with an explicit
	// switch or because its wake source has already been armed.
	StateResuming

	// StateWaitingFrame marks a coroutine suspended until the host's next
	// frame callback.
	StateWaitingFrame

	// StateWaitingYield marks a coroutine suspended until a future turn of
	// the host loop, as soon as possible but never synchronously.
	StateWaitingYield

	// StateSleeping marks a coroutine suspended until at least its requested
	// sleep duration has elapsed.
	StateSleeping
)

func (s WakeState) String() string {
	switch s {
	case StateEnded:
		return "ended"
	case StateEntering:
		return "entering"
	case StateResuming:
		return "resuming"
	case StateWaitingFrame:
		return "waiting-frame"
	case StateWaitingYield:
		return "waiting-yield"
	case StateSleeping:
		return "sleeping"
	default:
		return "invalid"
	}
}
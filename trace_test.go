package coop

import (
	"reflect"
	"testing"
	"time"
)

func TestExclusivityInvariant(t *testing.T) {
	s := NewScheduler(WithTrace(1024))
	defer s.Close()

	err := s.Run(func() {
		b, err := s.New(func(any) {
			s.Yield()
			s.Switch(nil)
		})
		if err != nil {
			t.Error(err)
			return
		}
		a, err := s.New(func(any) {
			s.Sleep(time.Millisecond)
			s.Switch(b)
			s.Switch(nil)
		})
		if err != nil {
			t.Error(err)
			return
		}
		s.Switch(a)
		s.Switch(a)
		s.Free(a)
		s.Free(b)
	})
	if err != nil {
		t.Fatal(err)
	}

	// Replay the trace: at every instant at most one coroutine is active,
	// and a resume only ever happens while none is.
	active := 0
	for _, ev := range s.Trace().Events() {
		switch ev.Kind {
		case EventResume:
			if active != 0 {
				t.Fatalf("event %d: resume of %d while %d coroutines active", ev.Seq, ev.Coro, active)
			}
			active++
		case EventSuspend, EventEnd:
			if active != 1 {
				t.Fatalf("event %d: %s of %d while %d coroutines active", ev.Seq, ev.Kind, ev.Coro, active)
			}
			active--
		case EventArm:
			if active != 0 {
				t.Fatalf("event %d: arm while coroutine %d active", ev.Seq, ev.Coro)
			}
		}
	}
}

func TestTraceRing(t *testing.T) {
	s := NewScheduler(WithTrace(8))
	defer s.Close()

	err := s.Run(func() {
		for i := 0; i < 20; i++ {
			s.Yield()
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	events := s.Trace().Events()
	if len(events) != 8 {
		t.Fatalf("retained %d events, want 8", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq != events[i-1].Seq+1 {
			t.Errorf("gap between events %d and %d", events[i-1].Seq, events[i].Seq)
		}
	}
}

func TestTraceEncoding(t *testing.T) {
	s := NewScheduler(WithTrace(64))
	defer s.Close()

	err := s.Run(func() {
		s.Yield()
		s.Sleep(time.Millisecond)
	})
	if err != nil {
		t.Fatal(err)
	}

	original := s.Trace().Events()
	if len(original) == 0 {
		t.Fatal("no events recorded")
	}
	b, err := s.Trace().Encode()
	if err != nil {
		t.Fatal(err)
	}
	reconstructed, err := DecodeTrace(b)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(original, reconstructed) {
		t.Error("unexpected trace")
		t.Logf("   got: %#v", reconstructed)
		t.Logf("expect: %#v", original)
	}
}

package jc

import (
	"testing"
	"time"
)

func TestReplySlotReplyThenWait(t *testing.T) {
	s := newReplySlot()
	go func() {
		if err := s.Reply(42); err != nil {
			t.Errorf("Reply() = %v, want nil", err)
		}
	}()

	val, ok, err := s.wait(0, false)
	if err != nil || !ok {
		t.Fatalf("wait() = (%v, %v, %v), want (42, true, nil)", val, ok, err)
	}
	if val != 42 {
		t.Fatalf("wait() value = %v, want 42", val)
	}
}

func TestReplySlotSecondReplyIsRejected(t *testing.T) {
	s := newReplySlot()
	if err := s.Reply(1); err != nil {
		t.Fatalf("first Reply() = %v, want nil", err)
	}
	if err := s.Reply(2); err != ErrMultipleReply {
		t.Fatalf("second Reply() = %v, want ErrMultipleReply", err)
	}
}

func TestReplySlotImmediateTimeoutWithNoReply(t *testing.T) {
	s := newReplySlot()
	val, ok, err := s.wait(0, true)
	if ok || err != nil {
		t.Fatalf("wait(0, true) = (%v, %v, %v), want (_, false, nil)", val, ok, err)
	}
	if !s.isResolved() {
		t.Fatalf("slot should be TimedOut after an immediate timeout")
	}
}

func TestReplySlotAlreadyResolvedBeatsZeroTimeout(t *testing.T) {
	s := newReplySlot()
	if err := s.Reply("done"); err != nil {
		t.Fatalf("Reply() = %v, want nil", err)
	}
	val, ok, err := s.wait(0, true)
	if !ok || err != nil || val != "done" {
		t.Fatalf("wait(0, true) on an already-replied slot = (%v, %v, %v), want (done, true, nil)", val, ok, err)
	}
}

func TestReplySlotReplyAfterTimeoutIsAbsorbed(t *testing.T) {
	s := newReplySlot()
	if !s.markTimedOut() {
		t.Fatalf("markTimedOut() on a fresh slot should succeed")
	}
	if err := s.Reply(7); err != nil {
		t.Fatalf("Reply() after timeout = %v, want nil (absorbed, not an error)", err)
	}
}

func TestReplySlotFailSurfacesError(t *testing.T) {
	s := newReplySlot()
	cause := ErrNoReply
	s.fail(cause)
	_, ok, err := s.wait(0, false)
	if ok {
		t.Fatalf("wait() ok = true after fail(), want false")
	}
	if err != cause {
		t.Fatalf("wait() err = %v, want %v", err, cause)
	}
}

func TestReplySlotWaitWithTimeoutBlocksUntilReply(t *testing.T) {
	s := newReplySlot()
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.Reply(9)
	}()
	val, ok, err := s.wait(time.Second, true)
	if !ok || err != nil || val != 9 {
		t.Fatalf("wait() = (%v, %v, %v), want (9, true, nil)", val, ok, err)
	}
}

package mailbox

import (
	"testing"
	"time"
)

func TestSlotOverwrite(t *testing.T) {
	s := New[int]()
	s.Put(1)
	s.Put(2)
	s.Put(3)

	v, ok := s.Take()
	if !ok || v != 3 {
		t.Fatalf("Take() = %d, %v; want 3, true", v, ok)
	}
	if s.Drops() != 2 {
		t.Errorf("Drops() = %d, want 2", s.Drops())
	}
}

func TestSlotTakeBlocksUntilPut(t *testing.T) {
	s := New[string]()
	got := make(chan string)
	go func() {
		v, _ := s.Take()
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("Take returned %q before Put", v)
	case <-time.After(20 * time.Millisecond):
	}

	s.Put("frame")
	select {
	case v := <-got:
		if v != "frame" {
			t.Errorf("Take() = %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Take did not wake up")
	}
}

func TestSlotClose(t *testing.T) {
	s := New[int]()
	done := make(chan bool)
	go func() {
		_, ok := s.Take()
		done <- ok
	}()

	s.Close()
	select {
	case ok := <-done:
		if ok {
			t.Error("Take after Close should report !ok")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not wake the consumer")
	}

	if s.Put(1) {
		t.Error("Put on a closed slot should fail")
	}
	if !s.Closed() {
		t.Error("Closed() = false after Close")
	}
	s.Close()
}

func TestSlotCloseDeliversPending(t *testing.T) {
	s := New[int]()
	s.Put(7)
	s.Close()

	v, ok := s.Take()
	if !ok || v != 7 {
		t.Fatalf("Take() = %d, %v; want the value put before Close", v, ok)
	}
	if _, ok := s.Take(); ok {
		t.Error("Take on a closed, drained slot should report !ok")
	}
}

func TestSlotAbandonDiscardsPending(t *testing.T) {
	s := New[int]()
	s.Put(7)
	s.Abandon()

	if v, ok := s.Take(); ok {
		t.Errorf("Take() = %d after Abandon, want !ok", v)
	}
	if !s.Closed() {
		t.Error("Closed() = false after Abandon")
	}
	if s.Put(8) {
		t.Error("Put on an abandoned slot should fail")
	}
}

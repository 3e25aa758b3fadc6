// Package mailbox provides a single-slot, overwrite-on-put handoff between
// one producer and one consumer goroutine.
//
// The producer never blocks: a value that was not taken yet is replaced and
// counted as a drop. The consumer blocks until a value arrives or the slot closes.
package mailbox

import "sync"

// Slot holds at most one pending value.
type Slot[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	item   T
	full   bool
	closed bool
	drops  uint64
}

// New returns an empty, open slot.
func New[T any]() *Slot[T] {
	s := &Slot[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Put stores v, replacing any value not yet taken. It returns false if the slot is closed.
func (s *Slot[T]) Put(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.full {
		s.drops++
	}
	s.item = v
	s.full = true
	s.cond.Signal()
	return true
}

// Take blocks until a value is available and returns it.
// A value put before Close is still delivered; ok is false once the slot
// is closed and empty.
func (s *Slot[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.full && !s.closed {
		s.cond.Wait()
	}
	if !s.full {
		return v, false
	}
	v = s.item
	var zero T
	s.item, s.full = zero, false
	return v, true
}

// Close stops further puts and wakes the consumer once the pending value,
// if any, has been taken. Idempotent.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Abandon closes the slot and discards a pending value.
func (s *Slot[T]) Abandon() {
	s.mu.Lock()
	var zero T
	s.item, s.full = zero, false
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Closed reports whether Close was called.
func (s *Slot[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Drops is the number of values replaced before they were taken.
func (s *Slot[T]) Drops() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

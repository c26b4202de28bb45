// Package ringbuf provides a bounded, lock-free, multi-producer multi-consumer
// FIFO queue over a fixed-size array.
//
// Every slot carries a sequence number. A producer may claim the slot at
// position p once its sequence equals p, and a consumer may claim it once the
// sequence equals p+1. Head and tail are free-running counters; the slot index
// is the counter modulo the capacity, so no power-of-two capacity is required.
package ringbuf

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

type slot[T any] struct {
	seq   atomic.Uint64
	value T
}

// Ring is a fixed-capacity lock-free queue. The zero value is not usable;
// construct rings with New.
type Ring[T any] struct {
	head atomic.Uint64
	_    cpu.CacheLinePad
	tail atomic.Uint64
	_    cpu.CacheLinePad

	capacity uint64
	slots    []slot[T]
}

// New returns an empty ring holding at most capacity values.
// It panics if capacity is not positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}

	r := &Ring[T]{
		capacity: uint64(capacity),
		slots:    make([]slot[T], capacity),
	}

	for i := range r.slots {
		r.slots[i].seq.Store(uint64(i))
	}

	return r
}

// Push appends v at the tail. It reports false, leaving the ring unchanged,
// when the ring is full.
func (r *Ring[T]) Push(v T) bool {
	pos := r.tail.Load()

	for {
		s := &r.slots[pos%r.capacity]
		seq := s.seq.Load()

		switch diff := int64(seq - pos); {
		case diff == 0:
			if r.tail.CompareAndSwap(pos, pos+1) {
				s.value = v
				s.seq.Store(pos + 1)

				return true
			}

			pos = r.tail.Load()
		case diff < 0:
			// The slot still holds the value from one lap ago.
			return false
		default:
			pos = r.tail.Load()
		}
	}
}

// Pop removes and returns the value at the head. It reports false when the
// ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T

	pos := r.head.Load()

	for {
		s := &r.slots[pos%r.capacity]
		seq := s.seq.Load()

		switch diff := int64(seq - (pos + 1)); {
		case diff == 0:
			if r.head.CompareAndSwap(pos, pos+1) {
				v := s.value
				s.value = zero
				s.seq.Store(pos + r.capacity)

				return v, true
			}

			pos = r.head.Load()
		case diff < 0:
			return zero, false
		default:
			pos = r.head.Load()
		}
	}
}

// ForcePush appends v, evicting values from the head until there is room.
// It returns the last evicted value, if any.
func (r *Ring[T]) ForcePush(v T) (T, bool) {
	var (
		evicted T
		ok      bool
	)

	for !r.Push(v) {
		if old, popped := r.Pop(); popped {
			evicted, ok = old, true
		}
	}

	return evicted, ok
}

// Len returns the number of values in the ring. Under concurrent use the
// result is a snapshot that may be stale by the time it is read.
func (r *Ring[T]) Len() int {
	for {
		tail := r.tail.Load()
		head := r.head.Load()

		if r.tail.Load() == tail {
			return int(min(tail-head, r.capacity))
		}
	}
}

// Cap returns the fixed capacity of the ring.
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}

// IsEmpty reports whether the ring currently holds no values.
func (r *Ring[T]) IsEmpty() bool {
	return r.Len() == 0
}

// IsFull reports whether the ring currently holds Cap values.
func (r *Ring[T]) IsFull() bool {
	return r.Len() == r.Cap()
}

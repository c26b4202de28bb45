package ratelimit

import (
	"sync"
	"time"

	"github.com/serroba/admit/internal/ringbuf"
)

// RingBuffer keeps each key's window in a lock-free ring of capacity
// Quota.Max. While the ring has room a request is admitted with a single
// push. Once it is full, expired timestamps are evicted by rotating the ring
// once: every entry is popped and the still-valid ones are pushed back.
//
// Each push and pop is atomic but a rotation is not. A concurrent call for
// the same key can see the ring transiently short of an entry mid-rotation
// and be admitted on the fast path, so the per-key bound can be exceeded
// under contention, and the rotating call's re-push may then displace a
// still-valid entry. Both strategies without locks over-admit, in different
// ways. Under sustained contention on a full ring the overrun window opens on
// every rotation, so RingBuffer overshoots more often than ClonedWindow, but
// each overshoot is bounded by the few callers that slip in mid-rotation.
// ClonedWindow overshoots less often, yet a single lost overwrite can erase
// many admissions and let a much larger burst through.
type RingBuffer[K comparable] struct {
	quota   Quota
	windows sync.Map // K -> *ringbuf.Ring[time.Time]
}

var _ Limiter[string] = (*RingBuffer[string])(nil)

// NewRingBuffer creates a limiter backed by per-key lock-free rings.
func NewRingBuffer[K comparable](opts ...Option) *RingBuffer[K] {
	o := newOptions(opts)

	return &RingBuffer[K]{quota: o.quota}
}

// Allow reports whether the request is admitted.
func (l *RingBuffer[K]) Allow(key K, now time.Time) bool {
	r := l.ring(key)

	if !r.IsFull() && r.Push(now) {
		return true
	}

	// Rotate over the entries present now. Pushed-back entries must not be
	// popped again, so the drain is bounded by the starting length.
	cutoff := l.quota.cutoff(now)
	removed, valid := 0, 0

	for range r.Len() {
		ts, ok := r.Pop()
		if !ok {
			break
		}

		removed++

		if !ts.Before(cutoff) {
			r.ForcePush(ts)

			valid++
		}
	}

	if removed > valid {
		r.ForcePush(now)

		return true
	}

	return false
}

// ring returns the ring for key, inserting an empty one on first use.
func (l *RingBuffer[K]) ring(key K) *ringbuf.Ring[time.Time] {
	if v, ok := l.windows.Load(key); ok {
		return v.(*ringbuf.Ring[time.Time])
	}

	v, _ := l.windows.LoadOrStore(key, ringbuf.New[time.Time](l.quota.Max))

	return v.(*ringbuf.Ring[time.Time])
}

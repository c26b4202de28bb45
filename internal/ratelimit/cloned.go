package ratelimit

import (
	"sync"
	"time"
)

// ClonedWindow keeps windows in a lock-free map and updates them by
// read, clone, modify, overwrite.
//
// Caution: the read-modify-write on one key is not atomic. When two calls for
// the same key interleave, the later Store discards the earlier call's
// update, so a key hammered concurrently can be admitted more than Quota.Max
// times per window. It is only a correct limiter when each key is used by
// one caller at a time. Use PerKeyLock when that cannot be guaranteed.
type ClonedWindow[K comparable] struct {
	quota   Quota
	windows sync.Map // K -> *Window, never mutated after Store
}

var _ Limiter[string] = (*ClonedWindow[string])(nil)

// NewClonedWindow creates a limiter that never locks per key.
func NewClonedWindow[K comparable](opts ...Option) *ClonedWindow[K] {
	o := newOptions(opts)

	return &ClonedWindow[K]{quota: o.quota}
}

// Allow reports whether the request is admitted.
func (l *ClonedWindow[K]) Allow(key K, now time.Time) bool {
	var w *Window

	if v, ok := l.windows.Load(key); ok {
		w = v.(*Window).Clone()
	} else {
		w = &Window{}
	}

	allowed := w.Admit(now, l.quota)
	l.windows.Store(key, w)

	return allowed
}

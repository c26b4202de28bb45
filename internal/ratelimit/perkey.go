package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type lockedWindow struct {
	guard  guard
	window Window
}

// PerKeyLock keeps one lock-guarded window per key in a lock-free map.
// Different keys never contend; calls for the same key are serialized and
// atomic, so per-key admission is exact.
type PerKeyLock[K comparable] struct {
	quota   Quota
	logger  *zap.Logger
	windows sync.Map // K -> *lockedWindow
}

var _ Limiter[string] = (*PerKeyLock[string])(nil)

// NewPerKeyLock creates a limiter with one lock per key.
func NewPerKeyLock[K comparable](opts ...Option) *PerKeyLock[K] {
	o := newOptions(opts)

	return &PerKeyLock[K]{
		quota:  o.quota,
		logger: o.logger,
	}
}

// Allow reports whether the request is admitted. A panic poisons only the
// affected key's lock; that key is rejected from then on and every other
// key is unaffected.
func (l *PerKeyLock[K]) Allow(key K, now time.Time) bool {
	lw := l.entry(key)

	allowed, err := lw.guard.run(func() bool {
		runBeforeAdmitHook(key)

		return lw.window.Admit(now, l.quota)
	})
	if err != nil {
		reportFailure(l.logger, StrategyPerKey, err, zap.Any("key", key))
	}

	return allowed
}

// Poisoned reports whether key's lock has been poisoned.
func (l *PerKeyLock[K]) Poisoned(key K) bool {
	v, ok := l.windows.Load(key)
	if !ok {
		return false
	}

	return v.(*lockedWindow).guard.isPoisoned()
}

// entry returns the window for key, inserting an empty one on first use.
// Concurrent first use of the same key agrees on a single window.
func (l *PerKeyLock[K]) entry(key K) *lockedWindow {
	if v, ok := l.windows.Load(key); ok {
		return v.(*lockedWindow)
	}

	v, _ := l.windows.LoadOrStore(key, &lockedWindow{})

	return v.(*lockedWindow)
}

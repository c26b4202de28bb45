package ratelimit

import (
	"time"

	"go.uber.org/zap"
)

// CoarseLock serializes every admission, for every key, behind one lock.
type CoarseLock[K comparable] struct {
	quota   Quota
	logger  *zap.Logger
	guard   guard
	windows map[K]*Window
}

var _ Limiter[string] = (*CoarseLock[string])(nil)

// NewCoarseLock creates a limiter with a single registry-wide lock.
func NewCoarseLock[K comparable](opts ...Option) *CoarseLock[K] {
	o := newOptions(opts)

	return &CoarseLock[K]{
		quota:   o.quota,
		logger:  o.logger,
		windows: make(map[K]*Window),
	}
}

// Allow reports whether the request is admitted. Once a panic has poisoned
// the registry lock every call, for every key, is rejected.
func (l *CoarseLock[K]) Allow(key K, now time.Time) bool {
	allowed, err := l.guard.run(func() bool {
		runBeforeAdmitHook(key)

		w, ok := l.windows[key]
		if !ok {
			w = &Window{}
			l.windows[key] = w
		}

		return w.Admit(now, l.quota)
	})
	if err != nil {
		reportFailure(l.logger, StrategyCoarse, err, zap.Any("key", key))
	}

	return allowed
}

// Poisoned reports whether the registry lock has been poisoned.
func (l *CoarseLock[K]) Poisoned() bool {
	return l.guard.isPoisoned()
}

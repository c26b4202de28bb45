package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrPoisoned is reported when a lock is unusable because an earlier holder
// panicked inside its critical section.
var ErrPoisoned = errors.New("ratelimit: lock poisoned")

// panicError records the panic that poisoned a guard.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("ratelimit: critical section panicked: %v", e.value)
}

func (e *panicError) Unwrap() error {
	return ErrPoisoned
}

// beforeAdmitHook, when set, is called with the key inside the critical
// section of the lock-based strategies. It is only ever set by tests.
var beforeAdmitHook atomic.Pointer[func(key any)]

func runBeforeAdmitHook[K comparable](key K) {
	if hook := beforeAdmitHook.Load(); hook != nil {
		(*hook)(key)
	}
}

// guard is a write lock that poisons itself when its holder panics. Once
// poisoned it never runs another critical section.
type guard struct {
	mu       sync.RWMutex
	poisoned bool
}

// run executes fn under the write lock and returns its result. A panic in fn
// is recovered, poisons the guard and is returned as a *panicError. Calls on
// an already poisoned guard return ErrPoisoned without running fn. Both
// failures report false.
func (g *guard) run(fn func() bool) (result bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.poisoned {
		return false, ErrPoisoned
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisoned = true
			result = false
			err = &panicError{value: r}
		}
	}()

	return fn(), nil
}

func (g *guard) isPoisoned() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.poisoned
}

// reportFailure logs the call that poisoned a guard. Calls rejected because
// the guard was already poisoned are not logged again.
func reportFailure(logger *zap.Logger, strategy Strategy, err error, fields ...zap.Field) {
	var pe *panicError
	if !errors.As(err, &pe) {
		return
	}

	logger.Error("admission lock poisoned, failing closed",
		append(fields, zap.String("strategy", string(strategy)), zap.Error(err))...,
	)
}

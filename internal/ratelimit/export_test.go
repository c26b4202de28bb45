package ratelimit

import "testing"

// PanicOnKey makes the lock-based limiters panic inside their critical
// section whenever key is admitted, until the test ends.
func PanicOnKey(t *testing.T, key any) {
	t.Helper()

	hook := func(k any) {
		if k == key {
			panic("injected failure")
		}
	}

	beforeAdmitHook.Store(&hook)
	t.Cleanup(func() { beforeAdmitHook.Store(nil) })
}

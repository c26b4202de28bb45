// Package ratelimit implements per-key sliding-window admission control.
//
// A key is admitted at time now when fewer than Quota.Max of its previously
// admitted requests fall within [now-Quota.Window, now]. Every strategy in
// this package implements the same Limiter contract and differs only in how
// concurrent callers share the per-key state:
//
//   - CoarseLock: one lock over the whole registry. Exact, fully serialized.
//   - PerKeyLock: lock-free map of individually locked windows. Exact per
//     key with full cross-key parallelism; the reference strategy.
//   - RingBuffer: lock-free map of lock-free rings. Exact on the fast path,
//     best-effort while a full ring is being rotated. Under same-key
//     contention it overshoots often but by small amounts.
//   - ClonedWindow: lock-free map updated by read, clone, overwrite. Not
//     atomic per key. It overshoots less often than RingBuffer, but a lost
//     overwrite can admit a much larger excess.
//
// Panics inside a locked critical section poison the lock and the affected
// calls fail closed (are rejected) instead of propagating.
//
// # Limitations
//
// Registries only grow. A key's entry is created on first use and kept for
// the lifetime of the limiter even after its window empties, so memory is
// proportional to the number of distinct keys ever seen.
package ratelimit

package ratelimit

import "time"

// Window is the sliding-window state of a single key: admitted request
// timestamps, oldest first. A Window is not safe for concurrent use; each
// strategy decides how access to it is serialized.
type Window struct {
	stamps []time.Time
}

// Len returns the number of timestamps currently retained.
func (w *Window) Len() int {
	return len(w.stamps)
}

// Prune drops the leading timestamps strictly older than cutoff.
func (w *Window) Prune(cutoff time.Time) {
	i := 0
	for i < len(w.stamps) && w.stamps[i].Before(cutoff) {
		i++
	}

	if i == 0 {
		return
	}

	n := copy(w.stamps, w.stamps[i:])
	clear(w.stamps[n:])
	w.stamps = w.stamps[:n]
}

// Admit prunes the window relative to now and records now if the quota
// still has room. It reports whether the request was admitted.
//
// Timestamps are not required to be monotonic. An out-of-order now is
// appended as-is and only affects which prefix the next Prune can trim.
func (w *Window) Admit(now time.Time, q Quota) bool {
	w.Prune(q.cutoff(now))

	if len(w.stamps) >= q.Max {
		return false
	}

	w.stamps = append(w.stamps, now)

	return true
}

// Clone returns an independent copy with room for one more timestamp.
func (w *Window) Clone() *Window {
	stamps := make([]time.Time, len(w.stamps), len(w.stamps)+1)
	copy(stamps, w.stamps)

	return &Window{stamps: stamps}
}

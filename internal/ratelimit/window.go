package ratelimit

import (
	"sync"
	"time"
)

// Window is a sliding-window admission gate: at most capacity admissions per
// trailing period. It guards the whole lookup pipeline and is independent of
// any per-vendor throttle.
type Window struct {
	capacity int
	period   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	admitted []time.Time
}

// NewWindow constructs a sliding window admitting capacity requests per period.
func NewWindow(capacity int, period time.Duration) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	if period <= 0 {
		period = time.Minute
	}
	return &Window{
		capacity: capacity,
		period:   period,
		now:      time.Now,
		admitted: make([]time.Time, 0, capacity),
	}
}

// Allow reports whether a new request may proceed, recording its timestamp
// when admitted. Entries older than the window period are discarded first.
func (w *Window) Allow() bool {
	now := w.now()
	cutoff := now.Add(-w.period)

	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.admitted[:0]
	for _, ts := range w.admitted {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.admitted = kept

	if len(w.admitted) >= w.capacity {
		return false
	}
	w.admitted = append(w.admitted, now)
	return true
}

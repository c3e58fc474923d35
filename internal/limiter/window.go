// Package limiter throttles outbound calls per tab and bounds how long each one may take.
package limiter

import (
	"sync"
	"time"
)

// Window is a sliding-window request counter. It is advisory client-side throttling only.
type Window struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewWindow creates a Window allowing maxRequests per window. now defaults to time.Now.
func NewWindow(maxRequests int, window time.Duration, now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		requests:    make([]time.Time, 0, maxRequests+1),
		maxRequests: maxRequests,
		window:      window,
		now:         now,
	}
}

// Allow prunes timestamps older than the window, records now and reports
// whether the retained count is within the ceiling. Rejected calls are recorded too.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	kept := w.requests[:0]
	for _, ts := range w.requests {
		if now.Sub(ts) < w.window {
			kept = append(kept, ts)
		}
	}
	w.requests = append(kept, now)
	return len(w.requests) <= w.maxRequests
}

// Count returns the number of timestamps currently retained.
func (w *Window) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.requests)
}

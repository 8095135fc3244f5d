package watcher

import (
	"sync"
	"time"
)

// DefaultDebounceDuration is the debounce window used when a Debouncer is
// created without an explicit duration.
const DefaultDebounceDuration = 100 * time.Millisecond

// Debouncer coalesces rapid successive triggers into a single callback.
// Editors that save atomically emit several filesystem events per write;
// only the callback from the last trigger inside the window runs.
type Debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
}

// NewDebouncer returns a Debouncer with the given window. A non-positive
// duration selects DefaultDebounceDuration.
func NewDebouncer(d time.Duration) *Debouncer {
	if d <= 0 {
		d = DefaultDebounceDuration
	}
	return &Debouncer{duration: d}
}

// Trigger schedules fn to run after the debounce window, replacing any
// callback still pending from an earlier trigger.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel drops any pending callback without running it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Duration returns the debounce window.
func (d *Debouncer) Duration() time.Duration {
	return d.duration
}

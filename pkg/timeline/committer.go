package timeline

import (
	"sync"
	"time"

	"github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/metrics"
)

// Committer turns transient per-frame view state into the canonical
// analysis range once interaction settles. During a drag the view window
// changes every frame; the committed range changes at most once per
// settle period, and re-arming always overwrites, so only the most recent
// intent is ever committed.
//
// The committed window is snapped to whole-day boundaries before the
// change comparison, so wiggling the view within the same days commits
// nothing.
type Committer struct {
	settle  time.Duration
	current func() Window

	mu        sync.Mutex
	timer     *time.Timer
	armed     bool
	stopped   bool
	committed Window

	// onCommit fires with the new range after a real change; onSettled
	// fires whenever a settle completes, changed or not, and is where
	// transient hover state gets cleared.
	onCommit  func(Window)
	onSettled func()
}

// NewCommitter returns a Committer reading the live view window through
// current. settle <= 0 uses the default delay.
func NewCommitter(settle time.Duration, current func() Window) *Committer {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Committer{settle: settle, current: current}
}

// SetCommitHook installs the callback fired after a real range change.
func (c *Committer) SetCommitHook(fn func(Window)) {
	c.mu.Lock()
	c.onCommit = fn
	c.mu.Unlock()
}

// SetSettledHook installs the callback fired after every settle.
func (c *Committer) SetSettledHook(fn func()) {
	c.mu.Lock()
	c.onSettled = fn
	c.mu.Unlock()
}

// Seed installs an initial committed range without firing hooks, so the
// first settle after startup only commits if the view actually moved.
func (c *Committer) Seed(win Window) {
	c.mu.Lock()
	c.committed = win.SnapToDays()
	c.mu.Unlock()
}

// Committed returns the current canonical analysis range.
func (c *Committer) Committed() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Pending reports whether a settle timer is armed.
func (c *Committer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// NoteInteraction arms the settle timer, replacing any previous arming.
// Call it on every interaction event; the commit happens once, settle
// after the last call.
func (c *Committer) NoteInteraction() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.armed = true
	c.timer = time.AfterFunc(c.settle, c.fire)
}

// Flush executes a pending commit synchronously and cancels the timer.
// Idempotent when nothing is pending.
func (c *Committer) Flush() {
	c.mu.Lock()
	if c.stopped || !c.armed {
		c.mu.Unlock()
		return
	}
	c.armed = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.commit()
}

// Stop cancels any pending commit and makes all further calls no-ops.
func (c *Committer) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.armed = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}

// fire runs on the timer goroutine when the settle delay elapses.
func (c *Committer) fire() {
	c.mu.Lock()
	if c.stopped || !c.armed {
		c.mu.Unlock()
		return
	}
	c.armed = false
	c.timer = nil
	c.mu.Unlock()
	c.commit()
}

func (c *Committer) commit() {
	win := c.current().SnapToDays()

	c.mu.Lock()
	changed := !win.IsZero() && !win.Equal(c.committed)
	if changed {
		c.committed = win
	}
	onCommit, onSettled := c.onCommit, c.onSettled
	c.mu.Unlock()

	if changed {
		metrics.RangeCommits.Inc()
		debug.Log("timeline: committed range %s - %s",
			win.Start.Format("2006-01-02"), win.End.Format("2006-01-02"))
		if onCommit != nil {
			onCommit(win)
		}
	}
	if onSettled != nil {
		onSettled()
	}
}

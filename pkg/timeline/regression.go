package timeline

import (
	"sync"
	"time"

	"github.com/vanderheijden86/gramline/pkg/debug"
)

// RegressionBrush selects the sub-range of the visible window that the
// regression overlay is fitted over. Unlike the main view brush it fires
// only on gesture end, and moves smaller than the configured deadband are
// treated as sub-pixel jitter and ignored, so a drag that lands where it
// started does not recompute anything.
//
// The brush shares the controller's gesture state machine: while a
// regression commit is in flight, zoom and brush gestures are rejected,
// and the other way around.
type RegressionBrush struct {
	ctrl      *Controller
	tolerance time.Duration

	mu  sync.Mutex
	rng *Window

	// onChange fires on a real range change with the new range, or nil
	// when the range was cleared back to the default. Programmatic Clear
	// does not fire it.
	onChange func(rng *Window)
}

// NewRegressionBrush returns a brush bound to ctrl. tolerance <= 0 uses
// the controller's configured deadband.
func NewRegressionBrush(ctrl *Controller, tolerance time.Duration) *RegressionBrush {
	if tolerance <= 0 {
		tolerance = ctrl.Config().RegressionTolerance
	}
	return &RegressionBrush{ctrl: ctrl, tolerance: tolerance}
}

// SetChangeHook installs the callback fired on real range changes.
func (b *RegressionBrush) SetChangeHook(fn func(rng *Window)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Range returns the current regression range. ok is false when no range
// is set, meaning the default range applies.
func (b *RegressionBrush) Range() (Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rng == nil {
		return Window{}, false
	}
	return *b.rng, true
}

// Apply commits a gesture-end selection made on the focus chart. A nil or
// zero-width selection clears the range back to the default. Returns true
// when the range actually changed and the change hook fired.
func (b *RegressionBrush) Apply(sel *Selection) bool {
	if !b.ctrl.beginRegression() {
		return false
	}
	defer b.ctrl.endRegression()

	ctx := b.ctrl.Context()
	focus := ctx.FocusScale()
	if !focus.Valid() {
		return false
	}

	if sel == nil || sel.Width() <= 0 {
		return b.clearAndNotify()
	}
	if !sel.Valid() {
		debug.Log("timeline: discarding invalid regression selection [%v,%v]", sel.Start, sel.End)
		return false
	}

	win := sel.Clamp(focus.Width()).Window(focus).Intersect(focus.Window())
	if win.IsZero() || win.Duration() <= 0 {
		return b.clearAndNotify()
	}

	b.mu.Lock()
	if b.rng != nil && b.rng.WithinTolerance(win, b.tolerance) {
		// Within the deadband: jitter, not intent.
		b.mu.Unlock()
		return false
	}
	b.rng = &win
	hook := b.onChange
	b.mu.Unlock()

	if hook != nil {
		r := win
		hook(&r)
	}
	return true
}

// Clear drops the regression range without firing the change hook. Used
// when the range was cleared externally (background click, reload) and
// the widget just needs to collapse.
func (b *RegressionBrush) Clear() {
	b.mu.Lock()
	b.rng = nil
	b.mu.Unlock()
}

func (b *RegressionBrush) clearAndNotify() bool {
	b.mu.Lock()
	had := b.rng != nil
	b.rng = nil
	hook := b.onChange
	b.mu.Unlock()
	if !had {
		return false
	}
	if hook != nil {
		hook(nil)
	}
	return true
}

package timeline

import (
	"sync"

	"github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/metrics"
)

// GestureSource tags where a gesture came from. The controller updates the
// reciprocal representation itself, so an event echoed back by a widget it
// just repositioned carries the sync tag of the mechanism that caused it
// and is ignored outright. That tag, together with the gesture phase, is
// what breaks the zoom->brush->zoom feedback cycle.
type GestureSource int

const (
	// SourceUser is a direct user gesture on a chart.
	SourceUser GestureSource = iota
	// SourceZoomSync marks a brush event caused by a zoom-driven sync.
	SourceZoomSync
	// SourceBrushSync marks a zoom event caused by a brush-driven sync.
	SourceBrushSync
	// SourceProgram marks updates from forms, reloads, and restores.
	SourceProgram
)

func (s GestureSource) String() string {
	switch s {
	case SourceUser:
		return "user"
	case SourceZoomSync:
		return "zoom-sync"
	case SourceBrushSync:
		return "brush-sync"
	case SourceProgram:
		return "program"
	default:
		return "unknown"
	}
}

// gesturePhase is the controller's re-entrancy state. A gesture holds its
// phase for its whole span, including hook callbacks, so a callback that
// tries to start a conflicting gesture is rejected instead of recursing.
type gesturePhase int

const (
	phaseIdle gesturePhase = iota
	phaseZooming
	phaseBrushing
	phaseCommittingRegression
	phaseProgram
)

func (p gesturePhase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseZooming:
		return "zoom"
	case phaseBrushing:
		return "brush"
	case phaseCommittingRegression:
		return "regression"
	case phaseProgram:
		return "program"
	default:
		return "unknown"
	}
}

// Controller keeps the three representations of the current view (time
// window, zoom transform, overview brush selection) mutually consistent.
// It is the single writer of its ViewContext; widgets and collaborators
// read copies and feed gestures back in through ApplyZoom, ApplyBrush and
// SetWindow.
type Controller struct {
	cfg Config

	mu    sync.RWMutex
	ctx   ViewContext
	phase gesturePhase

	// onViewChanged fires after the window moved, outside the state lock
	// but inside the gesture phase. interactive is true for per-frame
	// gesture updates, false for discrete programmatic changes.
	onViewChanged func(win Window, interactive bool)
}

// NewController returns a Controller with cfg's zero fields defaulted.
// The controller is not ready until SetOverview and Resize have both been
// called; until then every gesture is a no-op.
func NewController(cfg Config) *Controller {
	return &Controller{cfg: cfg.withDefaults()}
}

// SetViewChangedHook installs the callback fired whenever the visible
// window changes. The hook runs with the gesture phase still held, so
// calling back into a conflicting gesture from it is rejected rather than
// recursing.
func (c *Controller) SetViewChangedHook(fn func(win Window, interactive bool)) {
	c.mu.Lock()
	c.onViewChanged = fn
	c.mu.Unlock()
}

// Config returns the controller's effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Ready reports whether the controller can process gestures.
func (c *Controller) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx.Ready()
}

// Context returns a copy of the full view state.
func (c *Controller) Context() ViewContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx.clone()
}

// Window returns the current visible time window.
func (c *Controller) Window() Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx.Window
}

// Overview returns the current overview bounds.
func (c *Controller) Overview() Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx.Overview
}

// Transform returns the current zoom transform.
func (c *Controller) Transform() Transform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx.Transform
}

// Brush returns the current overview selection. ok is false when no
// selection is active, meaning the whole overview is shown.
func (c *Controller) Brush() (Selection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ctx.Brush == nil {
		return Selection{}, false
	}
	return *c.ctx.Brush, true
}

// begin tries to enter phase p. It fails when the context is not ready or
// another phase is active; re-entry into the active phase is what the
// transition table forbids.
func (c *Controller) begin(p gesturePhase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ctx.Ready() {
		return false
	}
	if c.phase != phaseIdle {
		debug.Log("timeline: %s rejected while %s active", p, c.phase)
		metrics.GestureRejects.Inc()
		return false
	}
	c.phase = p
	return true
}

// end leaves phase p. Transition completion is explicit; there is no timer
// that guesses when a gesture finished.
func (c *Controller) end(p gesturePhase) {
	c.mu.Lock()
	if c.phase == p {
		c.phase = phaseIdle
	}
	c.mu.Unlock()
}

// beginRegression and endRegression let the RegressionBrush share the same
// transition table, so a regression commit excludes zoom and brush
// gestures and vice versa.
func (c *Controller) beginRegression() bool { return c.begin(phaseCommittingRegression) }
func (c *Controller) endRegression()        { c.end(phaseCommittingRegression) }

// ApplyZoom applies a zoom transform coming from the focus view. The
// window and the overview selection are updated to match; the selection
// update is the programmatic reciprocal and does not re-enter this
// handler. Returns false when the gesture was rejected or the transform
// was invalid, in which case the previous view state is retained.
func (c *Controller) ApplyZoom(t Transform, src GestureSource) bool {
	if src == SourceBrushSync {
		// Echo of a brush-driven sync; that path already updated us.
		metrics.GestureRejects.Inc()
		return false
	}
	if !c.begin(phaseZooming) {
		return false
	}
	defer c.end(phaseZooming)

	c.mu.Lock()
	changed := c.applyTransformLocked(t)
	win := c.ctx.Window
	hook := c.onViewChanged
	c.mu.Unlock()

	if changed && hook != nil {
		hook(win, true)
	}
	return changed
}

// ApplyBrush applies an overview selection. nil clears the selection and
// shows the whole overview. The zoom transform is updated to match; that
// update is the programmatic reciprocal and does not re-enter this
// handler. Degenerate zero-width selections are discarded and the
// previous view state is retained.
func (c *Controller) ApplyBrush(sel *Selection, src GestureSource) bool {
	if src == SourceZoomSync {
		// Echo of a zoom-driven sync; that path already updated us.
		metrics.GestureRejects.Inc()
		return false
	}
	if !c.begin(phaseBrushing) {
		return false
	}
	defer c.end(phaseBrushing)

	c.mu.Lock()
	changed := c.applyBrushLocked(sel)
	win := c.ctx.Window
	hook := c.onViewChanged
	c.mu.Unlock()

	if changed && hook != nil {
		hook(win, true)
	}
	return changed
}

// SetWindow shows win, clamped inside the overview. Used by date inputs,
// restores, and reloads; fires the view hook as non-interactive.
func (c *Controller) SetWindow(win Window) bool {
	if !c.begin(phaseProgram) {
		return false
	}
	defer c.end(phaseProgram)

	c.mu.Lock()
	changed := false
	if !win.IsZero() && win.Duration() > 0 {
		c.setWindowLocked(win.FitWithin(c.ctx.Overview))
		changed = true
	}
	win = c.ctx.Window
	hook := c.onViewChanged
	c.mu.Unlock()

	if changed && hook != nil {
		hook(win, false)
	}
	return changed
}

// ZoomBy zooms the current transform by factor with anchorPx (a focus
// pixel) held fixed, clamping the resulting scale to the configured zoom
// bounds. This is the entry point for wheel and key zoom gestures.
func (c *Controller) ZoomBy(factor, anchorPx float64) bool {
	if factor <= 0 || !isFinite(factor) || !isFinite(anchorPx) {
		return false
	}
	c.mu.RLock()
	cur := c.ctx.Transform
	minK, maxK := c.cfg.ZoomScaleMin, c.cfg.ZoomScaleMax
	c.mu.RUnlock()

	if k := cur.Scale * factor; k < minK {
		factor = minK / cur.Scale
	} else if k > maxK {
		factor = maxK / cur.Scale
	}
	return c.ApplyZoom(cur.ZoomBy(factor, anchorPx), SourceUser)
}

// PanBy pans the focus view by dx focus pixels.
func (c *Controller) PanBy(dx float64) bool {
	if !isFinite(dx) {
		return false
	}
	c.mu.RLock()
	cur := c.ctx.Transform
	c.mu.RUnlock()
	return c.ApplyZoom(cur.Pan(dx), SourceUser)
}

// Reset shows the whole overview.
func (c *Controller) Reset() bool {
	c.mu.RLock()
	ov := c.ctx.Overview
	c.mu.RUnlock()
	return c.SetWindow(ov)
}

// SetOverview installs new overview bounds after a dataset or goal change.
// The current window is kept and clamped inside the new bounds; a zero
// current window gets the configured initial span. Fires the view hook as
// non-interactive once the context is ready.
func (c *Controller) SetOverview(ov Window) {
	c.mu.Lock()
	c.ctx.Overview = ov
	if ov.IsZero() || ov.Duration() <= 0 {
		c.mu.Unlock()
		return
	}
	win := c.ctx.Window
	if win.IsZero() {
		win = InitialWindow(ov, c.cfg.InitialSpanMonths)
	} else {
		win = win.FitWithin(ov)
	}
	ready := c.ctx.Ready()
	if ready {
		c.setWindowLocked(win)
	} else {
		c.ctx.Window = win
	}
	hook := c.onViewChanged
	c.mu.Unlock()

	if ready && hook != nil {
		hook(win, false)
	}
}

// Resize records new chart widths and rederives the transform and brush
// for the unchanged window. The caller is responsible for re-rendering.
func (c *Controller) Resize(focusWidth, overviewWidth float64) {
	c.mu.Lock()
	if focusWidth > 0 && isFinite(focusWidth) {
		c.ctx.FocusWidth = focusWidth
	}
	if overviewWidth > 0 && isFinite(overviewWidth) {
		c.ctx.OverviewWidth = overviewWidth
	}
	if c.ctx.Ready() {
		if c.ctx.Window.IsZero() {
			c.ctx.Window = InitialWindow(c.ctx.Overview, c.cfg.InitialSpanMonths)
		}
		c.setWindowLocked(c.ctx.Window)
	}
	c.mu.Unlock()
}

// applyTransformLocked converts t to a window and installs it. Invalid or
// degenerate transforms are discarded.
func (c *Controller) applyTransformLocked(t Transform) bool {
	if !t.Valid() {
		debug.Log("timeline: discarding invalid transform scale=%v tx=%v", t.Scale, t.TranslateX)
		return false
	}
	win := t.Window(c.ctx.OverviewScale(), c.ctx.FocusWidth)
	if win.Duration() <= 0 {
		return false
	}
	c.setWindowLocked(win.FitWithin(c.ctx.Overview))
	return true
}

// applyBrushLocked converts sel to a window and installs it, keeping the
// user's exact selection as the brush.
func (c *Controller) applyBrushLocked(sel *Selection) bool {
	if sel == nil {
		c.setWindowLocked(c.ctx.Overview)
		return true
	}
	if !sel.Valid() {
		debug.Log("timeline: discarding invalid selection [%v,%v]", sel.Start, sel.End)
		return false
	}
	s := sel.Clamp(c.ctx.OverviewWidth)
	if s.Width() <= 0 {
		// Zero-width after clamping: a click, not a drag. Keep the view.
		return false
	}
	win := s.Window(c.ctx.OverviewScale())
	if win.Duration() <= 0 {
		return false
	}
	c.ctx.Window = win
	c.ctx.Transform = TransformFor(win, c.ctx.OverviewScale(), c.ctx.FocusWidth)
	c.ctx.Brush = &s
	return true
}

// setWindowLocked installs win and rederives the other two
// representations from it.
func (c *Controller) setWindowLocked(win Window) {
	c.ctx.Window = win
	c.ctx.Transform = TransformFor(win, c.ctx.OverviewScale(), c.ctx.FocusWidth)
	c.syncBrushLocked()
}

// syncBrushLocked derives the overview selection from the current window.
// A selection covering the whole strip collapses to nil, and a selection
// already within a pixel of the target is left alone so the widget is not
// churned by echoes.
func (c *Controller) syncBrushLocked() {
	sel := SelectionFor(c.ctx.Window, c.ctx.OverviewScale()).Clamp(c.ctx.OverviewWidth)
	full := Selection{Start: 0, End: c.ctx.OverviewWidth}
	if sel.WithinPixel(full) {
		c.ctx.Brush = nil
		return
	}
	if c.ctx.Brush != nil && c.ctx.Brush.WithinPixel(sel) {
		return
	}
	c.ctx.Brush = &sel
}

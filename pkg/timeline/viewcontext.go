package timeline

// ViewContext is the complete view state of one chart stack: the overview
// bounds, the pixel dimensions of the focus and overview charts, and the
// three mutually-derived representations of the current view (window,
// transform, brush selection).
//
// A ViewContext is owned by exactly one Controller; everyone else reads a
// copy. Until both charts have reported their dimensions the context is
// not ready and every gesture is a no-op; that single precondition check
// replaces per-field nil guards in the gesture paths.
type ViewContext struct {
	// Overview bounds the entire dataset, extended to goal and annotation
	// dates. Recomputed only when the dataset or goal changes.
	Overview Window

	// Pixel dimensions of the two charts. Zero until the first layout.
	FocusWidth    float64
	OverviewWidth float64

	// The three synchronized representations of the current view.
	Window    Window
	Transform Transform
	Brush     *Selection // nil means the whole overview
}

// Ready reports whether the context can convert between representations:
// both charts laid out and a non-degenerate overview.
func (v *ViewContext) Ready() bool {
	return v.FocusWidth > 0 && v.OverviewWidth > 0 && !v.Overview.IsZero() && v.Overview.Duration() > 0
}

// OverviewScale returns the scale mapping the overview bounds onto the
// overview strip.
func (v *ViewContext) OverviewScale() TimeScale {
	return NewTimeScale(v.Overview, v.OverviewWidth)
}

// FocusScale returns the scale mapping the current window onto the focus
// chart.
func (v *ViewContext) FocusScale() TimeScale {
	return NewTimeScale(v.Window, v.FocusWidth)
}

// clone returns a deep copy safe to hand out to readers.
func (v *ViewContext) clone() ViewContext {
	out := *v
	if v.Brush != nil {
		b := *v.Brush
		out.Brush = &b
	}
	return out
}

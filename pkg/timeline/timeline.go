// Package timeline implements the view-synchronization and render-scheduling
// engine behind the gramline dashboard: one zoomable focus view, one overview
// strip with a selection brush, and several secondary views all showing the
// same time window.
//
// The package has five cooperating parts:
//
//   - Controller keeps the zoom transform, the overview brush selection, and
//     the visible time window mutually consistent, with a gesture state
//     machine that stops the two input mechanisms from re-triggering each
//     other.
//   - RegressionBrush is an independent sub-range selector for the
//     regression overlay, fired on gesture end with a deadband tolerance.
//   - ComputeYDomain / ComputeXDomain derive axis domains from whatever is
//     visible, with a fallback chain that never yields NaN or Inf.
//   - Committer converts transient per-frame view state into the canonical
//     analysis range once interaction settles.
//   - Scheduler coalesces bursts of render requests into the minimum number
//     of passes.
//
// All state lives in explicit values owned by one Controller instance, so
// multiple independent chart stacks can coexist and everything is testable
// without globals.
package timeline

import "time"

// Defaults for the engine's tunable knobs. The tolerances are empirical
// values carried over from long use, not derived quantities; change them in
// config, not here.
const (
	DefaultSettleDelay         = 300 * time.Millisecond
	DefaultRegressionTolerance = 6 * time.Hour
	DefaultPaddingPct          = 0.05
	DefaultPaddingMinAbs       = 0.5
	DefaultInitialSpanMonths   = 3
	DefaultZoomScaleMin        = 1.0
	DefaultZoomScaleMax        = 365.0
)

// Config carries the engine's tunable knobs. Zero fields are replaced with
// the package defaults.
type Config struct {
	// SettleDelay is how long after the last interaction the view window is
	// committed as the canonical analysis range.
	SettleDelay time.Duration
	// RegressionTolerance is the deadband below which a regression-brush
	// move is treated as jitter and ignored.
	RegressionTolerance time.Duration
	// PaddingPct and PaddingMinAbs control Y-domain padding around the
	// visible value range.
	PaddingPct    float64
	PaddingMinAbs float64
	// InitialSpanMonths is the default focus window width on load, in
	// calendar months.
	InitialSpanMonths int
	// ZoomScaleMin and ZoomScaleMax bound user zoom gestures. Programmatic
	// transforms (brush sync, window restore) are not clamped.
	ZoomScaleMin float64
	ZoomScaleMax float64
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		SettleDelay:         DefaultSettleDelay,
		RegressionTolerance: DefaultRegressionTolerance,
		PaddingPct:          DefaultPaddingPct,
		PaddingMinAbs:       DefaultPaddingMinAbs,
		InitialSpanMonths:   DefaultInitialSpanMonths,
		ZoomScaleMin:        DefaultZoomScaleMin,
		ZoomScaleMax:        DefaultZoomScaleMax,
	}
}

func (c Config) withDefaults() Config {
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.RegressionTolerance <= 0 {
		c.RegressionTolerance = DefaultRegressionTolerance
	}
	if c.PaddingPct <= 0 {
		c.PaddingPct = DefaultPaddingPct
	}
	if c.PaddingMinAbs <= 0 {
		c.PaddingMinAbs = DefaultPaddingMinAbs
	}
	if c.InitialSpanMonths <= 0 {
		c.InitialSpanMonths = DefaultInitialSpanMonths
	}
	if c.ZoomScaleMin <= 0 {
		c.ZoomScaleMin = DefaultZoomScaleMin
	}
	if c.ZoomScaleMax <= c.ZoomScaleMin {
		c.ZoomScaleMax = DefaultZoomScaleMax
	}
	return c
}

// InitialWindow returns the default view for a freshly loaded dataset: the
// last spanMonths calendar months of the overview, clamped to its bounds.
// The window starts on the first day of the earliest covered month, so a
// dataset ending Jun 30 with a 3-month span opens on Apr 1 - Jun 30.
func InitialWindow(overview Window, spanMonths int) Window {
	if overview.IsZero() {
		return overview
	}
	if spanMonths <= 0 {
		spanMonths = DefaultInitialSpanMonths
	}
	end := overview.End
	y, m, _ := end.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, end.Location()).AddDate(0, -(spanMonths - 1), 0)
	if start.Before(overview.Start) {
		start = overview.Start
	}
	return Window{Start: start, End: end}
}

// FallbackOverview returns the overview used when the dataset is empty: a
// fixed spanMonths window ending at now, so the dashboard still renders a
// plausible empty chart.
func FallbackOverview(now time.Time, spanMonths int) Window {
	if spanMonths <= 0 {
		spanMonths = DefaultInitialSpanMonths
	}
	return Window{Start: now.AddDate(0, -spanMonths, 0), End: now}
}

package timeline

import (
	"math"
	"time"
)

// TimeScale is a linear map between a time window and a pixel range
// [0, width). It is the single conversion primitive everything else builds
// on: the overview scale maps the full overview bounds to the overview
// strip, the focus scale maps the current window to the focus chart.
type TimeScale struct {
	win   Window
	width float64
}

// NewTimeScale returns a scale mapping win onto [0, width).
func NewTimeScale(win Window, width float64) TimeScale {
	return TimeScale{win: win, width: width}
}

// Valid reports whether the scale can convert in both directions: a
// non-degenerate window and a positive, finite width.
func (s TimeScale) Valid() bool {
	return !s.win.IsZero() && s.win.Duration() > 0 && s.width > 0 && !math.IsInf(s.width, 0) && !math.IsNaN(s.width)
}

// Window returns the scale's time domain.
func (s TimeScale) Window() Window {
	return s.win
}

// Width returns the scale's pixel range.
func (s TimeScale) Width() float64 {
	return s.width
}

// Pos maps t to a pixel offset. Times outside the window extrapolate
// linearly. A degenerate scale maps everything to 0.
func (s TimeScale) Pos(t time.Time) float64 {
	if !s.Valid() {
		return 0
	}
	frac := float64(t.Sub(s.win.Start)) / float64(s.win.Duration())
	return frac * s.width
}

// TimeAt maps a pixel offset back to a time. A degenerate scale returns
// the window start.
func (s TimeScale) TimeAt(px float64) time.Time {
	if !s.Valid() {
		return s.win.Start
	}
	frac := px / s.width
	return s.win.Start.Add(time.Duration(frac * float64(s.win.Duration())))
}

// PixelDuration returns the time span covered by a single pixel. This is
// the resolution bound for round-trip conversions.
func (s TimeScale) PixelDuration() time.Duration {
	if !s.Valid() {
		return 0
	}
	return time.Duration(float64(s.win.Duration()) / s.width)
}

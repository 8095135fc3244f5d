package timeline

import "time"

// Window is an ordered pair of timestamps, Start <= End. It represents the
// visible view window, the overview bounds, the committed analysis range,
// and the regression sub-range. The zero Window means "unset".
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns a Window over a and b in either order.
func NewWindow(a, b time.Time) Window {
	if b.Before(a) {
		a, b = b, a
	}
	return Window{Start: a, End: b}
}

// IsZero reports whether the window is unset.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Days returns the window span in fractional days.
func (w Window) Days() float64 {
	return w.Duration().Hours() / 24
}

// Equal reports whether both endpoints match exactly.
func (w Window) Equal(o Window) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

// Contains reports whether t lies within the window, inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Shift slides both endpoints by d.
func (w Window) Shift(d time.Duration) Window {
	return Window{Start: w.Start.Add(d), End: w.End.Add(d)}
}

// FitWithin slides the window to lie inside bounds, preserving its span.
// A window wider than bounds collapses to bounds.
func (w Window) FitWithin(bounds Window) Window {
	if bounds.IsZero() {
		return w
	}
	if w.Duration() >= bounds.Duration() {
		return bounds
	}
	if w.Start.Before(bounds.Start) {
		return w.Shift(bounds.Start.Sub(w.Start))
	}
	if w.End.After(bounds.End) {
		return w.Shift(bounds.End.Sub(w.End))
	}
	return w
}

// Intersect clips the window to bounds. Returns the zero Window when they
// do not overlap.
func (w Window) Intersect(bounds Window) Window {
	start, end := w.Start, w.End
	if start.Before(bounds.Start) {
		start = bounds.Start
	}
	if end.After(bounds.End) {
		end = bounds.End
	}
	if end.Before(start) {
		return Window{}
	}
	return Window{Start: start, End: end}
}

// SnapToDays normalizes the window to whole-day boundaries: Start at
// 00:00:00.000 and End at 23:59:59.999 in each endpoint's own location.
// This is the canonical form of a committed analysis range, so two windows
// that differ only within a day compare equal after snapping.
func (w Window) SnapToDays() Window {
	if w.IsZero() {
		return w
	}
	sy, sm, sd := w.Start.Date()
	ey, em, ed := w.End.Date()
	return Window{
		Start: time.Date(sy, sm, sd, 0, 0, 0, 0, w.Start.Location()),
		End:   time.Date(ey, em, ed, 23, 59, 59, int(999*time.Millisecond), w.End.Location()),
	}
}

// WithinTolerance reports whether both endpoints of o are within tol of
// this window's endpoints.
func (w Window) WithinTolerance(o Window, tol time.Duration) bool {
	return absDuration(w.Start.Sub(o.Start)) <= tol && absDuration(w.End.Sub(o.End)) <= tol
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

package timeline

import "math"

// PixelMatchTolerance is the pixel epsilon below which two selections are
// considered the same. Used to skip echoing a brush update back onto a
// widget that already shows it. Empirical; tune with care.
const PixelMatchTolerance = 1.0

// Transform is an affine map from overview pixel space to focus pixel
// space: focusPx = Scale*overviewPx + TranslateX. It is the canonical
// representation of how zoomed and panned the focus view is.
type Transform struct {
	Scale      float64
	TranslateX float64
}

// Identity returns the unzoomed transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Valid reports whether the transform is usable: finite fields and a
// strictly positive scale.
func (t Transform) Valid() bool {
	return isFinite(t.Scale) && isFinite(t.TranslateX) && t.Scale > 0
}

// Apply maps an overview pixel to a focus pixel.
func (t Transform) Apply(px float64) float64 {
	return t.Scale*px + t.TranslateX
}

// Invert maps a focus pixel back to an overview pixel.
func (t Transform) Invert(px float64) float64 {
	return (px - t.TranslateX) / t.Scale
}

// Window returns the time window visible in a focus view of focusWidth
// pixels under this transform, given the overview scale.
func (t Transform) Window(overview TimeScale, focusWidth float64) Window {
	start := overview.TimeAt(t.Invert(0))
	end := overview.TimeAt(t.Invert(focusWidth))
	return NewWindow(start, end)
}

// ZoomBy returns the transform scaled by factor with the given focus pixel
// held fixed, so the content under the cursor stays put.
func (t Transform) ZoomBy(factor, anchorPx float64) Transform {
	return Transform{
		Scale:      t.Scale * factor,
		TranslateX: anchorPx - factor*(anchorPx-t.TranslateX),
	}
}

// Pan returns the transform shifted by dx focus pixels.
func (t Transform) Pan(dx float64) Transform {
	return Transform{Scale: t.Scale, TranslateX: t.TranslateX + dx}
}

// TransformFor returns the transform that makes a focus view of focusWidth
// pixels show exactly win, given the overview scale. Inverse of
// Transform.Window up to pixel resolution.
func TransformFor(win Window, overview TimeScale, focusWidth float64) Transform {
	p0 := overview.Pos(win.Start)
	p1 := overview.Pos(win.End)
	if p1-p0 <= 0 || !isFinite(p0) || !isFinite(p1) {
		return Identity()
	}
	k := focusWidth / (p1 - p0)
	return Transform{Scale: k, TranslateX: -k * p0}
}

// Selection is a pixel range on the overview strip, Start <= End. A nil
// *Selection means no selection, i.e. the whole overview window.
type Selection struct {
	Start float64
	End   float64
}

// NewSelection returns a Selection over a and b in either order.
func NewSelection(a, b float64) Selection {
	if b < a {
		a, b = b, a
	}
	return Selection{Start: a, End: b}
}

// Width returns End - Start.
func (s Selection) Width() float64 {
	return s.End - s.Start
}

// Valid reports whether both edges are finite.
func (s Selection) Valid() bool {
	return isFinite(s.Start) && isFinite(s.End) && s.End >= s.Start
}

// Clamp limits the selection to [0, width].
func (s Selection) Clamp(width float64) Selection {
	return Selection{
		Start: math.Max(0, math.Min(s.Start, width)),
		End:   math.Max(0, math.Min(s.End, width)),
	}
}

// Window converts the selection to a time window via the overview scale.
func (s Selection) Window(overview TimeScale) Window {
	return NewWindow(overview.TimeAt(s.Start), overview.TimeAt(s.End))
}

// WithinPixel reports whether o matches this selection within
// PixelMatchTolerance at both edges.
func (s Selection) WithinPixel(o Selection) bool {
	return math.Abs(s.Start-o.Start) <= PixelMatchTolerance && math.Abs(s.End-o.End) <= PixelMatchTolerance
}

// SelectionFor returns the overview selection covering win.
func SelectionFor(win Window, overview TimeScale) Selection {
	return NewSelection(overview.Pos(win.Start), overview.Pos(win.End))
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

package timeline

import (
	"math"

	"github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/metrics"
	"github.com/vanderheijden86/gramline/pkg/model"
)

// DefaultGoalBuffer widens the domain around a goal line so it never sits
// on the chart edge, in the value's own unit (kg for the weight chart).
const DefaultGoalBuffer = 2.0

// The last resort of the fallback chain: a stable constant domain in kg
// that renders a plausible empty weight chart.
const (
	fallbackDomainMin = 40.0
	fallbackDomainMax = 120.0
)

// DomainOptions parameterizes ComputeYDomain.
type DomainOptions struct {
	// PaddingPct and PaddingMinAbs expand the raw value range by
	// max(PaddingPct*range, PaddingMinAbs) on each side.
	PaddingPct    float64
	PaddingMinAbs float64
	// Height is the chart height in rows; taller charts get more ticks
	// and therefore a finer nice-rounding step. <= 0 uses a default.
	Height int
	// GoalBuffer is added around goal-kind series values. <= 0 uses
	// DefaultGoalBuffer.
	GoalBuffer float64
	// Fallback is the overview chart's own domain, tried before the
	// constant domain when the primary computation fails. The zero value
	// means unset.
	Fallback [2]float64
}

// ComputeYDomain derives the numeric axis domain from the visible entries
// and every visible overlay series: band kinds contribute their low/high
// bounds, goal kinds their value plus a buffer, everything else its value.
// The result is padded, then rounded outward to a nice step sized to the
// chart height.
//
// When the gathered range is empty or non-finite the fallback chain
// engages: first opts.Fallback, then a constant domain. The returned
// domain never contains NaN or Inf, so callers can hand it straight to an
// axis.
func ComputeYDomain(visible []model.Entry, overlays []model.Series, opts DomainOptions) [2]float64 {
	defer metrics.Timer(metrics.DomainCompute)()

	goalBuffer := opts.GoalBuffer
	if goalBuffer <= 0 {
		goalBuffer = DefaultGoalBuffer
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	add := func(v float64) {
		if !isFinite(v) {
			return
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	for _, e := range visible {
		add(e.WeightKg)
	}
	for _, s := range overlays {
		if !s.Visible || s.Empty() {
			continue
		}
		switch {
		case s.Kind.IsBand():
			for _, p := range s.Points {
				add(p.Low)
				add(p.High)
			}
		case s.Kind == model.SeriesGoal:
			for _, p := range s.Points {
				add(p.V - goalBuffer)
				add(p.V + goalBuffer)
			}
		default:
			for _, p := range s.Points {
				add(p.V)
			}
		}
	}

	if !isFinite(lo) || !isFinite(hi) || lo > hi {
		return fallbackDomain(opts.Fallback)
	}

	span := hi - lo
	pad := math.Max(opts.PaddingPct*span, opts.PaddingMinAbs)
	if span == 0 && pad <= 0 {
		// Single flat value and no configured padding: open up a unit so
		// the line is not glued to both edges.
		pad = 1
	}
	lo -= pad
	hi += pad

	step := niceStep(hi-lo, tickCountForHeight(opts.Height))
	if step > 0 {
		lo = math.Floor(lo/step) * step
		hi = math.Ceil(hi/step) * step
	}

	if !isFinite(lo) || !isFinite(hi) || lo >= hi {
		return fallbackDomain(opts.Fallback)
	}
	return [2]float64{lo, hi}
}

// ComputeXDomain returns the time domain for a secondary view, which
// simply mirrors the focus window so every view scrolls in lockstep.
func ComputeXDomain(focus Window) Window {
	return focus
}

func fallbackDomain(fallback [2]float64) [2]float64 {
	metrics.DomainFallbacks.Inc()
	if isFinite(fallback[0]) && isFinite(fallback[1]) && fallback[0] < fallback[1] {
		debug.Log("timeline: y-domain fell back to overview domain [%v,%v]", fallback[0], fallback[1])
		return fallback
	}
	debug.Log("timeline: y-domain fell back to constant domain")
	return [2]float64{fallbackDomainMin, fallbackDomainMax}
}

// tickCountForHeight maps a chart height in rows to a tick target.
// Braille rendering packs four sub-rows per row, so even short charts can
// carry a few ticks.
func tickCountForHeight(rows int) int {
	if rows <= 0 {
		return 4
	}
	ticks := rows / 4
	if ticks < 3 {
		return 3
	}
	if ticks > 10 {
		return 10
	}
	return ticks
}

// niceStep returns a 1/2/5*10^n step dividing span into about count
// intervals.
func niceStep(span float64, count int) float64 {
	if span <= 0 || count <= 0 || !isFinite(span) {
		return 0
	}
	raw := span / float64(count)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	norm := raw / mag
	switch {
	case norm < 1.5:
		return mag
	case norm < 3:
		return 2 * mag
	case norm < 7:
		return 5 * mag
	default:
		return 10 * mag
	}
}

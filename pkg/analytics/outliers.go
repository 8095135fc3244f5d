package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// outlierStdFloor keeps the deviation denominator away from zero when the
// surrounding window is nearly flat. In kg.
const outlierStdFloor = 0.3

// Outlier is a weigh-in that sits unusually far from its neighbourhood.
type Outlier struct {
	Entry     model.Entry
	Deviation float64 // signed, in standard deviations of the window
}

// DetectOutliers flags entries deviating from the mean of their day window
// by more than threshold standard deviations. The entry itself is excluded
// from its own window so a single spike cannot mask itself.
func DetectOutliers(entries []model.Entry, windowDays int, threshold float64) []Outlier {
	if len(entries) < 3 {
		return nil
	}
	if windowDays <= 0 {
		windowDays = 1
	}
	if threshold <= 0 {
		threshold = 2.5
	}

	half := time.Duration(windowDays) * 12 * time.Hour
	var out []Outlier
	buf := make([]float64, 0, windowDays*2)
	for i, e := range entries {
		lo, hi := e.Date.Add(-half), e.Date.Add(half)
		buf = buf[:0]
		for j := i - 1; j >= 0 && !entries[j].Date.Before(lo); j-- {
			buf = append(buf, entries[j].WeightKg)
		}
		for j := i + 1; j < len(entries) && !entries[j].Date.After(hi); j++ {
			buf = append(buf, entries[j].WeightKg)
		}
		if len(buf) < 2 {
			continue
		}
		mean, std := stat.MeanStdDev(buf, nil)
		if math.IsNaN(std) || std < outlierStdFloor {
			std = outlierStdFloor
		}
		dev := (e.WeightKg - mean) / std
		if math.Abs(dev) > threshold {
			out = append(out, Outlier{Entry: e, Deviation: dev})
		}
	}
	return out
}

// Plateau is a stretch where the fitted rate of change stayed inside the
// flat band.
type Plateau struct {
	Window    timeline.Window
	Days      int
	KgPerWeek float64 // fitted rate over the stretch
}

// DetectPlateaus finds maximal stretches of at least minDays whose fitted
// weekly rate stays within ±maxKgPerWeek. Stretches are non-overlapping
// and reported in time order.
func DetectPlateaus(entries []model.Entry, minDays int, maxKgPerWeek float64) []Plateau {
	if len(entries) < 2 {
		return nil
	}
	if minDays <= 0 {
		minDays = 21
	}
	if maxKgPerWeek <= 0 {
		maxKgPerWeek = 0.15
	}

	var out []Plateau
	start := 0
	for start < len(entries)-1 {
		var rf runningFit
		origin := entries[start].Date
		rf.add(0, entries[start].WeightKg)

		end := start
		for next := start + 1; next < len(entries); next++ {
			rf.add(entries[next].Date.Sub(origin).Hours()/24, entries[next].WeightKg)
			rate, ok := rf.slope()
			if ok && math.Abs(rate*7) > maxKgPerWeek {
				break
			}
			end = next
		}

		if end > start {
			span := entries[end].Date.Sub(origin)
			days := int(span.Hours() / 24)
			if days >= minDays {
				win := timeline.NewWindow(origin, entries[end].Date)
				rate := 0.0
				if fit, err := FitRange(entries[start:end+1], win); err == nil {
					rate = fit.KgPerWeek()
				}
				out = append(out, Plateau{Window: win, Days: days, KgPerWeek: rate})
				start = end + 1
				continue
			}
		}
		start++
	}
	return out
}

// runningFit accumulates least-squares sums so a growing stretch can be
// refitted in constant time per added sample.
type runningFit struct {
	n                float64
	sx, sy, sxx, sxy float64
}

func (r *runningFit) add(x, y float64) {
	r.n++
	r.sx += x
	r.sy += y
	r.sxx += x * x
	r.sxy += x * y
}

func (r *runningFit) slope() (float64, bool) {
	if r.n < 2 {
		return 0, false
	}
	den := r.n*r.sxx - r.sx*r.sx
	if den == 0 {
		return 0, false
	}
	return (r.n*r.sxy - r.sx*r.sy) / den, true
}

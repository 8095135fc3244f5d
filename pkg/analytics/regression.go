package analytics

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// Fit is an ordinary least-squares line over the weigh-ins inside a time
// window: weight = Alpha + Beta*daysSince(Window.Start).
type Fit struct {
	Window timeline.Window
	Alpha  float64 // kg at Window.Start
	Beta   float64 // kg per day
	N      int
	R2     float64
	RMSE   float64 // kg
}

// KgPerWeek returns the fitted rate of change per week.
func (f Fit) KgPerWeek() float64 {
	return f.Beta * 7
}

// KcalPerDay returns the daily energy balance the fitted rate implies.
func (f Fit) KcalPerDay() float64 {
	return f.Beta * model.KcalPerKg
}

// WeightAt returns the fitted weight at time tm.
func (f Fit) WeightAt(tm time.Time) float64 {
	days := tm.Sub(f.Window.Start).Hours() / 24
	return f.Alpha + days*f.Beta
}

// FitRange fits a regression line over the entries falling inside win.
// It needs at least two entries on distinct days; anything less is an
// error the caller absorbs by not drawing the overlay.
func FitRange(entries []model.Entry, win timeline.Window) (Fit, error) {
	if win.IsZero() || win.Duration() <= 0 {
		return Fit{}, fmt.Errorf("regression window is empty")
	}

	xs := make([]float64, 0, len(entries))
	ys := make([]float64, 0, len(entries))
	for _, e := range entries {
		if e.Date.Before(win.Start) || e.Date.After(win.End) {
			continue
		}
		xs = append(xs, e.Date.Sub(win.Start).Hours()/24)
		ys = append(ys, e.WeightKg)
	}
	if len(xs) < 2 {
		return Fit{}, fmt.Errorf("regression needs at least 2 entries in range, have %d", len(xs))
	}
	if xs[0] == xs[len(xs)-1] {
		return Fit{}, fmt.Errorf("regression needs entries on distinct days")
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	if !finite(alpha) || !finite(beta) {
		return Fit{}, fmt.Errorf("regression produced a degenerate fit")
	}

	var sse float64
	for i := range xs {
		r := ys[i] - (alpha + beta*xs[i])
		sse += r * r
	}
	return Fit{
		Window: win,
		Alpha:  alpha,
		Beta:   beta,
		N:      len(xs),
		R2:     stat.RSquared(xs, ys, nil, alpha, beta),
		RMSE:   math.Sqrt(sse / float64(len(xs))),
	}, nil
}

// RegressionSeries materializes the fitted line across its window. Two
// points suffice; the chart interpolates.
func RegressionSeries(f Fit) model.Series {
	return model.Series{
		Name:    "regression",
		Kind:    model.SeriesRegression,
		Visible: true,
		Points: []model.Point{
			{T: f.Window.Start, V: f.WeightAt(f.Window.Start)},
			{T: f.Window.End, V: f.WeightAt(f.Window.End)},
		},
	}
}

// RegressionBandSeries widens the fitted line by stdDevs residual RMSEs on
// each side.
func RegressionBandSeries(f Fit, stdDevs float64) model.Series {
	if stdDevs <= 0 {
		stdDevs = 1
	}
	margin := stdDevs * f.RMSE
	points := make([]model.Point, 0, 2)
	for _, t := range []time.Time{f.Window.Start, f.Window.End} {
		v := f.WeightAt(t)
		points = append(points, model.Point{T: t, V: v, Low: v - margin, High: v + margin})
	}
	return model.Series{
		Name:    "regression band",
		Kind:    model.SeriesRegressionBand,
		Visible: true,
		Points:  points,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

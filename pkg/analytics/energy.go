package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// The energy series answer "what is my body doing lately": the local rate
// of weight change, the maintenance calories (TDEE) that rate implies
// given logged intake, and the daily surplus or deficit against it.
//
// All three are rolling estimates over the same day window, one point per
// entry that has enough neighbours to estimate from.

// RateSeries returns the local rate of weight change in kg per week,
// fitted over a centered day window around each entry.
func RateSeries(entries []model.Entry, windowDays int) model.Series {
	s := model.Series{Name: "rate", Kind: model.SeriesRate, Visible: true}
	s.Points = make([]model.Point, 0, len(entries))
	for i, e := range entries {
		slope, ok := localSlope(entries, i, windowDays)
		if !ok {
			continue
		}
		s.Points = append(s.Points, model.Point{T: e.Date, V: slope * 7})
	}
	return s
}

// TDEESeries returns the rolling estimated maintenance calories: mean
// logged intake in the window minus the energy equivalent of the local
// weight change. Entries whose window holds no calorie data are skipped.
func TDEESeries(entries []model.Entry, windowDays int) model.Series {
	s := model.Series{Name: "tdee", Kind: model.SeriesTDEE, Visible: true}
	s.Points = make([]model.Point, 0, len(entries))
	for i, e := range entries {
		tdee, ok := localTDEE(entries, i, windowDays)
		if !ok {
			continue
		}
		s.Points = append(s.Points, model.Point{T: e.Date, V: tdee})
	}
	return s
}

// BalanceSeries returns the daily energy balance, logged intake minus the
// rolling TDEE estimate, for entries that logged calories. Positive means
// surplus.
func BalanceSeries(entries []model.Entry, windowDays int) model.Series {
	s := model.Series{Name: "balance", Kind: model.SeriesBalance, Visible: true}
	s.Points = make([]model.Point, 0, len(entries))
	for i, e := range entries {
		if e.Calories == nil {
			continue
		}
		tdee, ok := localTDEE(entries, i, windowDays)
		if !ok {
			continue
		}
		s.Points = append(s.Points, model.Point{T: e.Date, V: *e.Calories - tdee})
	}
	return s
}

// localSlope fits weight over time across the day window centered on
// entry i and returns the slope in kg/day. ok is false when the window
// holds fewer than two distinct days.
func localSlope(entries []model.Entry, i, windowDays int) (float64, bool) {
	if windowDays <= 0 {
		windowDays = 1
	}
	half := time.Duration(windowDays) * 12 * time.Hour
	center := entries[i].Date
	lo, hi := center.Add(-half), center.Add(half)

	var xs, ys []float64
	for j := i; j >= 0 && !entries[j].Date.Before(lo); j-- {
		xs = append(xs, entries[j].Date.Sub(center).Hours()/24)
		ys = append(ys, entries[j].WeightKg)
	}
	for j := i + 1; j < len(entries) && !entries[j].Date.After(hi); j++ {
		xs = append(xs, entries[j].Date.Sub(center).Hours()/24)
		ys = append(ys, entries[j].WeightKg)
	}
	if len(xs) < 2 || xs[0] == xs[len(xs)-1] {
		return 0, false
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if !finite(beta) {
		return 0, false
	}
	return beta, true
}

// localTDEE estimates maintenance calories around entry i: mean logged
// intake in the window minus KcalPerKg times the local slope. ok is false
// without both a slope and at least one calorie sample.
func localTDEE(entries []model.Entry, i, windowDays int) (float64, bool) {
	slope, ok := localSlope(entries, i, windowDays)
	if !ok {
		return 0, false
	}

	if windowDays <= 0 {
		windowDays = 1
	}
	half := time.Duration(windowDays) * 12 * time.Hour
	center := entries[i].Date
	lo, hi := center.Add(-half), center.Add(half)

	var intake []float64
	for j := i; j >= 0 && !entries[j].Date.Before(lo); j-- {
		if entries[j].Calories != nil {
			intake = append(intake, *entries[j].Calories)
		}
	}
	for j := i + 1; j < len(entries) && !entries[j].Date.After(hi); j++ {
		if entries[j].Calories != nil {
			intake = append(intake, *entries[j].Calories)
		}
	}
	if len(intake) == 0 {
		return 0, false
	}
	return stat.Mean(intake, nil) - model.KcalPerKg*slope, true
}

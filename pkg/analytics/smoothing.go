package analytics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// MovingAverageSeries returns a centered moving average of the weigh-ins,
// one point per entry. The window is a span of days, not a sample count,
// so gaps in logging do not stretch the smoothing horizon.
func MovingAverageSeries(entries []model.Entry, windowDays int) model.Series {
	s := model.Series{Name: "trend", Kind: model.SeriesSmoothed, Visible: true}
	if len(entries) == 0 {
		return s
	}
	if windowDays <= 0 {
		windowDays = 1
	}

	buf := make([]float64, 0, windowDays*2)
	s.Points = make([]model.Point, 0, len(entries))
	for i, e := range entries {
		buf = gatherWindow(entries, i, windowDays, buf)
		s.Points = append(s.Points, model.Point{T: e.Date, V: stat.Mean(buf, nil)})
	}
	return s
}

// ConfidenceBandSeries returns the moving mean widened by stdDevs standard
// deviations on each side, one band point per entry. Windows with a single
// sample get a zero-width band rather than a NaN one.
func ConfidenceBandSeries(entries []model.Entry, windowDays int, stdDevs float64) model.Series {
	s := model.Series{Name: "band", Kind: model.SeriesBand, Visible: true}
	if len(entries) == 0 {
		return s
	}
	if windowDays <= 0 {
		windowDays = 1
	}
	if stdDevs <= 0 {
		stdDevs = 1
	}

	buf := make([]float64, 0, windowDays*2)
	s.Points = make([]model.Point, 0, len(entries))
	for i, e := range entries {
		buf = gatherWindow(entries, i, windowDays, buf)
		mean, std := stat.MeanStdDev(buf, nil)
		if len(buf) < 2 {
			std = 0
		}
		s.Points = append(s.Points, model.Point{
			T:    e.Date,
			V:    mean,
			Low:  mean - stdDevs*std,
			High: mean + stdDevs*std,
		})
	}
	return s
}

// gatherWindow collects the weights of all entries within half the window
// span around entry i. Entries must be sorted by date; buf is reused.
func gatherWindow(entries []model.Entry, i, windowDays int, buf []float64) []float64 {
	half := time.Duration(windowDays) * 12 * time.Hour
	center := entries[i].Date
	lo, hi := center.Add(-half), center.Add(half)

	buf = buf[:0]
	for j := i; j >= 0 && !entries[j].Date.Before(lo); j-- {
		buf = append(buf, entries[j].WeightKg)
	}
	for j := i + 1; j < len(entries) && !entries[j].Date.After(hi); j++ {
		buf = append(buf, entries[j].WeightKg)
	}
	return buf
}

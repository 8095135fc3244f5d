package model

import "time"

// SeriesKind identifies what an overlay series represents. The kind drives
// both styling and how domain computation reads the series (band kinds
// contribute their Low/High bounds, the goal kind contributes its value
// plus a fixed buffer, everything else contributes V).
type SeriesKind string

const (
	SeriesRaw            SeriesKind = "raw"
	SeriesSmoothed       SeriesKind = "smoothed"
	SeriesBand           SeriesKind = "band"
	SeriesRegression     SeriesKind = "regression"
	SeriesRegressionBand SeriesKind = "regression_band"
	SeriesTrend          SeriesKind = "trend"
	SeriesGoal           SeriesKind = "goal"
	SeriesBalance        SeriesKind = "balance"
	SeriesRate           SeriesKind = "rate"
	SeriesTDEE           SeriesKind = "tdee"
)

// IsBand reports whether the kind carries Low/High bounds instead of V.
func (k SeriesKind) IsBand() bool {
	return k == SeriesBand || k == SeriesRegressionBand
}

// Point is one sample of an overlay series. Band kinds populate Low/High;
// all other kinds populate V.
type Point struct {
	T    time.Time
	V    float64
	Low  float64
	High float64
}

// Series is a named overlay stream with an independent visibility flag.
// Hidden series are skipped by domain computation and drawing alike.
type Series struct {
	Name    string
	Kind    SeriesKind
	Points  []Point
	Visible bool
}

// Empty reports whether the series has no points.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Between returns a copy of the series restricted to points with
// from <= T <= to. Points are assumed ordered by time; the copy's
// Points alias the underlying slice.
func (s Series) Between(from, to time.Time) Series {
	lo := 0
	for lo < len(s.Points) && s.Points[lo].T.Before(from) {
		lo++
	}
	hi := len(s.Points)
	for hi > lo && s.Points[hi-1].T.After(to) {
		hi--
	}
	out := s
	out.Points = s.Points[lo:hi]
	return out
}

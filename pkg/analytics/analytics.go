// Package analytics derives the overlay and secondary series the charts
// draw from a raw dataset: smoothed trend, confidence band, regression
// over the analysis range, manual trend lines, goal line, and the energy
// series (balance, rate of change, TDEE estimate). Everything it produces
// flows out through the model.Series contract; it knows nothing about
// rendering.
package analytics

import (
	"fmt"

	"github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/metrics"
	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// Options tunes the derived series. Zero fields take the defaults.
type Options struct {
	SmoothingDays       int     // moving-average window
	BandStdDevs         float64 // confidence band half-width
	EnergyWindowDays    int     // rate/TDEE/balance estimation window
	OutlierThreshold    float64 // in window standard deviations
	PlateauMinDays      int
	PlateauMaxKgPerWeek float64
}

// DefaultOptions returns the standard tuning.
func DefaultOptions() Options {
	return Options{
		SmoothingDays:       7,
		BandStdDevs:         1.0,
		EnergyWindowDays:    14,
		OutlierThreshold:    2.5,
		PlateauMinDays:      21,
		PlateauMaxKgPerWeek: 0.15,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SmoothingDays <= 0 {
		o.SmoothingDays = def.SmoothingDays
	}
	if o.BandStdDevs <= 0 {
		o.BandStdDevs = def.BandStdDevs
	}
	if o.EnergyWindowDays <= 0 {
		o.EnergyWindowDays = def.EnergyWindowDays
	}
	if o.OutlierThreshold <= 0 {
		o.OutlierThreshold = def.OutlierThreshold
	}
	if o.PlateauMinDays <= 0 {
		o.PlateauMinDays = def.PlateauMinDays
	}
	if o.PlateauMaxKgPerWeek <= 0 {
		o.PlateauMaxKgPerWeek = def.PlateauMaxKgPerWeek
	}
	return o
}

// Result is everything the dashboard derives from one dataset pass.
type Result struct {
	// Overlays are drawn on the focus chart: smoothed trend, confidence
	// band, regression line and band, manual trend lines, goal line.
	Overlays []model.Series

	// Secondary chart series, one per mini chart.
	Balance model.Series
	Rate    model.Series
	TDEE    model.Series

	// Fit is the regression over the analysis range, nil when the range
	// held too little data to fit.
	Fit *Fit

	Outliers []Outlier
	Plateaus []Plateau
}

// Compute derives all series for ds. regRange is the committed analysis
// range the regression is fitted over; a zero range means the full extent.
// Compute never fails: thin or empty data just produces fewer series.
func Compute(ds *model.Dataset, regRange timeline.Window, opts Options) Result {
	defer metrics.Timer(metrics.AnalyticsCompute)()
	opts = opts.withDefaults()

	var res Result
	if ds.Empty() {
		debug.Log("analytics: empty dataset, nothing to derive")
		return res
	}
	entries := ds.Entries

	res.Overlays = append(res.Overlays,
		MovingAverageSeries(entries, opts.SmoothingDays),
		ConfidenceBandSeries(entries, opts.SmoothingDays, opts.BandStdDevs),
	)

	if regRange.IsZero() {
		first, last, _ := ds.Extent()
		regRange = timeline.NewWindow(first, last)
	}
	if fit, err := FitRange(entries, regRange); err != nil {
		debug.Log("analytics: no regression overlay: %v", err)
	} else {
		res.Fit = &fit
		res.Overlays = append(res.Overlays,
			RegressionSeries(fit),
			RegressionBandSeries(fit, opts.BandStdDevs),
		)
	}

	res.Overlays = append(res.Overlays, TrendLineSeries(ds)...)
	if goal, ok := GoalSeries(ds); ok {
		res.Overlays = append(res.Overlays, goal)
	}

	res.Balance = BalanceSeries(entries, opts.EnergyWindowDays)
	res.Rate = RateSeries(entries, opts.EnergyWindowDays)
	res.TDEE = TDEESeries(entries, opts.EnergyWindowDays)

	res.Outliers = DetectOutliers(entries, opts.SmoothingDays, opts.OutlierThreshold)
	res.Plateaus = DetectPlateaus(entries, opts.PlateauMinDays, opts.PlateauMaxKgPerWeek)
	return res
}

// GoalSeries returns the straight line from the latest weigh-in to the
// goal target. ok is false without a goal or without entries.
func GoalSeries(ds *model.Dataset) (model.Series, bool) {
	latest, ok := ds.Latest()
	if !ok || ds.Goal == nil || ds.Goal.TargetDate.IsZero() {
		return model.Series{}, false
	}
	if !ds.Goal.TargetDate.After(latest.Date) {
		// Goal date already passed; a line pointing backwards just clutters.
		return model.Series{}, false
	}
	return model.Series{
		Name:    "goal",
		Kind:    model.SeriesGoal,
		Visible: true,
		Points: []model.Point{
			{T: latest.Date, V: latest.WeightKg},
			{T: ds.Goal.TargetDate, V: ds.Goal.TargetWeightKg},
		},
	}, true
}

// TrendLineSeries materializes each manual trend line from its start to
// the end of the overview extent.
func TrendLineSeries(ds *model.Dataset) []model.Series {
	if len(ds.TrendLines) == 0 {
		return nil
	}
	_, last, ok := ds.OverviewExtent()
	if !ok {
		return nil
	}

	out := make([]model.Series, 0, len(ds.TrendLines))
	for i, tl := range ds.TrendLines {
		if tl.Start.IsZero() || !last.After(tl.Start) {
			continue
		}
		name := tl.Label
		if name == "" {
			name = fmt.Sprintf("trend %d", i+1)
		}
		out = append(out, model.Series{
			Name:    name,
			Kind:    model.SeriesTrend,
			Visible: true,
			Points: []model.Point{
				{T: tl.Start, V: tl.StartWeightKg},
				{T: last, V: tl.WeightAt(last)},
			},
		})
	}
	return out
}

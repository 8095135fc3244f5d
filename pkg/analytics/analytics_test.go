package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

func day(offset int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// buildEntries produces one entry per day with weights from fn.
func buildEntries(days int, fn func(day int) float64) []model.Entry {
	entries := make([]model.Entry, days)
	for i := range entries {
		entries[i] = model.Entry{Date: day(i), WeightKg: fn(i)}
	}
	return entries
}

func withCalories(entries []model.Entry, kcal float64) []model.Entry {
	for i := range entries {
		c := kcal
		entries[i].Calories = &c
	}
	return entries
}

func TestMovingAverageFlattensNoise(t *testing.T) {
	// Sawtooth around 80: raw deviates by 1 kg, the 7-day mean must not.
	entries := buildEntries(14, func(d int) float64 {
		if d%2 == 0 {
			return 79
		}
		return 81
	})

	s := MovingAverageSeries(entries, 7)
	if len(s.Points) != len(entries) {
		t.Fatalf("got %d points, want %d", len(s.Points), len(entries))
	}
	for _, p := range s.Points[3 : len(s.Points)-3] {
		if math.Abs(p.V-80) > 0.5 {
			t.Errorf("smoothed value %v at %s strays from 80", p.V, p.T.Format("01-02"))
		}
	}
}

func TestConfidenceBandNeverNaN(t *testing.T) {
	single := []model.Entry{{Date: day(0), WeightKg: 80}}
	s := ConfidenceBandSeries(single, 7, 1)
	if len(s.Points) != 1 {
		t.Fatalf("got %d points, want 1", len(s.Points))
	}
	p := s.Points[0]
	if math.IsNaN(p.Low) || math.IsNaN(p.High) {
		t.Fatalf("single-sample band has NaN bounds: [%v, %v]", p.Low, p.High)
	}
	if p.Low != p.High {
		t.Errorf("single-sample band should be zero width, got [%v, %v]", p.Low, p.High)
	}
}

func TestConfidenceBandBracketsMean(t *testing.T) {
	entries := buildEntries(20, func(d int) float64 { return 80 + float64(d%3) })
	s := ConfidenceBandSeries(entries, 7, 2)
	for _, p := range s.Points {
		if p.Low > p.V || p.High < p.V {
			t.Errorf("band [%v,%v] does not bracket mean %v", p.Low, p.High, p.V)
		}
	}
}

func TestFitRangeRecoversSlope(t *testing.T) {
	// Exactly linear: 90 kg dropping 0.1 kg/day.
	entries := buildEntries(30, func(d int) float64 { return 90 - 0.1*float64(d) })
	win := timeline.NewWindow(day(0), day(29))

	fit, err := FitRange(entries, win)
	if err != nil {
		t.Fatalf("FitRange: %v", err)
	}
	if math.Abs(fit.Alpha-90) > 1e-6 {
		t.Errorf("Alpha = %v, want 90", fit.Alpha)
	}
	if math.Abs(fit.Beta+0.1) > 1e-6 {
		t.Errorf("Beta = %v, want -0.1", fit.Beta)
	}
	if math.Abs(fit.KgPerWeek()+0.7) > 1e-6 {
		t.Errorf("KgPerWeek = %v, want -0.7", fit.KgPerWeek())
	}
	if math.Abs(fit.KcalPerDay()+770) > 1e-3 {
		t.Errorf("KcalPerDay = %v, want -770", fit.KcalPerDay())
	}
	if fit.R2 < 0.999 {
		t.Errorf("R2 = %v for noiseless data, want ~1", fit.R2)
	}
	if fit.RMSE > 1e-6 {
		t.Errorf("RMSE = %v for noiseless data, want ~0", fit.RMSE)
	}
	if fit.N != 30 {
		t.Errorf("N = %d, want 30", fit.N)
	}
}

func TestFitRangeRespectsWindow(t *testing.T) {
	// Drop for 30 days, then flat. Fitting only the flat half must see
	// (nearly) zero slope.
	entries := buildEntries(60, func(d int) float64 {
		if d < 30 {
			return 90 - 0.1*float64(d)
		}
		return 87.1
	})

	fit, err := FitRange(entries, timeline.NewWindow(day(30), day(59)))
	if err != nil {
		t.Fatalf("FitRange: %v", err)
	}
	if math.Abs(fit.Beta) > 1e-9 {
		t.Errorf("Beta = %v over the flat half, want 0", fit.Beta)
	}
	if fit.N != 30 {
		t.Errorf("N = %d, want 30 entries inside the window", fit.N)
	}
}

func TestFitRangeErrors(t *testing.T) {
	entries := buildEntries(10, func(int) float64 { return 80 })
	cases := []struct {
		name string
		ents []model.Entry
		win  timeline.Window
	}{
		{"zero window", entries, timeline.Window{}},
		{"empty range", entries, timeline.NewWindow(day(100), day(120))},
		{"single entry", entries, timeline.NewWindow(day(2), day(2).Add(time.Hour))},
	}
	for _, tc := range cases {
		if _, err := FitRange(tc.ents, tc.win); err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
	}
}

func TestRegressionSeriesSpansWindow(t *testing.T) {
	entries := buildEntries(30, func(d int) float64 { return 90 - 0.1*float64(d) })
	win := timeline.NewWindow(day(0), day(29))
	fit, err := FitRange(entries, win)
	if err != nil {
		t.Fatalf("FitRange: %v", err)
	}

	line := RegressionSeries(fit)
	if len(line.Points) != 2 {
		t.Fatalf("line has %d points, want 2", len(line.Points))
	}
	if !line.Points[0].T.Equal(win.Start) || !line.Points[1].T.Equal(win.End) {
		t.Error("line endpoints do not sit on the window edges")
	}

	band := RegressionBandSeries(fit, 2)
	for _, p := range band.Points {
		if p.Low > p.V || p.High < p.V {
			t.Errorf("band [%v,%v] does not bracket %v", p.Low, p.High, p.V)
		}
	}
}

func TestEnergySeriesSteadyState(t *testing.T) {
	// Constant weight on constant 2000 kcal: maintenance is exactly the
	// intake and the balance is zero.
	entries := withCalories(buildEntries(30, func(int) float64 { return 80 }), 2000)

	tdee := TDEESeries(entries, 14)
	if tdee.Empty() {
		t.Fatal("no TDEE points for fully logged data")
	}
	for _, p := range tdee.Points {
		if math.Abs(p.V-2000) > 1e-6 {
			t.Errorf("TDEE = %v at steady state, want 2000", p.V)
		}
	}

	balance := BalanceSeries(entries, 14)
	for _, p := range balance.Points {
		if math.Abs(p.V) > 1e-6 {
			t.Errorf("balance = %v at steady state, want 0", p.V)
		}
	}

	rate := RateSeries(entries, 14)
	for _, p := range rate.Points {
		if math.Abs(p.V) > 1e-9 {
			t.Errorf("rate = %v at steady state, want 0", p.V)
		}
	}
}

func TestEnergySeriesDeficit(t *testing.T) {
	// Losing 0.1 kg/day on 1500 kcal: TDEE = 1500 + 770, balance = -770.
	entries := withCalories(buildEntries(30, func(d int) float64 {
		return 90 - 0.1*float64(d)
	}), 1500)

	tdee := TDEESeries(entries, 14)
	for _, p := range tdee.Points {
		if math.Abs(p.V-2270) > 1e-6 {
			t.Errorf("TDEE = %v in deficit, want 2270", p.V)
		}
	}
	balance := BalanceSeries(entries, 14)
	for _, p := range balance.Points {
		if math.Abs(p.V+770) > 1e-6 {
			t.Errorf("balance = %v in deficit, want -770", p.V)
		}
	}
	rate := RateSeries(entries, 14)
	for _, p := range rate.Points {
		if math.Abs(p.V+0.7) > 1e-9 {
			t.Errorf("rate = %v kg/week in deficit, want -0.7", p.V)
		}
	}
}

func TestEnergySeriesSkipWithoutCalories(t *testing.T) {
	entries := buildEntries(30, func(int) float64 { return 80 })
	if s := TDEESeries(entries, 14); !s.Empty() {
		t.Errorf("TDEE produced %d points without calorie data", len(s.Points))
	}
	if s := BalanceSeries(entries, 14); !s.Empty() {
		t.Errorf("balance produced %d points without calorie data", len(s.Points))
	}
}

func TestDetectOutliersFlagsSpike(t *testing.T) {
	entries := buildEntries(21, func(int) float64 { return 80 })
	entries[10].WeightKg = 82 // water weight morning

	out := DetectOutliers(entries, 7, 2.5)
	if len(out) != 1 {
		t.Fatalf("flagged %d outliers, want 1", len(out))
	}
	if !out[0].Entry.Date.Equal(day(10)) {
		t.Errorf("flagged %s, want the spike on %s",
			out[0].Entry.Date.Format("01-02"), day(10).Format("01-02"))
	}
	if out[0].Deviation <= 2.5 {
		t.Errorf("deviation = %v, want above threshold", out[0].Deviation)
	}
}

func TestDetectOutliersQuietData(t *testing.T) {
	entries := buildEntries(21, func(d int) float64 { return 80 + 0.1*float64(d%2) })
	if out := DetectOutliers(entries, 7, 2.5); len(out) != 0 {
		t.Errorf("flagged %d outliers in quiet data, want 0", len(out))
	}
}

func TestDetectPlateausFindsFlatStretch(t *testing.T) {
	// 30 days of steady loss, then 30 days flat.
	entries := buildEntries(60, func(d int) float64 {
		if d < 30 {
			return 90 - 0.1*float64(d)
		}
		return 87.1
	})

	plateaus := DetectPlateaus(entries, 21, 0.15)
	if len(plateaus) != 1 {
		t.Fatalf("found %d plateaus, want 1", len(plateaus))
	}
	p := plateaus[0]
	if p.Days < 21 {
		t.Errorf("plateau of %d days, want at least 21", p.Days)
	}
	if math.Abs(p.KgPerWeek) > 0.15 {
		t.Errorf("plateau rate %v exceeds the flat band", p.KgPerWeek)
	}
	if p.Window.End.Before(day(59)) {
		t.Errorf("plateau ends %s, want it to reach the last entry", p.Window.End.Format("01-02"))
	}
	if p.Window.Start.Before(day(28)) {
		t.Errorf("plateau starts %s, inside the losing stretch", p.Window.Start.Format("01-02"))
	}
}

func TestDetectPlateausNoneWhileLosing(t *testing.T) {
	entries := buildEntries(60, func(d int) float64 { return 90 - 0.1*float64(d) })
	if plateaus := DetectPlateaus(entries, 21, 0.15); len(plateaus) != 0 {
		t.Errorf("found %d plateaus during steady loss, want 0", len(plateaus))
	}
}

func TestComputeAssemblesResult(t *testing.T) {
	ds := &model.Dataset{
		Entries: withCalories(buildEntries(60, func(d int) float64 {
			return 90 - 0.05*float64(d)
		}), 1800),
		Goal: &model.Goal{TargetDate: day(120), TargetWeightKg: 82},
		TrendLines: []model.TrendLine{
			{Start: day(0), StartWeightKg: 90, KcalPerDay: -385, Label: "plan"},
		},
	}

	res := Compute(ds, timeline.Window{}, Options{})

	kinds := map[model.SeriesKind]int{}
	for _, s := range res.Overlays {
		kinds[s.Kind]++
	}
	for _, want := range []model.SeriesKind{
		model.SeriesSmoothed, model.SeriesBand,
		model.SeriesRegression, model.SeriesRegressionBand,
		model.SeriesTrend, model.SeriesGoal,
	} {
		if kinds[want] == 0 {
			t.Errorf("overlays missing a %s series", want)
		}
	}
	if res.Fit == nil {
		t.Fatal("no regression fit over the full extent")
	}
	if math.Abs(res.Fit.KgPerWeek()+0.35) > 1e-6 {
		t.Errorf("fit rate = %v kg/week, want -0.35", res.Fit.KgPerWeek())
	}
	if res.Balance.Empty() || res.Rate.Empty() || res.TDEE.Empty() {
		t.Error("energy series missing despite logged calories")
	}
}

func TestComputeEmptyDataset(t *testing.T) {
	res := Compute(&model.Dataset{}, timeline.Window{}, DefaultOptions())
	if len(res.Overlays) != 0 || res.Fit != nil {
		t.Error("empty dataset should derive nothing")
	}
}

func TestGoalSeriesSkipsPastTarget(t *testing.T) {
	ds := &model.Dataset{
		Entries: buildEntries(30, func(int) float64 { return 80 }),
		Goal:    &model.Goal{TargetDate: day(10), TargetWeightKg: 78},
	}
	if _, ok := GoalSeries(ds); ok {
		t.Error("goal line drawn for a target date already behind the data")
	}
}

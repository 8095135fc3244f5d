package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/gramline/pkg/model"
)

func TestLinear(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		kgPerDay float64
	}{
		{"loss_30", 30, -0.05},
		{"gain_14", 14, 0.04},
		{"flat_60", 60, 0},
		{"single_day", 1, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := NewDefault().Linear(tt.days, tt.kgPerDay)

			AssertEntryCount(t, entries, tt.days)
			AssertSortedByDate(t, entries)
			AssertNoDuplicateDays(t, entries)
			AssertAllValid(t, entries)

			if tt.days < 2 {
				return
			}
			// Net drift should follow the trend sign when the trend
			// dominates the noise.
			drift := entries[len(entries)-1].WeightKg - entries[0].WeightKg
			expected := tt.kgPerDay * float64(tt.days-1)
			if expected < -1 && drift > 0 {
				t.Errorf("loss trend drifted up: %+.1f kg", drift)
			}
			if expected > 1 && drift < 0 {
				t.Errorf("gain trend drifted down: %+.1f kg", drift)
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	a := New(DefaultConfig()).Entries(Phase{Days: 90, KgPerDay: -0.04}, Phase{Days: 30})
	b := New(DefaultConfig()).Entries(Phase{Days: 90, KgPerDay: -0.04}, Phase{Days: 30})

	if len(a) != len(b) {
		t.Fatalf("same seed produced %d vs %d entries", len(a), len(b))
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) || a[i].WeightKg != b[i].WeightKg {
			t.Fatalf("entry %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMissedRateDropsDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MissedRate = 0.5
	entries := New(cfg).Flat(200)

	if len(entries) == 200 {
		t.Error("MissedRate=0.5 dropped no days")
	}
	if len(entries) < 50 {
		t.Errorf("MissedRate=0.5 left only %d of 200 days", len(entries))
	}
	AssertNoDuplicateDays(t, entries)
	// Dates still span the full stretch even with gaps.
	span := entries[len(entries)-1].Date.Sub(entries[0].Date)
	if span < 150*24*time.Hour {
		t.Errorf("span collapsed to %s", span)
	}
}

func TestSeasonal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoiseKg = 0
	entries := New(cfg).Seasonal(365, 3)

	AssertEntryCount(t, entries, 365)
	lo, hi := entries[0].WeightKg, entries[0].WeightKg
	for _, e := range entries {
		if e.WeightKg < lo {
			lo = e.WeightKg
		}
		if e.WeightKg > hi {
			hi = e.WeightKg
		}
	}
	if hi-lo < 4 || hi-lo > 8 {
		t.Errorf("amplitude 3 produced range %.1f..%.1f", lo, hi)
	}
}

func TestWithOutliers(t *testing.T) {
	base := NewDefault().Flat(20)
	spiked := WithOutliers(base, 5, 4)

	if len(spiked) != len(base) {
		t.Fatalf("length changed: %d vs %d", len(spiked), len(base))
	}
	changed := 0
	for i := range base {
		if spiked[i].WeightKg != base[i].WeightKg {
			changed++
			if (i+1)%5 != 0 {
				t.Errorf("entry %d changed but is not every 5th", i)
			}
		}
	}
	if changed != 4 {
		t.Errorf("changed %d entries, want 4", changed)
	}
}

func TestWithGaps(t *testing.T) {
	base := NewDefault().Flat(10)
	gapped := WithGaps(base, 3)

	if len(gapped) != 7 {
		t.Fatalf("WithGaps(10, 3) left %d entries, want 7", len(gapped))
	}
	AssertSortedByDate(t, gapped)
}

func TestDatasetWithGoal(t *testing.T) {
	ds := DatasetWithGoal(QuickLoss(60), 85, 3)

	if ds.Goal == nil {
		t.Fatal("no goal attached")
	}
	if ds.Goal.TargetWeightKg != 85 {
		t.Errorf("goal weight = %v, want 85", ds.Goal.TargetWeightKg)
	}
	_, last, ok := ds.Extent()
	if !ok {
		t.Fatal("dataset has no extent")
	}
	if !ds.Goal.TargetDate.After(last) {
		t.Errorf("goal date %s not after last entry %s", ds.Goal.TargetDate, last)
	}

	if empty := DatasetWithGoal(Empty(), 85, 3); empty.Goal != nil {
		t.Error("empty dataset grew a goal")
	}
}

func TestToJSONL(t *testing.T) {
	kcal := 2000.0
	entries := []model.Entry{
		{Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), WeightKg: 90.5},
		{Date: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), WeightKg: 90.1, Calories: &kcal, Note: "rest day"},
	}

	out := ToJSONL(entries)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], `"date":"2025-02-01"`) {
		t.Errorf("line 1 missing day-precision date: %s", lines[0])
	}
	if strings.Contains(lines[0], "calories") {
		t.Errorf("line 1 should omit empty calories: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"calories":2000`) || !strings.Contains(lines[1], `"note":"rest day"`) {
		t.Errorf("line 2 missing fields: %s", lines[1])
	}
}

func TestQuickHelpers(t *testing.T) {
	if got := len(QuickLoss(30)); got != 30 {
		t.Errorf("QuickLoss(30) = %d entries", got)
	}
	if got := len(QuickGain(15)); got != 15 {
		t.Errorf("QuickGain(15) = %d entries", got)
	}
	if got := len(QuickPlateau(7)); got != 7 {
		t.Errorf("QuickPlateau(7) = %d entries", got)
	}
	if got := len(Empty()); got != 0 {
		t.Errorf("Empty() = %d entries", got)
	}

	single := Single()
	AssertEntryCount(t, single, 1)
	AssertAllValid(t, single)
}

package timeline

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewWindowOrdersEndpoints(t *testing.T) {
	a := date(2025, 3, 10)
	b := date(2025, 1, 1)
	w := NewWindow(a, b)
	if !w.Start.Equal(b) || !w.End.Equal(a) {
		t.Errorf("NewWindow did not order endpoints: %v", w)
	}
}

func TestSnapToDays(t *testing.T) {
	w := Window{
		Start: time.Date(2025, 2, 3, 10, 30, 12, 0, time.UTC),
		End:   time.Date(2025, 2, 10, 14, 45, 0, 0, time.UTC),
	}
	snapped := w.SnapToDays()

	wantStart := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 2, 10, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !snapped.Start.Equal(wantStart) {
		t.Errorf("snapped start = %v, want %v", snapped.Start, wantStart)
	}
	if !snapped.End.Equal(wantEnd) {
		t.Errorf("snapped end = %v, want %v", snapped.End, wantEnd)
	}

	if again := snapped.SnapToDays(); !again.Equal(snapped) {
		t.Errorf("SnapToDays not idempotent: %v vs %v", again, snapped)
	}

	var zero Window
	if !zero.SnapToDays().IsZero() {
		t.Error("snapping the zero window should stay zero")
	}
}

func TestSnapToDaysEqualizesSameDayWindows(t *testing.T) {
	a := Window{
		Start: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 30, 11, 0, 0, 0, time.UTC),
	}
	b := Window{
		Start: time.Date(2025, 4, 1, 16, 20, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC),
	}
	if !a.SnapToDays().Equal(b.SnapToDays()) {
		t.Error("windows covering the same days should snap equal")
	}
}

func TestFitWithin(t *testing.T) {
	bounds := Window{Start: date(2025, 1, 1), End: date(2025, 6, 30)}

	tests := []struct {
		name string
		win  Window
		want Window
	}{
		{
			name: "inside stays put",
			win:  Window{Start: date(2025, 2, 1), End: date(2025, 3, 1)},
			want: Window{Start: date(2025, 2, 1), End: date(2025, 3, 1)},
		},
		{
			name: "left overflow slides right",
			win:  Window{Start: date(2024, 12, 15), End: date(2025, 1, 15)},
			want: Window{Start: date(2025, 1, 1), End: date(2025, 2, 1)},
		},
		{
			name: "right overflow slides left",
			win:  Window{Start: date(2025, 6, 15), End: date(2025, 7, 15)},
			want: Window{Start: date(2025, 5, 31), End: date(2025, 6, 30)},
		},
		{
			name: "wider than bounds collapses to bounds",
			win:  Window{Start: date(2024, 1, 1), End: date(2026, 1, 1)},
			want: bounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.win.FitWithin(bounds)
			if !got.Equal(tt.want) {
				t.Errorf("FitWithin = %v, want %v", got, tt.want)
			}
			if got.Duration() != tt.want.Duration() {
				t.Errorf("FitWithin changed span: %v vs %v", got.Duration(), tt.want.Duration())
			}
		})
	}
}

func TestInitialWindowUsesCalendarMonths(t *testing.T) {
	overview := Window{Start: date(2025, 1, 1), End: date(2025, 6, 30)}

	got := InitialWindow(overview, 3)
	want := Window{Start: date(2025, 4, 1), End: date(2025, 6, 30)}
	if !got.Equal(want) {
		t.Errorf("InitialWindow = %v - %v, want %v - %v",
			got.Start.Format("2006-01-02"), got.End.Format("2006-01-02"),
			want.Start.Format("2006-01-02"), want.End.Format("2006-01-02"))
	}
}

func TestInitialWindowClampsToOverviewStart(t *testing.T) {
	overview := Window{Start: date(2025, 5, 15), End: date(2025, 6, 30)}
	got := InitialWindow(overview, 3)
	if !got.Start.Equal(overview.Start) {
		t.Errorf("start = %v, want clamped to %v", got.Start, overview.Start)
	}
	if !got.End.Equal(overview.End) {
		t.Errorf("end = %v, want %v", got.End, overview.End)
	}
}

func TestInitialWindowMidMonthEnd(t *testing.T) {
	overview := Window{Start: date(2024, 1, 1), End: date(2025, 6, 15)}
	got := InitialWindow(overview, 3)
	if want := date(2025, 4, 1); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
}

func TestFallbackOverviewEndsNow(t *testing.T) {
	now := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	got := FallbackOverview(now, 3)
	if !got.End.Equal(now) {
		t.Errorf("end = %v, want %v", got.End, now)
	}
	if want := now.AddDate(0, -3, 0); !got.Start.Equal(want) {
		t.Errorf("start = %v, want %v", got.Start, want)
	}
	if got.Duration() <= 0 {
		t.Error("fallback overview must have positive span")
	}
}

func TestWithinTolerance(t *testing.T) {
	w := Window{Start: date(2025, 3, 1), End: date(2025, 4, 1)}
	near := Window{Start: w.Start.Add(2 * time.Hour), End: w.End.Add(-3 * time.Hour)}
	far := Window{Start: w.Start.Add(10 * time.Hour), End: w.End}

	if !w.WithinTolerance(near, 6*time.Hour) {
		t.Error("2h/3h deltas should be within a 6h tolerance")
	}
	if w.WithinTolerance(far, 6*time.Hour) {
		t.Error("10h delta should exceed a 6h tolerance")
	}
}

func TestIntersect(t *testing.T) {
	bounds := Window{Start: date(2025, 1, 1), End: date(2025, 2, 1)}
	if got := (Window{Start: date(2024, 12, 1), End: date(2025, 1, 15)}).Intersect(bounds); !got.Start.Equal(bounds.Start) {
		t.Errorf("intersect start = %v, want %v", got.Start, bounds.Start)
	}
	if got := (Window{Start: date(2025, 3, 1), End: date(2025, 4, 1)}).Intersect(bounds); !got.IsZero() {
		t.Errorf("disjoint intersect = %v, want zero", got)
	}
}

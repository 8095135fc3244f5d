package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/gramline/pkg/timeline"
)

func TestRangeInputsPopulate(t *testing.T) {
	r := newRangeInputs()
	win := timeline.NewWindow(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	).SnapToDays()

	r.Populate(win)
	if got := r.from.Value(); got != "2025-03-01" {
		t.Errorf("from = %q", got)
	}
	if got := r.to.Value(); got != "2025-04-30" {
		t.Errorf("to = %q", got)
	}

	// A zero window leaves the fields alone.
	r.Populate(timeline.Window{})
	if r.from.Value() != "2025-03-01" {
		t.Error("zero window clobbered the fields")
	}
}

func TestRangeInputsParseRoundTrip(t *testing.T) {
	r := newRangeInputs()
	win := timeline.NewWindow(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	).SnapToDays()

	r.Populate(win)
	got, err := r.Parse()
	if err != nil {
		t.Fatalf("parse after populate: %v", err)
	}
	if !got.Equal(win) {
		t.Errorf("round trip = %v, want %v", got, win)
	}
}

func TestRangeInputsParseReordersReversedDates(t *testing.T) {
	r := newRangeInputs()
	r.from.SetValue("2025-04-30")
	r.to.SetValue("2025-03-01")

	got, err := r.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Start.Before(got.End) {
		t.Errorf("window not reordered: %v", got)
	}
	if got.Start.Format(dateLayout) != "2025-03-01" {
		t.Errorf("start = %v, want 2025-03-01", got.Start)
	}
}

func TestRangeInputsParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantIn   string
	}{
		{"bad from", "03/01/2025", "2025-04-30", "from date"},
		{"bad to", "2025-03-01", "yesterday", "to date"},
		{"empty from", "", "2025-04-30", "from date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRangeInputs()
			r.from.SetValue(tt.from)
			r.to.SetValue(tt.to)
			_, err := r.Parse()
			if err == nil {
				t.Fatal("no error")
			}
			if !strings.Contains(err.Error(), tt.wantIn) {
				t.Errorf("error %q does not name the bad field %q", err, tt.wantIn)
			}
		})
	}
}

func TestRangeInputsFocusCycle(t *testing.T) {
	r := newRangeInputs()

	r.Focus()
	if r.active != 0 || !r.from.Focused() {
		t.Fatalf("active = %d, from focused = %v after Focus", r.active, r.from.Focused())
	}

	r.Next()
	if r.active != 1 || !r.to.Focused() || r.from.Focused() {
		t.Errorf("active = %d after Next, want to field focused", r.active)
	}

	r.Next()
	if r.active != 0 || !r.from.Focused() {
		t.Errorf("active = %d after second Next, want from field focused", r.active)
	}

	r.Blur()
	if r.from.Focused() || r.to.Focused() {
		t.Error("fields still focused after Blur")
	}
}

func TestRangeInputsViewShowsBothFields(t *testing.T) {
	r := newRangeInputs()
	r.Populate(timeline.NewWindow(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	).SnapToDays())

	out := r.View(TestTheme())
	if !strings.Contains(out, "2025-03-01") || !strings.Contains(out, "2025-04-30") {
		t.Errorf("view missing dates: %q", out)
	}
	if !strings.Contains(out, "range") {
		t.Errorf("view missing label: %q", out)
	}
}

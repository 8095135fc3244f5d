package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// AssertEntryCount verifies the expected number of entries.
func AssertEntryCount(t *testing.T, entries []model.Entry, expected int) {
	t.Helper()
	if len(entries) != expected {
		t.Errorf("expected %d entries, got %d", expected, len(entries))
	}
}

// AssertSortedByDate verifies entries are in ascending date order.
func AssertSortedByDate(t *testing.T, entries []model.Entry) {
	t.Helper()
	for i := 1; i < len(entries); i++ {
		if entries[i].Date.Before(entries[i-1].Date) {
			t.Errorf("entries out of order at %d: %s before %s",
				i, entries[i].Date.Format("2006-01-02"), entries[i-1].Date.Format("2006-01-02"))
			return
		}
	}
}

// AssertNoDuplicateDays verifies at most one entry per calendar day.
func AssertNoDuplicateDays(t *testing.T, entries []model.Entry) {
	t.Helper()
	seen := make(map[time.Time]bool)
	for _, e := range entries {
		day := e.Day()
		if seen[day] {
			t.Errorf("duplicate entry for %s", day.Format("2006-01-02"))
		}
		seen[day] = true
	}
}

// AssertAllValid verifies all entries pass validation.
func AssertAllValid(t *testing.T, entries []model.Entry) {
	t.Helper()
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			t.Errorf("entry %d invalid: %v", i, err)
		}
	}
}

// AssertWindowEqual verifies two windows match to the nanosecond.
func AssertWindowEqual(t *testing.T, got, want timeline.Window) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("window mismatch:\ngot:  %s .. %s\nwant: %s .. %s",
			got.Start.Format(time.RFC3339), got.End.Format(time.RFC3339),
			want.Start.Format(time.RFC3339), want.End.Format(time.RFC3339))
	}
}

// AssertWindowWithin verifies two windows match to the given tolerance
// on both edges. Useful after pixel-space round trips.
func AssertWindowWithin(t *testing.T, got, want timeline.Window, tol time.Duration) {
	t.Helper()
	if d := got.Start.Sub(want.Start); d < -tol || d > tol {
		t.Errorf("window start off by %s (got %s, want %s)",
			d, got.Start.Format(time.RFC3339), want.Start.Format(time.RFC3339))
	}
	if d := got.End.Sub(want.End); d < -tol || d > tol {
		t.Errorf("window end off by %s (got %s, want %s)",
			d, got.End.Format(time.RFC3339), want.End.Format(time.RFC3339))
	}
}

// AssertSeriesFinite verifies a series carries no NaN or Inf values.
func AssertSeriesFinite(t *testing.T, s model.Series) {
	t.Helper()
	for i, p := range s.Points {
		if math.IsNaN(p.V) || math.IsInf(p.V, 0) {
			t.Errorf("series %q point %d (%s) is not finite: %v",
				s.Kind, i, p.T.Format("2006-01-02"), p.V)
			return
		}
	}
}

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// TempDir helpers

// WriteEntriesJSONL writes entries as JSONL to the given path, creating
// parent directories as needed.
func WriteEntriesJSONL(t *testing.T, path string, entries []model.Entry) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSONL(entries)), 0644); err != nil {
		t.Fatalf("failed to write entries file: %v", err)
	}
}

// TempEntriesFile writes entries to entries.jsonl in a fresh temp dir
// and returns the file path.
func TempEntriesFile(t *testing.T, entries []model.Entry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "entries.jsonl")
	WriteEntriesJSONL(t, path, entries)
	return path
}

// FindEntry returns the entry for the given day, or nil if not found.
func FindEntry(entries []model.Entry, day time.Time) *model.Entry {
	for i := range entries {
		if entries[i].Day().Equal(day) {
			return &entries[i]
		}
	}
	return nil
}

// Package model defines the core data types for gramline: weight entries,
// goals, annotations, manual trend lines, and the overlay series produced
// by the analytics layer.
//
// Weights are stored in kilograms internally; unit conversion happens at
// the presentation edge. All timestamps are day-resolution dates carried
// as time.Time in the location they were recorded in.
package model

import (
	"fmt"
	"sort"
	"time"
)

// Entry is a single logged measurement: one weigh-in per calendar day,
// optionally with that day's calorie intake.
type Entry struct {
	Date     time.Time `json:"date"`
	WeightKg float64   `json:"weight_kg"`
	Calories *float64  `json:"calories,omitempty"`
	Note     string    `json:"note,omitempty"`
}

// Validate reports whether the entry is well-formed.
func (e Entry) Validate() error {
	if e.Date.IsZero() {
		return fmt.Errorf("entry has zero date")
	}
	if e.WeightKg <= 0 {
		return fmt.Errorf("entry %s: weight must be positive, got %v", e.Date.Format("2006-01-02"), e.WeightKg)
	}
	if e.Calories != nil && *e.Calories < 0 {
		return fmt.Errorf("entry %s: calories must be non-negative, got %v", e.Date.Format("2006-01-02"), *e.Calories)
	}
	return nil
}

// Day returns the entry's date truncated to midnight in its own location.
func (e Entry) Day() time.Time {
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Date.Location())
}

// Goal is a target weight by a target date.
type Goal struct {
	TargetDate     time.Time `json:"target_date"`
	TargetWeightKg float64   `json:"target_weight_kg"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// Annotation marks a date with free text (vacation, illness, new routine).
// Annotation dates can lie outside the measured range and extend the
// overview window.
type Annotation struct {
	Date time.Time `json:"date"`
	Text string    `json:"text"`
}

// TrendLine is a user-drawn projection: starting weight at a start date,
// sloping by a daily energy balance. The slope in kg/day is derived from
// KcalPerDay via the energy density of body mass.
type TrendLine struct {
	Start         time.Time `json:"start"`
	StartWeightKg float64   `json:"start_weight_kg"`
	KcalPerDay    float64   `json:"kcal_per_day"`
	Label         string    `json:"label,omitempty"`
}

// KcalPerKg is the approximate energy density of body mass used to convert
// between calorie balance and weight change.
const KcalPerKg = 7700.0

// SlopeKgPerDay returns the trend line's slope in kg per day.
func (t TrendLine) SlopeKgPerDay() float64 {
	return t.KcalPerDay / KcalPerKg
}

// WeightAt returns the trend line's projected weight at time tm.
func (t TrendLine) WeightAt(tm time.Time) float64 {
	days := tm.Sub(t.Start).Hours() / 24
	return t.StartWeightKg + days*t.SlopeKgPerDay()
}

// Dataset is the full loaded state: entries sorted ascending by date plus
// the optional goal, annotations, and manual trend lines.
type Dataset struct {
	Entries     []Entry
	Goal        *Goal
	Annotations []Annotation
	TrendLines  []TrendLine
}

// Sort orders entries ascending by date. Load paths call this once; all
// other Dataset methods assume sorted entries.
func (d *Dataset) Sort() {
	sort.Slice(d.Entries, func(i, j int) bool {
		return d.Entries[i].Date.Before(d.Entries[j].Date)
	})
}

// Empty reports whether the dataset has no entries.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Entries) == 0
}

// Extent returns the first and last entry dates. ok is false when the
// dataset has no entries.
func (d *Dataset) Extent() (first, last time.Time, ok bool) {
	if d.Empty() {
		return time.Time{}, time.Time{}, false
	}
	return d.Entries[0].Date, d.Entries[len(d.Entries)-1].Date, true
}

// OverviewExtent returns the extent widened to include the goal target
// date and any annotation dates, so the overview strip can show markers
// that lie beyond the measured range.
func (d *Dataset) OverviewExtent() (first, last time.Time, ok bool) {
	first, last, ok = d.Extent()
	if !ok {
		return first, last, false
	}
	if d.Goal != nil && !d.Goal.TargetDate.IsZero() {
		if d.Goal.TargetDate.Before(first) {
			first = d.Goal.TargetDate
		}
		if d.Goal.TargetDate.After(last) {
			last = d.Goal.TargetDate
		}
	}
	for _, a := range d.Annotations {
		if a.Date.IsZero() {
			continue
		}
		if a.Date.Before(first) {
			first = a.Date
		}
		if a.Date.After(last) {
			last = a.Date
		}
	}
	return first, last, true
}

// Slice returns the entries with from <= Date <= to. Entries must be
// sorted; the result aliases the underlying slice.
func (d *Dataset) Slice(from, to time.Time) []Entry {
	if d.Empty() || to.Before(from) {
		return nil
	}
	lo := sort.Search(len(d.Entries), func(i int) bool {
		return !d.Entries[i].Date.Before(from)
	})
	hi := sort.Search(len(d.Entries), func(i int) bool {
		return d.Entries[i].Date.After(to)
	})
	if lo >= hi {
		return nil
	}
	return d.Entries[lo:hi]
}

// Latest returns the most recent entry.
func (d *Dataset) Latest() (Entry, bool) {
	if d.Empty() {
		return Entry{}, false
	}
	return d.Entries[len(d.Entries)-1], true
}

// Upsert inserts or replaces the entry for its calendar day, keeping the
// slice sorted.
func (d *Dataset) Upsert(e Entry) {
	day := e.Day()
	i := sort.Search(len(d.Entries), func(i int) bool {
		return !d.Entries[i].Day().Before(day)
	})
	if i < len(d.Entries) && d.Entries[i].Day().Equal(day) {
		d.Entries[i] = e
		return
	}
	d.Entries = append(d.Entries, Entry{})
	copy(d.Entries[i+1:], d.Entries[i:])
	d.Entries[i] = e
}

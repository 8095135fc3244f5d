package datasource

import (
	"fmt"
	"math"
	"sort"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// SourceDiff represents differences between two data sources
type SourceDiff struct {
	// SourceA is the path of the first source
	SourceA string
	// SourceB is the path of the second source
	SourceB string
	// MissingInA contains days present in B but not in A
	MissingInA []string
	// MissingInB contains days present in A but not in B
	MissingInB []string
	// WeightMismatch contains days with different weights between sources
	WeightMismatch []WeightDifference
	// CountA is the number of entries in source A
	CountA int
	// CountB is the number of entries in source B
	CountB int
}

// WeightDifference represents a weight mismatch for a single day
type WeightDifference struct {
	Day     string  `json:"day"`
	WeightA float64 `json:"weight_a"`
	WeightB float64 `json:"weight_b"`
}

// HasInconsistencies returns true if there are any differences between sources
func (d SourceDiff) HasInconsistencies() bool {
	return len(d.MissingInA) > 0 || len(d.MissingInB) > 0 || len(d.WeightMismatch) > 0
}

// Summary returns a human-readable summary of the differences
func (d SourceDiff) Summary() string {
	if !d.HasInconsistencies() {
		return fmt.Sprintf("Sources match (%d entries each)", d.CountA)
	}

	summary := fmt.Sprintf("Inconsistencies found between %s and %s:\n", d.SourceA, d.SourceB)

	if d.CountA != d.CountB {
		summary += fmt.Sprintf("  - Count mismatch: %d vs %d\n", d.CountA, d.CountB)
	}

	if len(d.MissingInA) > 0 {
		summary += fmt.Sprintf("  - %d days in %s but not %s\n", len(d.MissingInA), d.SourceB, d.SourceA)
		if len(d.MissingInA) <= 5 {
			for _, day := range d.MissingInA {
				summary += fmt.Sprintf("    - %s\n", day)
			}
		}
	}

	if len(d.MissingInB) > 0 {
		summary += fmt.Sprintf("  - %d days in %s but not %s\n", len(d.MissingInB), d.SourceA, d.SourceB)
		if len(d.MissingInB) <= 5 {
			for _, day := range d.MissingInB {
				summary += fmt.Sprintf("    - %s\n", day)
			}
		}
	}

	if len(d.WeightMismatch) > 0 {
		summary += fmt.Sprintf("  - %d days with different weights\n", len(d.WeightMismatch))
		if len(d.WeightMismatch) <= 5 {
			for _, m := range d.WeightMismatch {
				summary += fmt.Sprintf("    - %s: %.2f vs %.2f\n", m.Day, m.WeightA, m.WeightB)
			}
		}
	}

	return summary
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// ToleranceKg is the weight delta below which two readings count as equal
	ToleranceKg float64
	// MaxDifferences limits the number of differences tracked (0 = unlimited)
	MaxDifferences int
}

// DefaultDiffOptions returns sensible default diff options
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{
		ToleranceKg:    0.01,
		MaxDifferences: 100,
	}
}

// DetectInconsistencies compares two sets of entries and returns the
// differences, keyed by calendar day. Results are sorted by day so
// summaries and tests are deterministic.
func DetectInconsistencies(entriesA, entriesB []model.Entry, sourceA, sourceB string, opts DiffOptions) SourceDiff {
	diff := SourceDiff{
		SourceA: sourceA,
		SourceB: sourceB,
	}

	// Build maps for fast lookup
	mapA := make(map[string]model.Entry)
	for _, e := range entriesA {
		mapA[formatDay(e.Day())] = e
	}

	mapB := make(map[string]model.Entry)
	for _, e := range entriesB {
		mapB[formatDay(e.Day())] = e
	}

	diff.CountA = len(mapA)
	diff.CountB = len(mapB)

	// Find days in A but not in B
	for day := range mapA {
		if _, exists := mapB[day]; !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInB) < opts.MaxDifferences {
				diff.MissingInB = append(diff.MissingInB, day)
			}
		}
	}

	// Find days in B but not in A, and weight mismatches
	for day, entryB := range mapB {
		entryA, exists := mapA[day]
		if !exists {
			if opts.MaxDifferences == 0 || len(diff.MissingInA) < opts.MaxDifferences {
				diff.MissingInA = append(diff.MissingInA, day)
			}
			continue
		}
		if math.Abs(entryA.WeightKg-entryB.WeightKg) > opts.ToleranceKg {
			if opts.MaxDifferences == 0 || len(diff.WeightMismatch) < opts.MaxDifferences {
				diff.WeightMismatch = append(diff.WeightMismatch, WeightDifference{
					Day:     day,
					WeightA: entryA.WeightKg,
					WeightB: entryB.WeightKg,
				})
			}
		}
	}

	sort.Strings(diff.MissingInA)
	sort.Strings(diff.MissingInB)
	sort.Slice(diff.WeightMismatch, func(i, j int) bool {
		return diff.WeightMismatch[i].Day < diff.WeightMismatch[j].Day
	})

	return diff
}

// CompareSources loads and compares two data sources
func CompareSources(sourceA, sourceB DataSource, opts DiffOptions) (*SourceDiff, error) {
	entriesA, err := loadEntriesFromSource(sourceA)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}

	entriesB, err := loadEntriesFromSource(sourceB)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}

	diff := DetectInconsistencies(entriesA, entriesB, sourceA.Path, sourceB.Path, opts)
	return &diff, nil
}

// loadEntriesFromSource loads just the entries from any source type
func loadEntriesFromSource(source DataSource) ([]model.Entry, error) {
	ds, err := LoadFromSource(source)
	if err != nil {
		return nil, err
	}
	return ds.Entries, nil
}

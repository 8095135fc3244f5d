// Package testutil provides deterministic weight-series fixtures for
// analytics and rendering tests. All generators produce the same output
// for the same seed so failures reproduce exactly.
package testutil

import (
	"encoding/json"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// Phase is a stretch of days with a constant underlying trend.
type Phase struct {
	Days     int
	KgPerDay float64
}

// GeneratorConfig controls entry generation.
type GeneratorConfig struct {
	Seed          int64     // Random seed for determinism (0 = use current time)
	Start         time.Time // Date of the first entry (default: fixed date)
	StartWeightKg float64   // Weight before the first phase applies
	NoiseKg       float64   // Std dev of daily scale noise
	MissedRate    float64   // Probability a day has no entry
	CalorieRate   float64   // Probability an entry carries calories
	CalorieMean   float64   // Mean of generated calories
	CalorieJitter float64   // Std dev of generated calories
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          42, // Deterministic
		Start:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		StartWeightKg: 92,
		NoiseKg:       0.4,
		CalorieRate:   0.8,
		CalorieMean:   2100,
		CalorieJitter: 250,
	}
}

// Generator creates weight-entry fixtures with various trajectories.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if cfg.StartWeightKg == 0 {
		cfg.StartWeightKg = 92
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Entries walks the phases day by day and records one entry per
// non-missed day. The underlying weight drifts by the phase trend; the
// recorded weight adds scale noise on top.
func (g *Generator) Entries(phases ...Phase) []model.Entry {
	var out []model.Entry
	weight := g.cfg.StartWeightKg
	day := g.cfg.Start

	for _, ph := range phases {
		for i := 0; i < ph.Days; i++ {
			weight += ph.KgPerDay
			if g.cfg.MissedRate > 0 && g.rng.Float64() < g.cfg.MissedRate {
				day = day.AddDate(0, 0, 1)
				continue
			}
			e := model.Entry{
				Date:     day,
				WeightKg: round1(weight + g.rng.NormFloat64()*g.cfg.NoiseKg),
			}
			if g.cfg.CalorieRate > 0 && g.rng.Float64() < g.cfg.CalorieRate {
				kcal := math.Round(g.cfg.CalorieMean + g.rng.NormFloat64()*g.cfg.CalorieJitter)
				e.Calories = &kcal
			}
			out = append(out, e)
			day = day.AddDate(0, 0, 1)
		}
	}
	return out
}

// Linear creates entries following a single constant trend.
func (g *Generator) Linear(days int, kgPerDay float64) []model.Entry {
	return g.Entries(Phase{Days: days, KgPerDay: kgPerDay})
}

// Flat creates a plateau: no underlying trend, noise only.
func (g *Generator) Flat(days int) []model.Entry {
	return g.Entries(Phase{Days: days})
}

// Seasonal creates entries following a year-period sine wave around the
// start weight, for testing smoothing against slow oscillation.
func (g *Generator) Seasonal(days int, amplitudeKg float64) []model.Entry {
	var out []model.Entry
	for i := 0; i < days; i++ {
		w := g.cfg.StartWeightKg + amplitudeKg*math.Sin(2*math.Pi*float64(i)/365)
		out = append(out, model.Entry{
			Date:     g.cfg.Start.AddDate(0, 0, i),
			WeightKg: round1(w + g.rng.NormFloat64()*g.cfg.NoiseKg),
		})
	}
	return out
}

// WithOutliers shifts every nth entry by offsetKg, for testing outlier
// detection. The input slice is not modified.
func WithOutliers(entries []model.Entry, every int, offsetKg float64) []model.Entry {
	if every < 1 {
		every = 1
	}
	out := make([]model.Entry, len(entries))
	copy(out, entries)
	for i := every - 1; i < len(out); i += every {
		out[i].WeightKg = round1(out[i].WeightKg + offsetKg)
	}
	return out
}

// WithGaps drops every nth entry, for testing irregular sampling.
func WithGaps(entries []model.Entry, every int) []model.Entry {
	if every < 2 {
		return entries
	}
	out := make([]model.Entry, 0, len(entries))
	for i, e := range entries {
		if (i+1)%every == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Dataset wraps entries in a sorted Dataset.
func Dataset(entries []model.Entry) *model.Dataset {
	ds := &model.Dataset{Entries: entries}
	ds.Sort()
	return ds
}

// DatasetWithGoal wraps entries in a Dataset carrying a goal some months
// past the last entry.
func DatasetWithGoal(entries []model.Entry, targetKg float64, monthsAhead int) *model.Dataset {
	ds := Dataset(entries)
	if first, last, ok := ds.Extent(); ok {
		ds.Goal = &model.Goal{
			TargetDate:     last.AddDate(0, monthsAhead, 0),
			TargetWeightKg: targetKg,
			CreatedAt:      first,
		}
	}
	return ds
}

// ToJSONL converts entries to the on-disk JSONL format (one object per
// line, day-precision dates).
func ToJSONL(entries []model.Entry) string {
	type record struct {
		Date     string   `json:"date"`
		WeightKg float64  `json:"weight_kg"`
		Calories *float64 `json:"calories,omitempty"`
		Note     string   `json:"note,omitempty"`
	}
	var sb strings.Builder
	for _, e := range entries {
		data, err := json.Marshal(record{
			Date:     e.Date.Format("2006-01-02"),
			WeightKg: e.WeightKg,
			Calories: e.Calories,
			Note:     e.Note,
		})
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickLoss creates a steady-loss series with default settings.
func QuickLoss(days int) []model.Entry {
	return NewDefault().Linear(days, -0.05)
}

// QuickGain creates a steady-gain series with default settings.
func QuickGain(days int) []model.Entry {
	return NewDefault().Linear(days, 0.04)
}

// QuickPlateau creates a flat series with default settings.
func QuickPlateau(days int) []model.Entry {
	return NewDefault().Flat(days)
}

// Empty returns an empty entry slice for edge case testing.
func Empty() []model.Entry {
	return []model.Entry{}
}

// Single returns one entry with no calories.
func Single() []model.Entry {
	cfg := DefaultConfig()
	return []model.Entry{{
		Date:     cfg.Start,
		WeightKg: cfg.StartWeightKg,
	}}
}

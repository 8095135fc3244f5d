package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/model"
)

const lbPerKg = 2.20462262

func weightValue(kg float64, unit string) float64 {
	if unit == "lb" {
		return kg * lbPerKg
	}
	return kg
}

func unitSuffix(unit string) string {
	if unit == "lb" {
		return "lb"
	}
	return "kg"
}

func rateSuffix(unit string) string {
	if unit == "lb" {
		return "lb/wk"
	}
	return "kg/wk"
}

func displayWeight(kg float64, unit string) string {
	return fmt.Sprintf("%.1f %s", weightValue(kg, unit), unitSuffix(unit))
}

// statsPane is the scrollable side pane. Content arrives pre-rendered
// (markdown through glamour) with each frame; the pane only scrolls it.
type statsPane struct {
	viewport viewport.Model
	theme    Theme
}

func newStatsPane(w, h int, th Theme) statsPane {
	return statsPane{viewport: viewport.New(w, h), theme: th}
}

func (s *statsPane) Resize(w, h int) {
	s.viewport.Width = w
	s.viewport.Height = h
}

func (s *statsPane) SetContent(rendered string) {
	s.viewport.SetContent(rendered)
}

func (s *statsPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.viewport, cmd = s.viewport.Update(msg)
	return cmd
}

func (s *statsPane) View() string {
	return s.theme.PaneBorder.Render(s.viewport.View())
}

// buildStatsMarkdown assembles the side pane's markdown from the current
// frame input. Kept pure so it can be tested without a terminal.
func buildStatsMarkdown(in *frameInput) string {
	var b strings.Builder
	u := in.Unit
	b.WriteString("# Stats\n\n")

	latest, ok := latestEntry(in.AllEntries)
	if !ok {
		b.WriteString("No entries yet.\n\nAdd one with `gramline --add`.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**Latest** %s on %s\n\n",
		displayWeight(latest.WeightKg, u), latest.Date.Format(dateLayout))

	if d7, ok := changeOver(in, latest, 7); ok {
		fmt.Fprintf(&b, "7d %+.1f %s", weightValue(d7, u), unitSuffix(u))
		if d30, ok := changeOver(in, latest, 30); ok {
			fmt.Fprintf(&b, " | 30d %+.1f %s", weightValue(d30, u), unitSuffix(u))
		}
		b.WriteString("\n\n")
	}

	if f := in.Fit; f != nil {
		fmt.Fprintf(&b, "**Trend** %s to %s\n\n",
			f.Window.Start.Format(dateLayout), f.Window.End.Format(dateLayout))
		fmt.Fprintf(&b, "%+.2f %s | %+.0f kcal/d | R² %.2f | n=%d\n\n",
			weightValue(f.KgPerWeek(), u), rateSuffix(u), f.KcalPerDay(), f.R2, f.N)
	}

	if bal, ok := lastValue(&in.Balance); ok {
		fmt.Fprintf(&b, "**Energy**\n\nbalance %+.0f kcal/d", bal)
		if tdee, ok := lastValue(&in.TDEE); ok {
			fmt.Fprintf(&b, " | TDEE %.0f kcal/d", tdee)
		}
		b.WriteString("\n\n")
	}

	if g := in.Goal; g != nil {
		fmt.Fprintf(&b, "**Goal** %s by %s\n\n",
			displayWeight(g.TargetWeightKg, u), g.TargetDate.Format(dateLayout))
		remaining := g.TargetWeightKg - latest.WeightKg
		fmt.Fprintf(&b, "to go %+.1f %s", weightValue(remaining, u), unitSuffix(u))
		if eta, ok := goalETA(in.Fit, latest, g.TargetWeightKg); ok {
			fmt.Fprintf(&b, " | ETA %s", eta.Format(dateLayout))
		} else {
			b.WriteString(" | ETA n/a")
		}
		b.WriteString("\n\n")
	}

	if len(in.Plateaus) > 0 {
		b.WriteString("**Plateaus**\n\n")
		for _, p := range in.Plateaus {
			fmt.Fprintf(&b, "- %s to %s (%dd)\n",
				p.Window.Start.Format(dateLayout), p.Window.End.Format(dateLayout), p.Days)
		}
		b.WriteString("\n")
	}

	if n := len(in.Outliers); n > 0 {
		fmt.Fprintf(&b, "**Outliers** %d flagged\n", n)
	}

	return b.String()
}

func latestEntry(entries []model.Entry) (model.Entry, bool) {
	if len(entries) == 0 {
		return model.Entry{}, false
	}
	return entries[len(entries)-1], true
}

// changeOver reports the weight change over the past days. It prefers the
// smoothed series; raw entries stand in only when the smoothed overlay
// does not cover both dates, and only within a 3 day slack.
func changeOver(in *frameInput, latest model.Entry, days int) (float64, bool) {
	then := latest.Date.AddDate(0, 0, -days)
	if s := findOverlay(in, model.SeriesSmoothed); s != nil {
		now, ok1 := seriesValueAt(s, latest.Date)
		prev, ok2 := seriesValueAt(s, then)
		if ok1 && ok2 {
			return now - prev, true
		}
	}
	e, ok := nearestEntry(in.AllEntries, then)
	if !ok {
		return 0, false
	}
	if d := e.Date.Sub(then); d < -3*24*time.Hour || d > 3*24*time.Hour {
		return 0, false
	}
	return latest.WeightKg - e.WeightKg, true
}

func findOverlay(in *frameInput, kind model.SeriesKind) *model.Series {
	for i := range in.Overlays {
		if in.Overlays[i].Kind == kind {
			return &in.Overlays[i]
		}
	}
	return nil
}

func lastValue(s *model.Series) (float64, bool) {
	if s == nil || len(s.Points) == 0 {
		return 0, false
	}
	return s.Points[len(s.Points)-1].V, true
}

// goalETA projects the fitted line to the target weight. No ETA when the
// trend points away from the goal or lands more than five years out.
func goalETA(f *analytics.Fit, latest model.Entry, targetKg float64) (time.Time, bool) {
	if f == nil || f.Beta == 0 {
		return time.Time{}, false
	}
	days := (targetKg - f.WeightAt(latest.Date)) / f.Beta
	if days < 0 || days > 365*5 {
		return time.Time{}, false
	}
	return latest.Date.AddDate(0, 0, int(math.Round(days))), true
}

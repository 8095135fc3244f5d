package ui

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/gramline/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so style helpers can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals, so charts stay
// readable instead of down-converting to mud.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme carries the dashboard's colors and pre-computed styles. Styles are
// created once at startup, not per frame.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Chrome
	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor

	// Series colors, matching the SVG/PNG snapshot palette so the
	// terminal and the exported chart read the same.
	Raw            lipgloss.AdaptiveColor
	Smoothed       lipgloss.AdaptiveColor
	Band           lipgloss.AdaptiveColor
	Regression     lipgloss.AdaptiveColor
	RegressionBand lipgloss.AdaptiveColor
	Trend          lipgloss.AdaptiveColor
	Goal           lipgloss.AdaptiveColor
	Outlier        lipgloss.AdaptiveColor
	Annotation     lipgloss.AdaptiveColor

	// Pre-computed styles
	Base        lipgloss.Style
	Header      lipgloss.Style
	HeaderInfo  lipgloss.Style
	Axis        lipgloss.Style
	Label       lipgloss.Style
	MutedText   lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
	InputLabel  lipgloss.Style
	BrushFill   lipgloss.Style
	BrushHandle lipgloss.Style
	StripLine   lipgloss.Style
	PaneBorder  lipgloss.Style
	ChartTitle  lipgloss.Style
	OutlierMark lipgloss.Style
	GoalMark    lipgloss.Style
	AnnotMark   lipgloss.Style

	series map[model.SeriesKind]lipgloss.Style
}

// DefaultTheme returns the standard adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Subtext: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Muted:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"},
		Border:  lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Danger:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},

		Raw:            lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"},
		Smoothed:       lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"},
		Band:           lipgloss.AdaptiveColor{Light: "#93C5FD", Dark: "#3B82F6"},
		Regression:     lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"},
		RegressionBand: lipgloss.AdaptiveColor{Light: "#FDBA74", Dark: "#9A3412"},
		Trend:          lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"},
		Goal:           lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"},
		Outlier:        lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"},
		Annotation:     lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"})
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.HeaderInfo = r.NewStyle().Foreground(t.Subtext)
	t.Axis = r.NewStyle().Foreground(t.Border)
	t.Label = r.NewStyle().Foreground(t.Muted)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	t.StatusError = r.NewStyle().Foreground(t.Danger).Bold(true)
	t.InputLabel = r.NewStyle().Foreground(t.Muted)
	t.BrushFill = r.NewStyle().Foreground(t.Primary)
	t.BrushHandle = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.StripLine = r.NewStyle().Foreground(t.Muted)
	t.PaneBorder = r.NewStyle().
		Border(lipgloss.RoundedBorder(), false, false, false, true).
		BorderForeground(t.Border).
		PaddingLeft(1)
	t.ChartTitle = r.NewStyle().Foreground(t.Subtext).Bold(true)
	t.OutlierMark = r.NewStyle().Foreground(t.Outlier)
	t.GoalMark = r.NewStyle().Foreground(t.Goal)
	t.AnnotMark = r.NewStyle().Foreground(t.Annotation)

	t.series = map[model.SeriesKind]lipgloss.Style{
		model.SeriesRaw:            r.NewStyle().Foreground(t.Raw),
		model.SeriesSmoothed:       r.NewStyle().Foreground(t.Smoothed),
		model.SeriesBand:           r.NewStyle().Foreground(t.Band),
		model.SeriesRegression:     r.NewStyle().Foreground(t.Regression),
		model.SeriesRegressionBand: r.NewStyle().Foreground(t.RegressionBand),
		model.SeriesTrend:          r.NewStyle().Foreground(t.Trend),
		model.SeriesGoal:           r.NewStyle().Foreground(t.Goal),
		model.SeriesBalance:        r.NewStyle().Foreground(t.Regression),
		model.SeriesRate:           r.NewStyle().Foreground(t.Smoothed),
		model.SeriesTDEE:           r.NewStyle().Foreground(t.Trend),
	}

	return t
}

// SeriesStyle returns the drawing style for an overlay kind.
func (t Theme) SeriesStyle(kind model.SeriesKind) lipgloss.Style {
	if s, ok := t.series[kind]; ok {
		return s
	}
	return t.Base
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}

// truncateCells truncates a string to max visual width in cells, adding
// suffix if truncation happened. Wide characters count correctly.
func truncateCells(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}

// padRight pads s with spaces on the right to width runes.
func padRight(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

package ui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/metrics"
	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// Frame is one fully rendered set of dashboard panels. The event loop
// stores the latest frame and composes it in View; panels never render
// inside View itself.
type Frame struct {
	Focus     string
	Overview  string
	Secondary string
	Stats     string // glamour-rendered side pane
	Summary   string // raw stats markdown, for the clipboard

	// FocusGraphX/W describe where the drawable graph area sits inside
	// the focus panel, for mouse hit testing and strip alignment.
	FocusGraphX int
	FocusGraphW int

	Window  timeline.Window
	YDomain [2]float64
	Opts    timeline.RenderOptions
	BuiltAt time.Time
}

// frameInput is an immutable snapshot of everything a render pass needs.
// The event loop publishes a fresh pointer before each request; the
// builder loads whichever snapshot is newest when its pass starts.
type frameInput struct {
	FocusW, FocusH         int
	SecondaryW, SecondaryH int
	StatsW                 int
	ShowSecondary          bool

	Win      timeline.Window
	Overview timeline.Window
	Unit     string

	AllEntries  []model.Entry
	Visible     []model.Entry
	Overlays    []model.Series
	Outliers    []analytics.Outlier
	Plateaus    []analytics.Plateau
	Fit         *analytics.Fit
	Balance     model.Series
	Rate        model.Series
	TDEE        model.Series
	Goal        *model.Goal
	Annotations []model.Annotation

	LiveRegression  *timeline.Selection
	RegressionRange *timeline.Window

	Domain timeline.DomainOptions
}

// frameBuilder owns the chart widgets and turns input snapshots into
// frames. It runs only on the scheduler goroutine, which serializes
// passes, so the widgets need no lock.
type frameBuilder struct {
	theme Theme
	input atomic.Pointer[frameInput]
	out   chan<- tea.Msg

	focus    *focusChart
	overview *overviewStrip
	minis    [3]*miniChart

	md          *glamour.TermRenderer
	mdWidth     int
	lastStats   string
	lastSummary string
}

func newFrameBuilder(th Theme, out chan<- tea.Msg) *frameBuilder {
	return &frameBuilder{
		theme:    th,
		out:      out,
		focus:    newFocusChart(80, 20, th),
		overview: &overviewStrip{theme: th},
		minis: [3]*miniChart{
			newMiniChart(26, 8, th, model.SeriesBalance),
			newMiniChart(26, 8, th, model.SeriesRate),
			newMiniChart(26, 8, th, model.SeriesTDEE),
		},
	}
}

// SetInput publishes the snapshot the next pass will render.
func (fb *frameBuilder) SetInput(in *frameInput) {
	fb.input.Store(in)
}

// Render builds a frame from the latest snapshot and hands it to the
// event loop. It is the scheduler's render function.
func (fb *frameBuilder) Render(opts timeline.RenderOptions) {
	defer metrics.Timer(metrics.UIRender)()
	in := fb.input.Load()
	if in == nil {
		return
	}
	frame := fb.build(in, opts)
	// Drop rather than block: the loop drains continuously while alive,
	// so a full channel means shutdown is underway.
	select {
	case fb.out <- FrameMsg{Frame: frame}:
	default:
	}
}

func (fb *frameBuilder) build(in *frameInput, opts timeline.RenderOptions) Frame {
	dopts := in.Domain
	dopts.Height = in.FocusH
	yDom := timeline.ComputeYDomain(in.Visible, in.Overlays, dopts)

	fb.focus.configure(in.FocusW, in.FocusH, in.Overview, in.Win, yDom, in.Unit)
	focus := fb.focus.draw(in)

	graphW := fb.focus.GraphWidth()
	graphX := 0
	if fb.focus.YStep() > 0 {
		graphX = fb.focus.Origin().X + 1
	}

	overview := fb.overview.render(in, graphW)

	secondary := ""
	if in.ShowSecondary {
		secondary = fb.renderSecondary(in)
	}

	// Interactive passes reuse the previous stats render; the numbers
	// only change on commit, reload, or toggle.
	stats, summary := fb.lastStats, fb.lastSummary
	if !opts.Interactive || stats == "" {
		summary = buildStatsMarkdown(in)
		stats = fb.renderMarkdown(summary, in.StatsW)
		fb.lastStats, fb.lastSummary = stats, summary
	}

	return Frame{
		Focus:       focus,
		Overview:    overview,
		Secondary:   secondary,
		Stats:       stats,
		Summary:     summary,
		FocusGraphX: graphX,
		FocusGraphW: graphW,
		Window:      in.Win,
		YDomain:     yDom,
		Opts:        opts,
		BuiltAt:     time.Now(),
	}
}

func (fb *frameBuilder) renderSecondary(in *frameInput) string {
	each := (in.SecondaryW - 2) / 3
	h := in.SecondaryH - 1
	if each < 10 || h < 4 {
		return ""
	}

	series := [3]*model.Series{&in.Balance, &in.Rate, &in.TDEE}
	fallbacks := [3][2]float64{{-500, 500}, {-1, 1}, {1500, 3000}}

	cols := make([]string, 0, 3)
	for i, mini := range fb.minis {
		windowed := series[i].Between(in.Win.Start, in.Win.End)
		windowed.Visible = true

		dopts := in.Domain
		dopts.Height = h
		dopts.Fallback = fallbacks[i]
		yDom := timeline.ComputeYDomain(nil, []model.Series{windowed}, dopts)

		mini.configure(each, h, in.Overview, in.Win, yDom, in.Unit)
		title := fb.theme.ChartTitle.Render(truncateCells(miniTitle(mini.kind, in.Unit), each, "…"))
		cols = append(cols, lipgloss.JoinVertical(lipgloss.Left, title, mini.draw(&windowed)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols[0], " ", cols[1], " ", cols[2])
}

func (fb *frameBuilder) renderMarkdown(src string, width int) string {
	if width < 20 {
		width = 20
	}
	if fb.md == nil || width != fb.mdWidth {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err != nil {
			return src
		}
		fb.md = r
		fb.mdWidth = width
	}
	out, err := fb.md.Render(src)
	if err != nil {
		return src
	}
	return out
}

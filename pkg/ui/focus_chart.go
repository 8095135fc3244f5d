package ui

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/canvas/graph"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// focusChart renders the main weight chart: raw points, smoothed line,
// confidence band, regression, trend and goal lines, plus outlier markers
// and the regression range markers. The X axis is day offsets from the
// overview start so floats stay small; labels convert back to dates.
type focusChart struct {
	linechart.Model

	theme    Theme
	epoch    time.Time
	unit     string
	spanDays float64
	lastW    int
	lastH    int
}

func newFocusChart(w, h int, th Theme) *focusChart {
	c := &focusChart{theme: th, lastW: w, lastH: h, unit: "kg"}
	c.Model = linechart.New(w, h, 0, 1, 0, 1,
		linechart.WithXYSteps(4, 5),
		linechart.WithXLabelFormatter(c.xLabel),
		linechart.WithYLabelFormatter(c.yLabel),
	)
	c.Model.AxisStyle = th.Axis
	c.Model.LabelStyle = th.Label
	return c
}

// dayX converts a time to the chart's X coordinate.
func (c *focusChart) dayX(t time.Time) float64 {
	return t.Sub(c.epoch).Hours() / 24
}

func (c *focusChart) xLabel(_ int, v float64) string {
	if c.epoch.IsZero() {
		return ""
	}
	d := c.epoch.AddDate(0, 0, int(math.Round(v)))
	if c.spanDays > 365 {
		return d.Format("Jan 2006")
	}
	return d.Format("Jan 02")
}

// yLabel keeps a fixed width so the axis gutter stays stable across
// passes; a shifting gutter would re-trigger geometry resizes.
func (c *focusChart) yLabel(_ int, v float64) string {
	return fmt.Sprintf("%6.1f", weightValue(v, c.unit))
}

// configure sizes the chart and installs the data and view ranges for the
// coming draw. Y view equals the computed domain; X view is the focus
// window expressed in day offsets.
func (c *focusChart) configure(w, h int, overview, win timeline.Window, yDom [2]float64, unit string) {
	if w != c.lastW || h != c.lastH {
		c.Resize(w, h)
		c.lastW, c.lastH = w, h
	}
	c.epoch = overview.Start
	c.unit = unit
	c.spanDays = win.Duration().Hours() / 24

	ovDays := overview.Duration().Hours() / 24
	if ovDays < 1 {
		ovDays = 1
	}
	c.SetXRange(0, ovDays)
	c.SetViewXRange(c.dayX(win.Start), c.dayX(win.End))
	c.SetYRange(yDom[0], yDom[1])
	c.SetViewYRange(yDom[0], yDom[1])
}

func (c *focusChart) draw(in *frameInput) string {
	c.Clear()
	c.DrawXYAxisAndLabel()

	// Bands go under the lines they belong to.
	c.drawKind(in, model.SeriesRegressionBand)
	c.drawKind(in, model.SeriesBand)
	c.drawKind(in, model.SeriesRaw)
	c.drawKind(in, model.SeriesSmoothed)
	c.drawKind(in, model.SeriesRegression)
	c.drawKind(in, model.SeriesTrend)
	c.drawKind(in, model.SeriesGoal)
	c.drawOutliers(in.Outliers)
	c.drawRegressionMarkers(in)

	return c.Model.View()
}

func (c *focusChart) drawKind(in *frameInput, kind model.SeriesKind) {
	for i := range in.Overlays {
		s := &in.Overlays[i]
		if s.Kind != kind || !s.Visible || s.Empty() {
			continue
		}
		style := c.theme.SeriesStyle(kind)
		switch {
		case s.Kind.IsBand():
			plotBraille(&c.Model, c.bandEdge(s, false), style, true)
			plotBraille(&c.Model, c.bandEdge(s, true), style, true)
		case kind == model.SeriesRaw:
			plotBraille(&c.Model, c.seriesPoints(s), style, false)
		default:
			plotBraille(&c.Model, c.seriesPoints(s), style, true)
		}
	}
}

func (c *focusChart) seriesPoints(s *model.Series) []canvas.Float64Point {
	out := make([]canvas.Float64Point, 0, len(s.Points))
	for _, p := range s.Points {
		out = append(out, canvas.Float64Point{X: c.dayX(p.T), Y: p.V})
	}
	return out
}

func (c *focusChart) bandEdge(s *model.Series, high bool) []canvas.Float64Point {
	out := make([]canvas.Float64Point, 0, len(s.Points))
	for _, p := range s.Points {
		v := p.Low
		if high {
			v = p.High
		}
		out = append(out, canvas.Float64Point{X: c.dayX(p.T), Y: v})
	}
	return out
}

// plotBraille draws a polyline (connect) or scatter (no connect) of
// data-space points onto the graph area via a braille grid. Each call
// uses its own grid so series keep their own color.
func plotBraille(lc *linechart.Model, values []canvas.Float64Point, style lipgloss.Style, connect bool) {
	gw, gh := lc.GraphWidth(), lc.GraphHeight()
	if gw <= 0 || gh <= 0 || len(values) == 0 {
		return
	}
	vMinX, vMaxX := lc.ViewMinX(), lc.ViewMaxX()
	vMinY, vMaxY := lc.ViewMinY(), lc.ViewMaxY()
	if vMaxX <= vMinX || vMaxY <= vMinY {
		return
	}
	xScale := float64(gw) / (vMaxX - vMinX)
	yScale := float64(gh) / (vMaxY - vMinY)

	bg := graph.NewBrailleGrid(gw, gh, 0, float64(gw), 0, float64(gh))
	var prev canvas.Float64Point
	havePrev := false
	for _, v := range values {
		p := canvas.Float64Point{X: (v.X - vMinX) * xScale, Y: (v.Y - vMinY) * yScale}
		if connect {
			if havePrev {
				a, b, ok := clipSegment(prev, p, float64(gw), float64(gh))
				if ok {
					for _, pt := range graph.GetLinePoints(bg.GridPoint(a), bg.GridPoint(b)) {
						bg.Set(pt)
					}
				}
			}
		} else if p.X >= 0 && p.X <= float64(gw) && p.Y >= 0 && p.Y <= float64(gh) {
			bg.Set(bg.GridPoint(p))
		}
		prev = p
		havePrev = true
	}
	blitBraille(lc, bg, style)
}

func blitBraille(lc *linechart.Model, bg *graph.BrailleGrid, style lipgloss.Style) {
	startX := 0
	if lc.YStep() > 0 {
		startX = lc.Origin().X + 1
	}
	graph.DrawBraillePatterns(&lc.Canvas, canvas.Point{X: startX, Y: 0}, bg.BraillePatterns(), style)
}

// drawOutliers marks flagged entries with a small braille plus shape.
func (c *focusChart) drawOutliers(outs []analytics.Outlier) {
	gw, gh := c.GraphWidth(), c.GraphHeight()
	if gw <= 0 || gh <= 0 || len(outs) == 0 {
		return
	}
	vMinX, vMaxX := c.ViewMinX(), c.ViewMaxX()
	vMinY, vMaxY := c.ViewMinY(), c.ViewMaxY()
	if vMaxX <= vMinX || vMaxY <= vMinY {
		return
	}
	xScale := float64(gw) / (vMaxX - vMinX)
	yScale := float64(gh) / (vMaxY - vMinY)
	maxPX, maxPY := gw*2, gh*4

	bg := graph.NewBrailleGrid(gw, gh, 0, float64(gw), 0, float64(gh))
	for _, o := range outs {
		p := canvas.Float64Point{
			X: (c.dayX(o.Entry.Date) - vMinX) * xScale,
			Y: (o.Entry.WeightKg - vMinY) * yScale,
		}
		if p.X < 0 || p.X > float64(gw) || p.Y < 0 || p.Y > float64(gh) {
			continue
		}
		gp := bg.GridPoint(p)
		for _, d := range [5]canvas.Point{
			{X: gp.X, Y: gp.Y},
			{X: gp.X - 1, Y: gp.Y},
			{X: gp.X + 1, Y: gp.Y},
			{X: gp.X, Y: gp.Y - 1},
			{X: gp.X, Y: gp.Y + 1},
		} {
			if d.X >= 0 && d.X < maxPX && d.Y >= 0 && d.Y < maxPY {
				bg.Set(d)
			}
		}
	}
	blitBraille(&c.Model, bg, c.theme.OutlierMark)
}

// drawRegressionMarkers draws vertical lines at the edges of the live
// regression drag, or the committed regression range when no drag is in
// flight.
func (c *focusChart) drawRegressionMarkers(in *frameInput) {
	style := c.theme.SeriesStyle(model.SeriesRegression)
	vMinY, vMaxY := c.ViewMinY(), c.ViewMaxY()

	if in.LiveRegression != nil {
		gw := c.GraphWidth()
		if gw <= 0 {
			return
		}
		vMinX, vMaxX := c.ViewMinX(), c.ViewMaxX()
		pxToDay := func(px float64) float64 {
			return vMinX + px/float64(gw)*(vMaxX-vMinX)
		}
		for _, px := range [2]float64{in.LiveRegression.Start, in.LiveRegression.End} {
			d := pxToDay(px)
			plotBraille(&c.Model, []canvas.Float64Point{{X: d, Y: vMinY}, {X: d, Y: vMaxY}}, style, true)
		}
		return
	}
	if in.RegressionRange != nil {
		for _, t := range [2]time.Time{in.RegressionRange.Start, in.RegressionRange.End} {
			d := c.dayX(t)
			plotBraille(&c.Model, []canvas.Float64Point{{X: d, Y: vMinY}, {X: d, Y: vMaxY}}, style, true)
		}
	}
}

// clipSegment clips segment a-b to the box [0,w]x[0,h] (Liang-Barsky).
// Reports false when the segment lies entirely outside.
func clipSegment(a, b canvas.Float64Point, w, h float64) (canvas.Float64Point, canvas.Float64Point, bool) {
	t0, t1 := 0.0, 1.0
	dx, dy := b.X-a.X, b.Y-a.Y
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return false
			}
			if r > t0 {
				t0 = r
			}
		} else {
			if r < t0 {
				return false
			}
			if r < t1 {
				t1 = r
			}
		}
		return true
	}
	if !clip(-dx, a.X) || !clip(dx, w-a.X) || !clip(-dy, a.Y) || !clip(dy, h-a.Y) {
		return a, b, false
	}
	p1 := canvas.Float64Point{X: a.X + t0*dx, Y: a.Y + t0*dy}
	p2 := canvas.Float64Point{X: a.X + t1*dx, Y: a.Y + t1*dy}
	return p1, p2, true
}

// hoverPoint is the readout for the entry nearest the mouse cursor.
type hoverPoint struct {
	Entry       model.Entry
	Smoothed    float64
	HasSmoothed bool
}

// hoverAt resolves a graph-relative column into the nearest entry and the
// smoothed value at its date. Entries must be sorted by date.
func hoverAt(entries []model.Entry, smoothed *model.Series, win timeline.Window, graphW, graphX int) *hoverPoint {
	if len(entries) == 0 || graphW <= 0 || win.IsZero() {
		return nil
	}
	scale := timeline.NewTimeScale(win, float64(graphW))
	if !scale.Valid() {
		return nil
	}
	t := scale.TimeAt(float64(graphX))
	e, ok := nearestEntry(entries, t)
	if !ok {
		return nil
	}
	hp := &hoverPoint{Entry: e}
	if smoothed != nil {
		if v, ok := seriesValueAt(smoothed, e.Date); ok {
			hp.Smoothed = v
			hp.HasSmoothed = true
		}
	}
	return hp
}

func nearestEntry(entries []model.Entry, t time.Time) (model.Entry, bool) {
	if len(entries) == 0 {
		return model.Entry{}, false
	}
	i := sort.Search(len(entries), func(i int) bool { return !entries[i].Date.Before(t) })
	if i == 0 {
		return entries[0], true
	}
	if i >= len(entries) {
		return entries[len(entries)-1], true
	}
	before, after := entries[i-1], entries[i]
	if t.Sub(before.Date) <= after.Date.Sub(t) {
		return before, true
	}
	return after, true
}

// seriesValueAt linearly interpolates a series at t. Reports false when t
// falls outside the series' span.
func seriesValueAt(s *model.Series, t time.Time) (float64, bool) {
	pts := s.Points
	if len(pts) == 0 {
		return 0, false
	}
	if t.Before(pts[0].T) || t.After(pts[len(pts)-1].T) {
		return 0, false
	}
	i := sort.Search(len(pts), func(i int) bool { return !pts[i].T.Before(t) })
	if i >= len(pts) {
		return pts[len(pts)-1].V, true
	}
	if pts[i].T.Equal(t) || i == 0 {
		return pts[i].V, true
	}
	prev, next := pts[i-1], pts[i]
	span := next.T.Sub(prev.T).Seconds()
	if span <= 0 {
		return prev.V, true
	}
	f := t.Sub(prev.T).Seconds() / span
	return prev.V + f*(next.V-prev.V), true
}

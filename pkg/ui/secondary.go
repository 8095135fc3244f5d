package ui

import (
	"fmt"
	"math"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/canvas/graph"
	"github.com/NimbleMarkets/ntcharts/linechart"

	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// miniChart is one of the small derived-series charts under the focus
// chart (energy balance, rate of change, TDEE estimate). All three share
// the focus window's X range so they scroll and zoom in lockstep.
type miniChart struct {
	linechart.Model

	theme Theme
	kind  model.SeriesKind
	epoch time.Time
	unit  string
	lastW int
	lastH int
}

func newMiniChart(w, h int, th Theme, kind model.SeriesKind) *miniChart {
	m := &miniChart{theme: th, kind: kind, lastW: w, lastH: h, unit: "kg"}
	m.Model = linechart.New(w, h, 0, 1, 0, 1,
		linechart.WithXYSteps(2, 2),
		linechart.WithXLabelFormatter(m.xLabel),
		linechart.WithYLabelFormatter(m.yLabel),
	)
	m.Model.AxisStyle = th.Axis
	m.Model.LabelStyle = th.Label
	return m
}

func (m *miniChart) dayX(t time.Time) float64 {
	return t.Sub(m.epoch).Hours() / 24
}

func (m *miniChart) xLabel(_ int, v float64) string {
	if m.epoch.IsZero() {
		return ""
	}
	return m.epoch.AddDate(0, 0, int(math.Round(v))).Format("Jan 02")
}

func (m *miniChart) yLabel(_ int, v float64) string {
	switch m.kind {
	case model.SeriesBalance:
		return fmt.Sprintf("%+5.0f", v)
	case model.SeriesRate:
		return fmt.Sprintf("%+5.2f", weightValue(v, m.unit))
	default:
		return fmt.Sprintf("%5.0f", v)
	}
}

func (m *miniChart) configure(w, h int, overview, win timeline.Window, yDom [2]float64, unit string) {
	if w != m.lastW || h != m.lastH {
		m.Resize(w, h)
		m.lastW, m.lastH = w, h
	}
	m.epoch = overview.Start
	m.unit = unit

	ovDays := overview.Duration().Hours() / 24
	if ovDays < 1 {
		ovDays = 1
	}
	m.SetXRange(0, ovDays)
	m.SetViewXRange(m.dayX(win.Start), m.dayX(win.End))
	m.SetYRange(yDom[0], yDom[1])
	m.SetViewYRange(yDom[0], yDom[1])
}

func (m *miniChart) draw(s *model.Series) string {
	m.Clear()
	m.DrawXYAxisAndLabel()
	if m.ViewMinY() < 0 && m.ViewMaxY() > 0 {
		m.drawZeroBaseline()
	}
	if s != nil && !s.Empty() {
		pts := make([]canvas.Float64Point, 0, len(s.Points))
		for _, p := range s.Points {
			pts = append(pts, canvas.Float64Point{X: m.dayX(p.T), Y: p.V})
		}
		plotBraille(&m.Model, pts, m.theme.SeriesStyle(m.kind), true)
	}
	return m.Model.View()
}

// drawZeroBaseline dots the y=0 line so sign flips read at a glance.
func (m *miniChart) drawZeroBaseline() {
	gw, gh := m.GraphWidth(), m.GraphHeight()
	if gw <= 0 || gh <= 0 {
		return
	}
	vMinY, vMaxY := m.ViewMinY(), m.ViewMaxY()
	yPx := (0 - vMinY) / (vMaxY - vMinY) * float64(gh)

	bg := graph.NewBrailleGrid(gw, gh, 0, float64(gw), 0, float64(gh))
	gp := bg.GridPoint(canvas.Float64Point{X: 0, Y: yPx})
	maxPX := gw * 2
	for x := 0; x < maxPX; x += 3 {
		bg.Set(canvas.Point{X: x, Y: gp.Y})
	}
	blitBraille(&m.Model, bg, m.theme.MutedText)
}

// miniTitle labels a secondary chart, unit aware for the rate chart.
func miniTitle(kind model.SeriesKind, unit string) string {
	switch kind {
	case model.SeriesBalance:
		return "Balance kcal/d"
	case model.SeriesRate:
		return "Rate " + rateSuffix(unit)
	default:
		return "TDEE kcal/d"
	}
}

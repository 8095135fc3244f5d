// Package export renders static snapshots of the dashboard: the focus
// chart with its overlays, the overview strip with the focus brush, and
// a stats header. SVG and PNG share one layout so the two backends stay
// visually identical.
package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/metrics"
	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

const dayFormat = "2006-01-02"

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path     string            // Output path; format inferred from extension when Format empty
	Format   string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title    string            // Optional title rendered in the summary block
	Dataset  *model.Dataset    // Entries plus goal, annotations, and trend lines
	Focus    timeline.Window   // Focus window; the zero value means the full extent
	Analysis *analytics.Result // Derived series; computed from Dataset when nil
	Source   string            // Data source label rendered for provenance
	Width    int               // Canvas width in px; <= 0 uses the default
	Height   int               // Canvas height in px; <= 0 uses the default
}

// SaveSnapshot renders a static snapshot (SVG or PNG) of the dashboard's
// current frame: stats header, focus chart, and overview strip. It is the
// backend of the headless --export path and of in-app export.
func SaveSnapshot(opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotExport)()

	if opts.Dataset.Empty() {
		return fmt.Errorf("no entries to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)

	switch format {
	case "svg":
		return renderSVG(opts.Path, layout)
	case "png":
		return renderPNG(opts.Path, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// --- layout computation ----------------------------------------------------

type rect struct {
	X, Y, W, H float64
}

type linePoint struct {
	X, Y float64
}

type plotLine struct {
	Name   string
	Kind   model.SeriesKind
	Pts    []linePoint
	Color  color.NRGBA
	Width  float64
	Dashed bool
}

type plotBand struct {
	Kind model.SeriesKind
	Pts  []linePoint // upper edge then reversed lower edge, closed
	Fill color.NRGBA
}

type annotationMark struct {
	X     float64
	Label string
}

type axisTick struct {
	Pos   float64 // canvas px
	Label string
}

type chartPanel struct {
	Area     rect
	Window   timeline.Window
	YDomain  [2]float64
	Bands    []plotBand
	Lines    []plotLine
	Dots     []linePoint
	Outliers []linePoint
	Notes    []annotationMark
	XTicks   []axisTick
	YTicks   []axisTick
}

type overviewPanel struct {
	Area    rect
	Line    plotLine
	Brush   rect
	HasGoal bool
	GoalX   float64
}

type summaryInfo struct {
	Title string
	Lines []string
}

type legendItem struct {
	Label string
	Color color.NRGBA
	X     float64
}

type layoutResult struct {
	Width   int
	Height  int
	Header  float64
	LegendY float64

	Focus    chartPanel
	Overview overviewPanel
	Summary  summaryInfo
	Legend   []legendItem
}

func buildLayout(opts SnapshotOptions) layoutResult {
	const (
		defaultWidth   = 1000
		defaultHeight  = 640
		minWidth       = 640
		minHeight      = 480
		padding        = 24.0
		headerHeight   = 120.0
		yAxisWidth     = 56.0
		xAxisHeight    = 22.0
		overviewHeight = 64.0
		panelGap       = 14.0
	)

	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	if width < minWidth {
		width = minWidth
	}
	height := opts.Height
	if height <= 0 {
		height = defaultHeight
	}
	if height < minHeight {
		height = minHeight
	}

	ds := opts.Dataset
	res := opts.Analysis
	if res == nil {
		r := analytics.Compute(ds, opts.Focus, analytics.DefaultOptions())
		res = &r
	}

	first, last, _ := ds.Extent()
	oFirst, oLast, _ := ds.OverviewExtent()
	overviewWin := timeline.NewWindow(oFirst, oLast)

	// The default frame is the overview extent, not just the measured
	// range: goal lines and annotations past the last weigh-in stay in
	// the picture.
	focus := opts.Focus
	if focus.IsZero() {
		focus = overviewWin
	}
	if focus.Duration() <= 0 {
		// Single-day window: widen by a day each side so scales stay valid.
		focus = timeline.NewWindow(focus.Start.AddDate(0, 0, -1), focus.Start.AddDate(0, 0, 1))
	}
	if overviewWin.Duration() <= 0 {
		overviewWin = focus
	}

	legendY := headerHeight + 10
	focusArea := rect{
		X: padding + yAxisWidth,
		Y: headerHeight + 28,
		W: float64(width) - 2*padding - yAxisWidth,
	}
	overviewArea := rect{
		X: focusArea.X,
		Y: float64(height) - padding - overviewHeight,
		W: focusArea.W,
		H: overviewHeight,
	}
	focusArea.H = overviewArea.Y - panelGap - xAxisHeight - focusArea.Y

	visible := ds.Slice(focus.Start, focus.End)
	yDomain := timeline.ComputeYDomain(visible, res.Overlays, timeline.DomainOptions{
		PaddingPct:    0.05,
		PaddingMinAbs: 0.4,
		Height:        int(focusArea.H / 12),
	})

	scale := timeline.NewTimeScale(focus, focusArea.W)
	xPix := func(t time.Time) float64 { return focusArea.X + scale.Pos(t) }
	yPix := func(v float64) float64 {
		frac := (v - yDomain[0]) / (yDomain[1] - yDomain[0])
		return focusArea.Y + focusArea.H - frac*focusArea.H
	}

	panel := chartPanel{Area: focusArea, Window: focus, YDomain: yDomain}

	// Raw weigh-ins as a thin line; dots only when they have room.
	raw := plotLine{Kind: model.SeriesRaw, Color: colorRaw, Width: 1}
	for _, e := range visible {
		raw.Pts = append(raw.Pts, linePoint{xPix(e.Date), yPix(e.WeightKg)})
	}
	if len(raw.Pts) >= 2 {
		panel.Lines = append(panel.Lines, raw)
	}

	outlierDays := make(map[string]bool, len(res.Outliers))
	for _, o := range res.Outliers {
		outlierDays[o.Entry.Day().Format(dayFormat)] = true
	}
	drawDots := len(visible) > 0 && focusArea.W/float64(len(visible)) >= 3
	for _, e := range visible {
		pt := linePoint{xPix(e.Date), yPix(e.WeightKg)}
		if outlierDays[e.Day().Format(dayFormat)] {
			panel.Outliers = append(panel.Outliers, pt)
			continue
		}
		if drawDots {
			panel.Dots = append(panel.Dots, pt)
		}
	}

	for _, s := range res.Overlays {
		if !s.Visible || s.Empty() {
			continue
		}
		pts := clipSeries(s.Points, focus)
		if len(pts) < 2 {
			continue
		}
		if s.Kind.IsBand() {
			fill := colorBandFill
			if s.Kind == model.SeriesRegressionBand {
				fill = colorRegressBand
			}
			panel.Bands = append(panel.Bands, plotBand{Kind: s.Kind, Pts: bandPolygon(pts, xPix, yPix), Fill: fill})
			continue
		}
		st := styleFor(s.Kind)
		line := plotLine{Name: s.Name, Kind: s.Kind, Color: st.color, Width: st.width, Dashed: st.dashed}
		for _, p := range pts {
			line.Pts = append(line.Pts, linePoint{xPix(p.T), yPix(p.V)})
		}
		panel.Lines = append(panel.Lines, line)
	}

	for _, a := range ds.Annotations {
		if a.Date.IsZero() || !focus.Contains(a.Date) {
			continue
		}
		panel.Notes = append(panel.Notes, annotationMark{X: xPix(a.Date), Label: truncate(a.Text, 14)})
	}

	panel.YTicks = buildYTicks(yDomain, focusArea, 5)
	panel.XTicks = buildXTicks(focus, focusArea, scale)

	return layoutResult{
		Width:    width,
		Height:   height,
		Header:   headerHeight,
		LegendY:  legendY,
		Focus:    panel,
		Overview: buildOverview(ds, overviewWin, focus, overviewArea),
		Summary:  buildSummary(opts, ds, res, first, last),
		Legend:   buildLegend(panel, focusArea.X),
	}
}

func buildOverview(ds *model.Dataset, win, focus timeline.Window, area rect) overviewPanel {
	p := overviewPanel{Area: area}

	scale := timeline.NewTimeScale(win, area.W)
	dom := timeline.ComputeYDomain(ds.Entries, nil, timeline.DomainOptions{
		PaddingPct:    0.08,
		PaddingMinAbs: 0.3,
		Height:        int(area.H / 12),
	})
	yPix := func(v float64) float64 {
		frac := (v - dom[0]) / (dom[1] - dom[0])
		return area.Y + area.H - frac*area.H
	}

	line := plotLine{Kind: model.SeriesRaw, Color: colorOverview, Width: 1.3}
	for _, e := range ds.Entries {
		line.Pts = append(line.Pts, linePoint{area.X + scale.Pos(e.Date), yPix(e.WeightKg)})
	}
	p.Line = line

	x0 := area.X + clamp(scale.Pos(focus.Start), 0, area.W)
	x1 := area.X + clamp(scale.Pos(focus.End), 0, area.W)
	if x1 > x0 {
		p.Brush = rect{X: x0, Y: area.Y, W: x1 - x0, H: area.H}
	}

	if ds.Goal != nil && !ds.Goal.TargetDate.IsZero() && win.Contains(ds.Goal.TargetDate) {
		p.HasGoal = true
		p.GoalX = area.X + scale.Pos(ds.Goal.TargetDate)
	}
	return p
}

func buildSummary(opts SnapshotOptions, ds *model.Dataset, res *analytics.Result, first, last time.Time) summaryInfo {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = "Weight Snapshot"
	}

	span := fmt.Sprintf("entries: %d  span: %s .. %s", len(ds.Entries), first.Format(dayFormat), last.Format(dayFormat))
	if opts.Source != "" {
		span += "  source: " + truncate(opts.Source, 48)
	}
	lines := []string{span}

	if latest, ok := ds.Latest(); ok {
		cur := fmt.Sprintf("latest: %.1f kg (%s)", latest.WeightKg, latest.Date.Format(dayFormat))
		if p, ok := lastPoint(res.Overlays, model.SeriesSmoothed); ok {
			cur += fmt.Sprintf("  smoothed: %.1f kg", p.V)
		}
		lines = append(lines, cur)
	}

	trend := "trend: n/a"
	if res.Fit != nil {
		trend = fmt.Sprintf("trend: %+.2f kg/week (R^2 %.2f)  balance: %+.0f kcal/day",
			res.Fit.KgPerWeek(), res.Fit.R2, res.Fit.KcalPerDay())
	}
	if ds.Goal != nil && !ds.Goal.TargetDate.IsZero() {
		if latest, ok := ds.Latest(); ok {
			trend += fmt.Sprintf("  goal: %.1f kg by %s (%+.1f kg to go)",
				ds.Goal.TargetWeightKg, ds.Goal.TargetDate.Format(dayFormat),
				latest.WeightKg-ds.Goal.TargetWeightKg)
		}
	}
	lines = append(lines, trend)

	return summaryInfo{Title: title, Lines: lines}
}

func buildLegend(panel chartPanel, startX float64) []legendItem {
	var items []legendItem
	add := func(label string, c color.NRGBA) {
		for _, it := range items {
			if it.Label == label {
				return
			}
		}
		items = append(items, legendItem{Label: label, Color: c})
	}

	if len(panel.Dots) > 0 || hasKind(panel.Lines, model.SeriesRaw) {
		add("weigh-in", colorRaw)
	}
	for _, b := range panel.Bands {
		if b.Kind == model.SeriesRegressionBand {
			continue // covered by the regression item
		}
		add("confidence", colorBandFill)
	}
	for _, ln := range panel.Lines {
		switch ln.Kind {
		case model.SeriesSmoothed:
			add("smoothed", colorSmoothed)
		case model.SeriesRegression:
			add("regression", colorRegress)
		case model.SeriesTrend:
			add("trend", colorTrend)
		case model.SeriesGoal:
			add("goal", colorGoal)
		}
	}
	if len(panel.Outliers) > 0 {
		add("outlier", colorOutlier)
	}

	x := startX
	for i := range items {
		items[i].X = x
		x += 14 + 6 + 7*float64(len(items[i].Label)) + 20
	}
	return items
}

func hasKind(lines []plotLine, kind model.SeriesKind) bool {
	for _, ln := range lines {
		if ln.Kind == kind {
			return true
		}
	}
	return false
}

func lastPoint(overlays []model.Series, kind model.SeriesKind) (model.Point, bool) {
	for _, s := range overlays {
		if s.Kind == kind && !s.Empty() {
			return s.Points[len(s.Points)-1], true
		}
	}
	return model.Point{}, false
}

type lineStyle struct {
	color  color.NRGBA
	width  float64
	dashed bool
}

func styleFor(kind model.SeriesKind) lineStyle {
	switch kind {
	case model.SeriesSmoothed:
		return lineStyle{colorSmoothed, 2, false}
	case model.SeriesRegression:
		return lineStyle{colorRegress, 2, false}
	case model.SeriesTrend:
		return lineStyle{colorTrend, 1.6, true}
	case model.SeriesGoal:
		return lineStyle{colorGoal, 1.8, true}
	default:
		return lineStyle{colorRaw, 1.5, false}
	}
}

// clipSeries restricts pts to win, interpolating boundary crossings so a
// line that extends past a window edge still reaches it. Points must be
// ordered by time.
func clipSeries(pts []model.Point, win timeline.Window) []model.Point {
	var out []model.Point
	push := func(p model.Point) {
		if n := len(out); n > 0 && out[n-1].T.Equal(p.T) {
			return
		}
		out = append(out, p)
	}
	for i, p := range pts {
		if !p.T.Before(win.Start) && !p.T.After(win.End) {
			if len(out) == 0 && i > 0 && pts[i-1].T.Before(win.Start) {
				push(interpPoint(pts[i-1], p, win.Start))
			}
			push(p)
			continue
		}
		if p.T.After(win.End) {
			if i > 0 && pts[i-1].T.Before(win.End) {
				push(interpPoint(pts[i-1], p, win.End))
			}
			break
		}
		// p lies before the window; a segment can still span the whole of it.
		if i+1 < len(pts) && pts[i+1].T.After(win.End) {
			push(interpPoint(p, pts[i+1], win.Start))
		}
	}
	return out
}

func interpPoint(a, b model.Point, at time.Time) model.Point {
	span := b.T.Sub(a.T)
	if span <= 0 {
		return a
	}
	f := float64(at.Sub(a.T)) / float64(span)
	return model.Point{
		T:    at,
		V:    a.V + f*(b.V-a.V),
		Low:  a.Low + f*(b.Low-a.Low),
		High: a.High + f*(b.High-a.High),
	}
}

func bandPolygon(pts []model.Point, xPix func(time.Time) float64, yPix func(float64) float64) []linePoint {
	if len(pts) < 2 {
		return nil
	}
	poly := make([]linePoint, 0, len(pts)*2)
	for _, p := range pts {
		poly = append(poly, linePoint{xPix(p.T), yPix(p.High)})
	}
	for i := len(pts) - 1; i >= 0; i-- {
		poly = append(poly, linePoint{xPix(pts[i].T), yPix(pts[i].Low)})
	}
	return poly
}

func buildYTicks(domain [2]float64, area rect, target int) []axisTick {
	step := tickStep(domain[1]-domain[0], target)
	if step <= 0 {
		return nil
	}
	var ticks []axisTick
	for v := math.Ceil(domain[0]/step) * step; v <= domain[1]+step*1e-6; v += step {
		frac := (v - domain[0]) / (domain[1] - domain[0])
		y := area.Y + area.H - frac*area.H
		label := fmt.Sprintf("%.1f", v)
		if step >= 1 {
			label = fmt.Sprintf("%.0f", v)
		}
		ticks = append(ticks, axisTick{Pos: y, Label: label})
	}
	return ticks
}

// xTickLadder holds the candidate label spacings in days.
var xTickLadder = []int{1, 2, 7, 14, 30, 91, 182, 365}

func buildXTicks(win timeline.Window, area rect, scale timeline.TimeScale) []axisTick {
	days := win.Days()
	stepDays := xTickLadder[len(xTickLadder)-1]
	for _, s := range xTickLadder {
		if days/float64(s) <= 7 {
			stepDays = s
			break
		}
	}
	format := "Jan 02"
	if stepDays >= 30 {
		format = "Jan 2006"
	}
	var ticks []axisTick
	for t := firstDayOnOrAfter(win.Start); !t.After(win.End); t = t.AddDate(0, 0, stepDays) {
		ticks = append(ticks, axisTick{Pos: area.X + scale.Pos(t), Label: t.Format(format)})
	}
	return ticks
}

func firstDayOnOrAfter(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	if day.Before(t) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}

// tickStep returns a 1/2/5*10^n step dividing span into about count
// intervals.
func tickStep(span float64, count int) float64 {
	if span <= 0 || count <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return 0
	}
	raw := span / float64(count)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm < 1.5:
		return mag
	case norm < 3:
		return 2 * mag
	case norm < 7:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// --- rendering -------------------------------------------------------------

var (
	colorBackdrop    = color.NRGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG    = color.NRGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorPanelBG     = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	colorStroke      = color.NRGBA{0x22, 0x22, 0x22, 0xff}
	colorGrid        = color.NRGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorText        = color.NRGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle      = color.NRGBA{0x66, 0x66, 0x66, 0xff}
	colorRaw         = color.NRGBA{0x64, 0x74, 0x8b, 0xff}
	colorSmoothed    = color.NRGBA{0x1d, 0x4e, 0xd8, 0xff}
	colorBandFill    = color.NRGBA{0x3b, 0x82, 0xf6, 0x2e}
	colorRegress     = color.NRGBA{0xea, 0x58, 0x0c, 0xff}
	colorRegressBand = color.NRGBA{0xf9, 0x73, 0x16, 0x24}
	colorTrend       = color.NRGBA{0x7c, 0x3a, 0xed, 0xff}
	colorGoal        = color.NRGBA{0x15, 0x80, 0x3d, 0xff}
	colorOutlier     = color.NRGBA{0xdc, 0x26, 0x26, 0xff}
	colorNote        = color.NRGBA{0xb4, 0x53, 0x09, 0xff}
	colorBrush       = color.NRGBA{0x3b, 0x82, 0xf6, 0x2b}
	colorOverview    = color.NRGBA{0x6b, 0x72, 0x80, 0xff}
)

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	// header
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	drawSummaryBlock(dc, layout)
	drawLegend(dc, layout)
	drawFocusPanel(dc, layout.Focus)
	drawOverviewPanel(dc, layout.Overview)

	return dc.SavePNG(path)
}

func renderSVG(path string, layout layoutResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderSVGToWriter(file, layout)
}

func renderSVGToWriter(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))

	drawSummaryBlockSVG(canvas, layout)
	drawLegendSVG(canvas, layout)
	drawFocusPanelSVG(canvas, layout.Focus)
	drawOverviewPanelSVG(canvas, layout.Overview)

	canvas.End()
	return nil
}

func drawFocusPanel(dc *gg.Context, p chartPanel) {
	a := p.Area
	dc.SetColor(colorPanelBG)
	dc.DrawRectangle(a.X, a.Y, a.W, a.H)
	dc.Fill()

	dc.SetLineWidth(1)
	for _, tk := range p.YTicks {
		dc.SetColor(colorGrid)
		dc.DrawLine(a.X, tk.Pos, a.X+a.W, tk.Pos)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(tk.Label, a.X-8, tk.Pos, 1, 0.5)
	}
	for _, tk := range p.XTicks {
		dc.SetColor(colorGrid)
		dc.DrawLine(tk.Pos, a.Y, tk.Pos, a.Y+a.H)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(tk.Label, tk.Pos, a.Y+a.H+12, 0.5, 0.5)
	}

	for _, b := range p.Bands {
		fillPolygon(dc, b.Pts, b.Fill)
	}
	for _, ln := range p.Lines {
		strokeLine(dc, ln)
	}

	dc.SetColor(colorRaw)
	for _, d := range p.Dots {
		dc.DrawCircle(d.X, d.Y, 2.2)
		dc.Fill()
	}
	dc.SetColor(colorOutlier)
	dc.SetLineWidth(1.5)
	for _, d := range p.Outliers {
		dc.DrawCircle(d.X, d.Y, 3.2)
		dc.Stroke()
	}

	for _, n := range p.Notes {
		dc.SetColor(colorNote)
		dc.SetLineWidth(1)
		dc.SetDash(3, 3)
		dc.DrawLine(n.X, a.Y, n.X, a.Y+a.H)
		dc.Stroke()
		dc.SetDash()
		if n.Label != "" {
			dc.DrawStringAnchored(n.Label, n.X+4, a.Y+10, 0, 0.5)
		}
	}

	dc.SetColor(colorStroke)
	dc.SetLineWidth(1.2)
	dc.DrawRectangle(a.X, a.Y, a.W, a.H)
	dc.Stroke()
}

func drawOverviewPanel(dc *gg.Context, p overviewPanel) {
	a := p.Area
	dc.SetColor(colorPanelBG)
	dc.DrawRectangle(a.X, a.Y, a.W, a.H)
	dc.Fill()

	strokeLine(dc, p.Line)

	if p.Brush.W > 0 {
		dc.SetColor(colorBrush)
		dc.DrawRectangle(p.Brush.X, p.Brush.Y, p.Brush.W, p.Brush.H)
		dc.Fill()
		dc.SetColor(colorSmoothed)
		dc.SetLineWidth(1)
		dc.DrawRectangle(p.Brush.X, p.Brush.Y, p.Brush.W, p.Brush.H)
		dc.Stroke()
	}

	if p.HasGoal {
		dc.SetColor(colorGoal)
		dc.SetLineWidth(1)
		dc.SetDash(3, 3)
		dc.DrawLine(p.GoalX, a.Y, p.GoalX, a.Y+a.H)
		dc.Stroke()
		dc.SetDash()
	}

	dc.SetColor(colorStroke)
	dc.SetLineWidth(1)
	dc.DrawRectangle(a.X, a.Y, a.W, a.H)
	dc.Stroke()
}

func strokeLine(dc *gg.Context, ln plotLine) {
	if len(ln.Pts) < 2 {
		return
	}
	dc.SetColor(ln.Color)
	dc.SetLineWidth(ln.Width)
	if ln.Dashed {
		dc.SetDash(5, 3)
	}
	dc.NewSubPath()
	dc.MoveTo(ln.Pts[0].X, ln.Pts[0].Y)
	for _, p := range ln.Pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.Stroke()
	if ln.Dashed {
		dc.SetDash()
	}
}

func fillPolygon(dc *gg.Context, pts []linePoint, fill color.NRGBA) {
	if len(pts) < 3 {
		return
	}
	dc.SetColor(fill)
	dc.NewSubPath()
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
	dc.Fill()
}

func drawSummaryBlock(dc *gg.Context, layout layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 44, 0, 0.5)
	dc.SetColor(colorSubtle)
	for i, line := range layout.Summary.Lines {
		dc.DrawStringAnchored(line, 32, 64+float64(i)*20, 0, 0.5)
	}
}

func drawLegend(dc *gg.Context, layout layoutResult) {
	for _, it := range layout.Legend {
		dc.SetColor(it.Color)
		dc.DrawRoundedRectangle(it.X, layout.LegendY-7, 14, 14, 3)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.DrawRoundedRectangle(it.X, layout.LegendY-7, 14, 14, 3)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(it.Label, it.X+20, layout.LegendY, 0, 0.5)
	}
}

func drawFocusPanelSVG(canvas *svg.SVG, p chartPanel) {
	a := p.Area
	canvas.Rect(int(a.X), int(a.Y), int(a.W), int(a.H), fmt.Sprintf("fill:%s", css(colorPanelBG)))

	for _, tk := range p.YTicks {
		canvas.Line(int(a.X), int(tk.Pos), int(a.X+a.W), int(tk.Pos),
			fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
		canvas.Text(int(a.X)-8, int(tk.Pos)+4, tk.Label,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:end", css(colorSubtle)))
	}
	for _, tk := range p.XTicks {
		canvas.Line(int(tk.Pos), int(a.Y), int(tk.Pos), int(a.Y+a.H),
			fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
		canvas.Text(int(tk.Pos), int(a.Y+a.H)+16, tk.Label,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(colorSubtle)))
	}

	for _, b := range p.Bands {
		xs, ys := polygonInts(b.Pts)
		canvas.Polygon(xs, ys, fmt.Sprintf("fill:%s;fill-opacity:%.2f", css(b.Fill), opacity(b.Fill)))
	}
	for _, ln := range p.Lines {
		strokeLineSVG(canvas, ln)
	}

	for _, d := range p.Dots {
		canvas.Circle(int(d.X), int(d.Y), 2, fmt.Sprintf("fill:%s", css(colorRaw)))
	}
	for _, d := range p.Outliers {
		canvas.Circle(int(d.X), int(d.Y), 3, fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorOutlier)))
	}

	for _, n := range p.Notes {
		canvas.Line(int(n.X), int(a.Y), int(n.X), int(a.Y+a.H),
			fmt.Sprintf("stroke:%s;stroke-width:1;stroke-dasharray:3,3", css(colorNote)))
		if n.Label != "" {
			canvas.Text(int(n.X)+4, int(a.Y)+14, n.Label,
				fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorNote)))
		}
	}

	canvas.Rect(int(a.X), int(a.Y), int(a.W), int(a.H),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.2", css(colorStroke)))
}

func drawOverviewPanelSVG(canvas *svg.SVG, p overviewPanel) {
	a := p.Area
	canvas.Rect(int(a.X), int(a.Y), int(a.W), int(a.H), fmt.Sprintf("fill:%s", css(colorPanelBG)))

	strokeLineSVG(canvas, p.Line)

	if p.Brush.W > 0 {
		canvas.Rect(int(p.Brush.X), int(p.Brush.Y), int(p.Brush.W), int(p.Brush.H),
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;stroke:%s;stroke-width:1", css(colorBrush), opacity(colorBrush), css(colorSmoothed)))
	}

	if p.HasGoal {
		canvas.Line(int(p.GoalX), int(a.Y), int(p.GoalX), int(a.Y+a.H),
			fmt.Sprintf("stroke:%s;stroke-width:1;stroke-dasharray:3,3", css(colorGoal)))
	}

	canvas.Rect(int(a.X), int(a.Y), int(a.W), int(a.H),
		fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", css(colorStroke)))
}

func strokeLineSVG(canvas *svg.SVG, ln plotLine) {
	if len(ln.Pts) < 2 {
		return
	}
	style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:%.1f", css(ln.Color), ln.Width)
	if ln.Dashed {
		style += ";stroke-dasharray:5,3"
	}
	xs, ys := polygonInts(ln.Pts)
	canvas.Polyline(xs, ys, style)
}

func drawSummaryBlockSVG(canvas *svg.SVG, layout layoutResult) {
	canvas.Text(32, 44, layout.Summary.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	for i, line := range layout.Summary.Lines {
		canvas.Text(32, 64+i*20, line,
			fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(colorSubtle)))
	}
}

func drawLegendSVG(canvas *svg.SVG, layout layoutResult) {
	y := int(layout.LegendY)
	for _, it := range layout.Legend {
		x := int(it.X)
		canvas.Roundrect(x, y-7, 14, 14, 3, 3,
			fmt.Sprintf("fill:%s;fill-opacity:%.2f;stroke:%s;stroke-width:1", css(it.Color), opacity(it.Color), css(colorStroke)))
		canvas.Text(x+20, y+4, it.Label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
}

func polygonInts(pts []linePoint) ([]int, []int) {
	xs := make([]int, len(pts))
	ys := make([]int, len(pts))
	for i, p := range pts {
		xs[i] = int(math.Round(p.X))
		ys[i] = int(math.Round(p.Y))
	}
	return xs, ys
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func opacity(c color.NRGBA) float64 {
	return float64(c.A) / 255
}

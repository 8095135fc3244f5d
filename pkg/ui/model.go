// Package ui is the Bubble Tea front end of the dashboard. The Model owns
// the interaction engine (controller, committer, scheduler, regression
// brush) and the render pipeline: gestures mutate the engine, the engine's
// hooks arm the committer, and every visible change is published as a
// frame input snapshot and rendered off the event loop by the scheduler.
package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gramline/internal/datasource"
	"github.com/vanderheijden86/gramline/pkg/analytics"
	"github.com/vanderheijden86/gramline/pkg/config"
	"github.com/vanderheijden86/gramline/pkg/debug"
	"github.com/vanderheijden86/gramline/pkg/export"
	"github.com/vanderheijden86/gramline/pkg/model"
	"github.com/vanderheijden86/gramline/pkg/timeline"
	"github.com/vanderheijden86/gramline/pkg/watcher"
)

const (
	headerRows = 1
	stripRows  = 3
	inputRows  = 1
	footerRows = 1
	// fullHelpRows is the footer height while the expanded help is open:
	// the tallest FullHelp column.
	fullHelpRows = 5

	// secondaryHeight is the mini-chart row: one title line plus the charts.
	secondaryHeight = 9
	// minSecondaryHeight is the terminal height below which the secondary
	// row is dropped to keep the focus chart usable.
	minSecondaryHeight = 30

	statsPaneWidth    = 34
	statsMinTermWidth = 100

	// focusAxisGutter estimates the Y label gutter before the first frame
	// reports the real graph geometry. Labels are fixed at 6 cells.
	focusAxisGutter = 8

	zoomStep = 1.25
	// panFraction is the share of the graph width a key pan moves.
	panFraction = 0.1

	eventBufferSize = 32

	watchDebounce = 200 * time.Millisecond
)

// focus tracks which component receives key input.
type focus int

const (
	focusChartArea focus = iota
	focusInputs
)

// dragKind tracks an in-flight mouse drag.
type dragKind int

const (
	dragNone dragKind = iota
	dragPan
	dragBrush
	dragRegression
)

// FrameMsg carries a finished frame from the render worker into the loop.
type FrameMsg struct {
	Frame Frame
}

// FileChangedMsg signals that the data file changed on disk.
type FileChangedMsg struct{}

// RangeCommittedMsg carries a settled analysis range out of the
// committer's timer goroutine.
type RangeCommittedMsg struct {
	Range timeline.Window
}

// RegressionChangedMsg reports a regression range change. Range is nil
// when the range was cleared back to the default.
type RegressionChangedMsg struct {
	Range *timeline.Window
}

// settledMsg fires after every settle, changed or not. Transient hover
// state is cleared here.
type settledMsg struct{}

// WatchFileCmd blocks until the watcher reports a change, then delivers
// it into the loop. Re-issued after every FileChangedMsg.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// waitEventCmd pumps one message produced by the engine's goroutines
// (render worker, committer timer) into the program. Re-issued after
// every received event.
func waitEventCmd(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// sendEvent hands a hook-origin message to the event loop without ever
// blocking a timer goroutine. A full channel means shutdown is underway
// and the message can be dropped.
func sendEvent(ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Reset     key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding
	Unit      key.Binding
	Band      key.Binding
	Goal      key.Binding
	Minis     key.Binding
	Range     key.Binding
	Copy      key.Binding
	Export    key.Binding
	ExportPNG key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r", "esc"),
			key.WithHelp("r", "reset view"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "zoom out"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "pan back"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "pan forward"),
		),
		Unit: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "kg/lb"),
		),
		Band: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "band"),
		),
		Goal: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goal line"),
		),
		Minis: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "energy charts"),
		),
		Range: key.NewBinding(
			key.WithKeys("/", "i"),
			key.WithHelp("/", "type range"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy stats"),
		),
		Export: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "export svg"),
		),
		ExportPNG: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "export png"),
		),
	}
}

// ShortHelp is the footer hint line.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ZoomIn, k.ZoomOut, k.PanLeft, k.Range, k.Unit, k.Help, k.Quit}
}

// FullHelp is the expanded overlay shown by '?'.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.Reset},
		{k.Range, k.Band, k.Goal, k.Minis, k.Unit},
		{k.Copy, k.Export, k.ExportPNG, k.Help, k.Quit},
	}
}

// layout is the row/column arithmetic shared by View composition and
// mouse hit testing. Derive it with layoutNow; never hand-compute rows.
type layout struct {
	chartW, statsW int
	focusH         int
	secondaryH     int

	focusTop     int
	stripTop     int
	secondaryTop int
	inputsTop    int
}

type Model struct {
	// Data
	dataset *model.Dataset
	source  datasource.DataSource
	watcher *watcher.Watcher

	// Engine
	ctrl      *timeline.Controller
	committer *timeline.Committer
	sched     *timeline.Scheduler
	regBrush  *timeline.RegressionBrush

	// Analytics
	analysisOpts analytics.Options
	analysis     analytics.Result

	// Render pipeline
	builder   *frameBuilder
	events    chan tea.Msg
	frame     Frame
	haveFrame bool

	// UI components
	theme  Theme
	inputs rangeInputs
	stats  statsPane
	help   help.Model
	keys   keyMap

	// View state
	width, height int
	ready         bool
	focused       focus
	showSecondary bool
	showBand      bool
	showGoal      bool
	compact       bool
	unit          string

	// Mouse gesture state
	drag       dragKind
	dragAnchor float64 // graph-relative px where the drag started
	dragLastX  int
	liveReg    *timeline.Selection
	hover      *hoverPoint

	// Status line, cleared on the next keypress
	statusMsg     string
	statusIsError bool
}

// NewModel wires the engine, render pipeline, and widgets around a loaded
// dataset. The model starts ready with default dimensions; the first
// WindowSizeMsg corrects them.
func NewModel(ds *model.Dataset, source datasource.DataSource, cfg config.Config) Model {
	theme := DefaultTheme(lipgloss.NewRenderer(os.Stdout))

	ctrl := timeline.NewController(cfg.Tuning.TimelineConfig())
	eff := ctrl.Config()
	committer := timeline.NewCommitter(eff.SettleDelay, ctrl.Window)
	regBrush := timeline.NewRegressionBrush(ctrl, eff.RegressionTolerance)

	events := make(chan tea.Msg, eventBufferSize)
	builder := newFrameBuilder(theme, events)
	sched := timeline.NewScheduler(builder.Render)

	// Interactive view changes arm the settle timer; everything else the
	// hooks need goes through the event channel so only Update touches
	// model state.
	ctrl.SetViewChangedHook(func(_ timeline.Window, interactive bool) {
		if interactive {
			committer.NoteInteraction()
		}
	})
	committer.SetCommitHook(func(win timeline.Window) {
		sendEvent(events, RangeCommittedMsg{Range: win})
	})
	committer.SetSettledHook(func() {
		sendEvent(events, settledMsg{})
	})
	regBrush.SetChangeHook(func(rng *timeline.Window) {
		var cp *timeline.Window
		if rng != nil {
			w := *rng
			cp = &w
		}
		sendEvent(events, RegressionChangedMsg{Range: cp})
	})

	var fileWatcher *watcher.Watcher
	var watcherErr error
	if source.Path != "" && cfg.WatchEnabled() {
		w, err := watcher.NewWatcher(source.Path,
			watcher.WithDebounceDuration(watchDebounce),
		)
		if err != nil {
			watcherErr = err
		} else if err := w.Start(); err != nil {
			watcherErr = err
		} else {
			fileWatcher = w
		}
	}
	var initialStatus string
	var initialStatusErr bool
	if watcherErr != nil {
		initialStatus = fmt.Sprintf("Live reload unavailable: %v", watcherErr)
		initialStatusErr = true
	}

	unit := cfg.UI.Unit
	if unit != "lb" {
		unit = "kg"
	}

	// Default dimensions so the model is usable before the terminal
	// reports its size.
	const defaultWidth, defaultHeight = 120, 40

	m := Model{
		dataset:       ds,
		source:        source,
		watcher:       fileWatcher,
		ctrl:          ctrl,
		committer:     committer,
		sched:         sched,
		regBrush:      regBrush,
		analysisOpts:  cfg.Analytics.Options(),
		builder:       builder,
		events:        events,
		theme:         theme,
		inputs:        newRangeInputs(),
		stats:         newStatsPane(statsPaneWidth-2, defaultHeight-6, theme),
		help:          help.New(),
		keys:          defaultKeyMap(),
		width:         defaultWidth,
		height:        defaultHeight,
		ready:         true,
		showSecondary: true,
		showBand:      cfg.UI.ShowBand == nil || *cfg.UI.ShowBand,
		showGoal:      cfg.UI.ShowGoal == nil || *cfg.UI.ShowGoal,
		compact:       cfg.UI.CompactUI,
		unit:          unit,
		statusMsg:     initialStatus,
		statusIsError: initialStatusErr,
	}

	m.applyLayout()
	m.applyOverview()
	m.committer.Seed(m.ctrl.Window())
	m.inputs.Populate(m.committer.Committed())
	m.recompute()
	m.publishInput()
	m.requestRender(false, "startup")
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitEventCmd(m.events)}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

// layoutNow derives the current panel geometry from the terminal size.
func (m Model) layoutNow() layout {
	var l layout
	if m.width >= statsMinTermWidth && !m.compact {
		l.statsW = statsPaneWidth
	}
	l.chartW = m.width - l.statsW
	if l.statsW > 0 {
		l.chartW-- // gap column between charts and stats
	}
	if m.showSecondary && m.height >= minSecondaryHeight {
		l.secondaryH = secondaryHeight
	}
	footerH := footerRows
	if m.help.ShowAll {
		footerH = fullHelpRows
	}
	l.focusH = m.height - headerRows - stripRows - l.secondaryH - inputRows - footerH
	if l.focusH < 8 && l.secondaryH > 0 {
		l.focusH += l.secondaryH
		l.secondaryH = 0
	}
	if l.focusH < 5 {
		l.focusH = 5
	}
	l.focusTop = headerRows
	l.stripTop = l.focusTop + l.focusH
	l.secondaryTop = l.stripTop + stripRows
	l.inputsTop = l.secondaryTop + l.secondaryH
	return l
}

// applyLayout pushes the current geometry into the controller and the
// stats pane. Before the first frame the graph width is an estimate; the
// FrameMsg handler corrects it once the chart reports real geometry.
func (m *Model) applyLayout() {
	lay := m.layoutNow()
	gw := lay.chartW - focusAxisGutter
	if m.haveFrame {
		gw = m.frame.FocusGraphW
	}
	if gw < 1 {
		gw = 1
	}
	m.ctrl.Resize(float64(gw), float64(gw))
	if lay.statsW > 0 {
		m.stats.Resize(lay.statsW-2, lay.focusH+stripRows+lay.secondaryH)
	}
	m.help.Width = m.width
}

// applyOverview installs overview bounds from the dataset extent, widened
// to goal and annotation dates, or a fallback span when there is no data.
func (m *Model) applyOverview() {
	if first, last, ok := m.dataset.OverviewExtent(); ok {
		m.ctrl.SetOverview(timeline.NewWindow(first, last).SnapToDays())
		return
	}
	m.ctrl.SetOverview(timeline.FallbackOverview(time.Now(), m.ctrl.Config().InitialSpanMonths))
}

// recompute rederives all analytics. The regression is fitted over the
// manual brush range when one is set, otherwise the committed range.
func (m *Model) recompute() {
	rng := m.committer.Committed()
	if r, ok := m.regBrush.Range(); ok {
		rng = r
	}
	m.analysis = analytics.Compute(m.dataset, rng, m.analysisOpts)
}

// visibleOverlays copies the overlay list with the toggle flags applied.
// A copy, because the previous frame input may still be mid-render.
func (m *Model) visibleOverlays() []model.Series {
	out := make([]model.Series, len(m.analysis.Overlays))
	copy(out, m.analysis.Overlays)
	for i := range out {
		switch {
		case out[i].Kind.IsBand():
			out[i].Visible = out[i].Visible && m.showBand
		case out[i].Kind == model.SeriesGoal:
			out[i].Visible = out[i].Visible && m.showGoal
		}
	}
	return out
}

// publishInput snapshots everything a render pass needs and hands it to
// the builder. Called before every render request.
func (m *Model) publishInput() {
	lay := m.layoutNow()
	ctx := m.ctrl.Context()
	win := ctx.Window

	var regRange *timeline.Window
	if r, ok := m.regBrush.Range(); ok {
		regRange = &r
	}
	eff := m.ctrl.Config()

	m.builder.SetInput(&frameInput{
		FocusW:        lay.chartW,
		FocusH:        lay.focusH,
		SecondaryW:    lay.chartW,
		SecondaryH:    lay.secondaryH,
		StatsW:        max(lay.statsW-2, 0),
		ShowSecondary: lay.secondaryH > 0,

		Win:      win,
		Overview: ctx.Overview,
		Unit:     m.unit,

		AllEntries:  m.dataset.Entries,
		Visible:     m.dataset.Slice(win.Start, win.End),
		Overlays:    m.visibleOverlays(),
		Outliers:    m.analysis.Outliers,
		Plateaus:    m.analysis.Plateaus,
		Fit:         m.analysis.Fit,
		Balance:     m.analysis.Balance,
		Rate:        m.analysis.Rate,
		TDEE:        m.analysis.TDEE,
		Goal:        m.dataset.Goal,
		Annotations: m.dataset.Annotations,

		LiveRegression:  m.liveReg,
		RegressionRange: regRange,

		Domain: timeline.DomainOptions{
			PaddingPct:    eff.PaddingPct,
			PaddingMinAbs: eff.PaddingMinAbs,
			GoalBuffer:    timeline.DefaultGoalBuffer,
		},
	})
}

func (m *Model) requestRender(interactive bool, reason string) {
	m.sched.Request(timeline.RenderOptions{Interactive: interactive, Reason: reason})
}

// viewChanged publishes and renders after a successful gesture. The
// committer was already armed by the controller hook.
func (m *Model) viewChanged(interactive bool, reason string) {
	m.publishInput()
	m.requestRender(interactive, reason)
}

// shutdown flushes pending state and stops every goroutine the model
// owns. All the underlying Stops are idempotent.
func (m *Model) shutdown() {
	m.committer.Flush()
	m.committer.Stop()
	m.sched.Stop()
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

// Stop shuts the model's goroutines down. main defers it as a backstop;
// the quit keys already run the same path.
func (m Model) Stop() {
	m.shutdown()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The range inputs capture keys while focused; everything else stays
	// live (frames, reloads, resizes).
	if m.focused == focusInputs {
		if km, ok := msg.(tea.KeyMsg); ok {
			return m.handleInputKeys(km)
		}
	}

	switch msg := msg.(type) {
	case FrameMsg:
		m.frame = msg.Frame
		m.haveFrame = true
		m.stats.SetContent(m.frame.Stats)
		// First frame with real geometry: correct the controller's
		// estimate so gestures and the brush share the chart's pixels.
		ctx := m.ctrl.Context()
		if gw := float64(m.frame.FocusGraphW); gw >= 1 && gw != ctx.FocusWidth {
			m.ctrl.Resize(gw, gw)
			m.publishInput()
			m.requestRender(true, "geometry")
		}
		cmds = append(cmds, waitEventCmd(m.events))

	case RangeCommittedMsg:
		if m.focused != focusInputs {
			m.inputs.Populate(msg.Range)
		}
		m.recompute()
		m.publishInput()
		m.requestRender(false, "commit")
		cmds = append(cmds, waitEventCmd(m.events))

	case RegressionChangedMsg:
		m.recompute()
		m.publishInput()
		m.requestRender(false, "regression")
		if msg.Range == nil {
			m.statusMsg = "Regression range cleared"
		} else {
			m.statusMsg = fmt.Sprintf("Regression %s to %s",
				msg.Range.Start.Format(dateLayout), msg.Range.End.Format(dateLayout))
		}
		m.statusIsError = false
		cmds = append(cmds, waitEventCmd(m.events))

	case settledMsg:
		m.hover = nil
		cmds = append(cmds, waitEventCmd(m.events))

	case FileChangedMsg:
		m = m.reloadData()
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.applyLayout()
		m.publishInput()
		m.requestRender(true, "resize")

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	return m, tea.Batch(cmds...)
}

// reloadData re-reads the data file after an external change and rebuilds
// everything derived from it.
func (m Model) reloadData() Model {
	if m.source.Path == "" {
		return m
	}
	ds, src, err := datasource.Load(m.source.Path)
	if err != nil {
		m.statusMsg = fmt.Sprintf("Reload error: %v", err)
		m.statusIsError = true
		return m
	}
	debug.Log("ui: reloaded %d entries from %s", len(ds.Entries), src.Path)
	m.dataset = ds
	m.source = src
	m.regBrush.Clear()
	m.applyOverview()
	// The clamped window may land on different days; commit it now so the
	// analysis range never points outside the new data.
	m.committer.NoteInteraction()
	m.committer.Flush()
	m.recompute()
	m.publishInput()
	m.requestRender(false, "reload")
	m.statusMsg = fmt.Sprintf("Reloaded %d entries", len(ds.Entries))
	m.statusIsError = false
	return m
}

func (m Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.shutdown()
		return m, tea.Quit
	case "esc":
		m.inputs.Blur()
		m.focused = focusChartArea
		m.inputs.Populate(m.committer.Committed())
		return m, nil
	case "tab", "shift+tab":
		return m, m.inputs.Next()
	case "enter":
		win, err := m.inputs.Parse()
		if err != nil {
			m.statusMsg = err.Error()
			m.statusIsError = true
			return m, nil
		}
		m.inputs.Blur()
		m.focused = focusChartArea
		if m.ctrl.SetWindow(win) {
			// A typed range is explicit intent: commit immediately
			// instead of waiting out the settle delay.
			m.committer.NoteInteraction()
			m.committer.Flush()
			m.viewChanged(false, "range-input")
		}
		return m, nil
	}
	return m, m.inputs.Update(msg)
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any keypress dismisses a transient status.
	m.statusMsg = ""
	m.statusIsError = false

	gw := m.graphWidth()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.applyLayout()
		m.publishInput()
		m.requestRender(false, "help")

	case key.Matches(msg, m.keys.Reset):
		// Esc clears the regression range first; a second press resets
		// the view.
		if _, ok := m.regBrush.Range(); ok && msg.String() == "esc" {
			m.regBrush.Apply(nil)
			return m, nil
		}
		if m.ctrl.Reset() {
			m.viewChanged(false, "reset")
		}

	case key.Matches(msg, m.keys.ZoomIn):
		if m.ctrl.ZoomBy(zoomStep, gw/2) {
			m.viewChanged(true, "key-zoom")
		}

	case key.Matches(msg, m.keys.ZoomOut):
		if m.ctrl.ZoomBy(1/zoomStep, gw/2) {
			m.viewChanged(true, "key-zoom")
		}

	case key.Matches(msg, m.keys.PanLeft):
		if m.ctrl.PanBy(gw * panFraction) {
			m.viewChanged(true, "key-pan")
		}

	case key.Matches(msg, m.keys.PanRight):
		if m.ctrl.PanBy(-gw * panFraction) {
			m.viewChanged(true, "key-pan")
		}

	case key.Matches(msg, m.keys.Unit):
		if m.unit == "kg" {
			m.unit = "lb"
		} else {
			m.unit = "kg"
		}
		m.publishInput()
		m.requestRender(false, "unit")

	case key.Matches(msg, m.keys.Band):
		m.showBand = !m.showBand
		m.publishInput()
		m.requestRender(false, "toggle-band")

	case key.Matches(msg, m.keys.Goal):
		m.showGoal = !m.showGoal
		m.publishInput()
		m.requestRender(false, "toggle-goal")

	case key.Matches(msg, m.keys.Minis):
		m.showSecondary = !m.showSecondary
		m.applyLayout()
		m.publishInput()
		m.requestRender(false, "toggle-minis")

	case key.Matches(msg, m.keys.Range):
		m.focused = focusInputs
		m.inputs.Populate(m.committer.Committed())
		return m, m.inputs.Focus()

	case key.Matches(msg, m.keys.Copy):
		return m.copyStats()

	case key.Matches(msg, m.keys.Export):
		return m.exportSnapshot("svg")

	case key.Matches(msg, m.keys.ExportPNG):
		return m.exportSnapshot("png")
	}

	return m, nil
}

func (m Model) copyStats() (tea.Model, tea.Cmd) {
	if !m.haveFrame || m.frame.Summary == "" {
		m.statusMsg = "Nothing to copy yet"
		m.statusIsError = true
		return m, nil
	}
	if err := clipboard.WriteAll(m.frame.Summary); err != nil {
		m.statusMsg = fmt.Sprintf("Clipboard error: %v", err)
		m.statusIsError = true
		return m, nil
	}
	m.statusMsg = "Stats copied to clipboard"
	m.statusIsError = false
	return m, nil
}

func (m Model) exportSnapshot(format string) (tea.Model, tea.Cmd) {
	name := fmt.Sprintf("gramline-%s.%s", time.Now().Format("20060102-150405"), format)
	analysis := m.analysis
	err := export.SaveSnapshot(export.SnapshotOptions{
		Path:     name,
		Format:   format,
		Dataset:  m.dataset,
		Focus:    m.ctrl.Window(),
		Analysis: &analysis,
		Source:   filepath.Base(m.source.Path),
	})
	if err != nil {
		m.statusMsg = fmt.Sprintf("Export failed: %v", err)
		m.statusIsError = true
		return m, nil
	}
	m.statusMsg = fmt.Sprintf("Saved %s", name)
	m.statusIsError = false
	return m, nil
}

// graphWidth returns the drawable focus graph width in pixels, preferring
// the latest frame's real geometry.
func (m Model) graphWidth() float64 {
	if m.haveFrame && m.frame.FocusGraphW > 0 {
		return float64(m.frame.FocusGraphW)
	}
	lay := m.layoutNow()
	gw := lay.chartW - focusAxisGutter
	if gw < 1 {
		gw = 1
	}
	return float64(gw)
}

// graphRelX maps a terminal column to graph-relative pixels, clamped to
// the drawable area.
func (m Model) graphRelX(x int) float64 {
	gx := float64(x - m.frame.FocusGraphX)
	gw := m.graphWidth()
	if gx < 0 {
		gx = 0
	}
	if gx > gw {
		gx = gw
	}
	return gx
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.haveFrame {
		return m, nil
	}
	lay := m.layoutNow()
	inChartCols := msg.X < lay.chartW
	inFocus := inChartCols && msg.Y >= lay.focusTop && msg.Y < lay.stripTop
	inStrip := inChartCols && msg.Y >= lay.stripTop && msg.Y < lay.stripTop+stripRows
	inStats := lay.statsW > 0 && msg.X > lay.chartW

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if inStats {
			return m, m.stats.Update(msg)
		}
		if inFocus || inStrip {
			factor := zoomStep
			if msg.Button == tea.MouseButtonWheelDown {
				factor = 1 / zoomStep
			}
			if m.ctrl.ZoomBy(factor, m.graphRelX(msg.X)) {
				m.viewChanged(true, "wheel")
			}
		}
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		switch {
		case inFocus && msg.Shift:
			m.drag = dragRegression
			m.dragAnchor = m.graphRelX(msg.X)
			sel := timeline.NewSelection(m.dragAnchor, m.dragAnchor)
			m.liveReg = &sel
			m.viewChanged(true, "regression-drag")
		case inFocus:
			m.drag = dragPan
			m.dragLastX = msg.X
		case inStrip:
			m.drag = dragBrush
			m.dragAnchor = m.graphRelX(msg.X)
		}

	case tea.MouseActionMotion:
		switch m.drag {
		case dragPan:
			dx := msg.X - m.dragLastX
			m.dragLastX = msg.X
			if dx != 0 && m.ctrl.PanBy(float64(dx)) {
				m.viewChanged(true, "drag-pan")
			}
		case dragRegression:
			sel := timeline.NewSelection(m.dragAnchor, m.graphRelX(msg.X))
			m.liveReg = &sel
			m.viewChanged(true, "regression-drag")
		case dragBrush:
			sel := timeline.NewSelection(m.dragAnchor, m.graphRelX(msg.X))
			if m.ctrl.ApplyBrush(&sel, timeline.SourceUser) {
				m.viewChanged(true, "drag-brush")
			}
		default:
			if inFocus {
				m.hover = hoverAt(m.dataset.Entries, m.smoothedOverlay(),
					m.frame.Window, m.frame.FocusGraphW, int(m.graphRelX(msg.X)))
			} else {
				m.hover = nil
			}
		}

	case tea.MouseActionRelease:
		switch m.drag {
		case dragRegression:
			sel := timeline.NewSelection(m.dragAnchor, m.graphRelX(msg.X))
			m.liveReg = nil
			m.regBrush.Apply(&sel)
			// Erase the live markers even when the apply was a no-op
			// inside the deadband.
			m.viewChanged(true, "regression-end")
		case dragBrush:
			sel := timeline.NewSelection(m.dragAnchor, m.graphRelX(msg.X))
			if m.ctrl.ApplyBrush(&sel, timeline.SourceUser) {
				m.viewChanged(true, "brush-end")
			}
		}
		m.drag = dragNone
	}

	return m, nil
}

// smoothedOverlay finds the smoothed series for the hover readout.
func (m Model) smoothedOverlay() *model.Series {
	for i := range m.analysis.Overlays {
		if m.analysis.Overlays[i].Kind == model.SeriesSmoothed {
			return &m.analysis.Overlays[i]
		}
	}
	return nil
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	lay := m.layoutNow()

	header := m.renderHeader()

	var left string
	if m.haveFrame {
		parts := []string{m.frame.Focus, indentBlock(m.frame.Overview, m.frame.FocusGraphX)}
		if lay.secondaryH > 0 && m.frame.Secondary != "" {
			parts = append(parts, m.frame.Secondary)
		}
		left = lipgloss.JoinVertical(lipgloss.Left, parts...)
	} else {
		left = m.theme.MutedText.Render("Building first frame...")
	}

	body := left
	if lay.statsW > 0 && m.haveFrame {
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.stats.View())
	}

	inputsRow := m.renderInputsRow()
	footer := m.renderFooter()

	finalStyle := m.theme.Renderer.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body, inputsRow, footer))
}

func (m Model) renderHeader() string {
	title := m.theme.Header.Render("gramline")

	info := ""
	if m.source.Path != "" {
		info = fmt.Sprintf(" %s (%s)", filepath.Base(m.source.Path), m.source.Type)
	}
	committed := m.committer.Committed()
	if !committed.IsZero() {
		info += fmt.Sprintf("  %s to %s",
			committed.Start.Format(dateLayout), committed.End.Format(dateLayout))
	}

	hover := ""
	if m.hover != nil {
		hover = fmt.Sprintf("%s %s", m.hover.Entry.Date.Format(dateLayout),
			displayWeight(m.hover.Entry.WeightKg, m.unit))
		if m.hover.HasSmoothed {
			hover += fmt.Sprintf(" (trend %s)", displayWeight(m.hover.Smoothed, m.unit))
		}
		hover = m.theme.HeaderInfo.Render(hover)
	}

	line := title + m.theme.HeaderInfo.Render(info)
	gap := m.width - lipgloss.Width(line) - lipgloss.Width(hover)
	if gap < 1 {
		return truncateCells(line, m.width, "…")
	}
	return line + strings.Repeat(" ", gap) + hover
}

func (m Model) renderInputsRow() string {
	row := m.inputs.View(m.theme)
	if m.focused == focusInputs {
		row += m.theme.MutedText.Render("  enter apply, esc cancel")
	}
	return row
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		style := m.theme.Status
		prefix := "✓ "
		if m.statusIsError {
			style = m.theme.StatusError
			prefix = "✗ "
		}
		return truncateCells(style.Render(prefix+m.statusMsg), m.width, "…")
	}
	return m.help.View(m.keys)
}

// indentBlock prefixes every line with n spaces, aligning the overview
// strip under the focus chart's graph area.
func indentBlock(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

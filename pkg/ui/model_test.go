package ui

import (
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/gramline/internal/datasource"
	"github.com/vanderheijden86/gramline/pkg/config"
	"github.com/vanderheijden86/gramline/pkg/testutil"
	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// newTestModel builds a model over a 300 day loss series with no file
// watcher (empty source path). Engine goroutines are stopped via Cleanup.
func newTestModel(t *testing.T) Model {
	t.Helper()
	ds := testutil.Dataset(testutil.QuickLoss(300))
	m := NewModel(ds, datasource.DataSource{Type: datasource.SourceTypeJSONL}, config.DefaultConfig())
	t.Cleanup(m.Stop)
	return m
}

func pressKey(t *testing.T, m Model, s string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch s {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

// withFrame injects a frame that matches the controller's current
// geometry, so mouse handling is active without triggering the
// geometry-correction render.
func withFrame(t *testing.T, m Model) Model {
	t.Helper()
	gw := int(m.ctrl.Context().FocusWidth)
	updated, _ := m.Update(FrameMsg{Frame: Frame{
		Focus:       "focus pane",
		Overview:    "overview strip",
		Stats:       "stats pane",
		Summary:     "# Stats",
		FocusGraphX: focusAxisGutter,
		FocusGraphW: gw,
		Window:      m.ctrl.Window(),
	}})
	return updated.(Model)
}

func TestNewModelSeedsCommittedRange(t *testing.T) {
	m := newTestModel(t)

	win := m.ctrl.Window()
	if win.IsZero() {
		t.Fatal("initial window is zero")
	}
	testutil.AssertWindowEqual(t, m.committer.Committed(), win)

	// The initial view is the last few calendar months, so it must sit
	// inside the overview and start on the first of a month.
	ov := m.ctrl.Overview()
	if win.Start.Before(ov.Start) || win.End.After(ov.End) {
		t.Errorf("initial window %v outside overview %v", win, ov)
	}
	if d := win.Start.Day(); d != 1 && !win.Start.Equal(ov.Start) {
		t.Errorf("initial window starts on day %d, want first of month", d)
	}

	if got := m.inputs.from.Value(); got != win.Start.Format(dateLayout) {
		t.Errorf("from input %q, want %q", got, win.Start.Format(dateLayout))
	}
	if got := m.inputs.to.Value(); got != win.End.Format(dateLayout) {
		t.Errorf("to input %q, want %q", got, win.End.Format(dateLayout))
	}
}

func TestLayoutGeometry(t *testing.T) {
	tests := []struct {
		name           string
		width, height  int
		compact        bool
		showSecondary  bool
		helpOpen       bool
		wantStatsW     int
		wantChartW     int
		wantSecondaryH int
		wantFocusH     int
	}{
		{"wide tall", 120, 40, false, true, false, 34, 85, 9, 25},
		{"narrow keeps full width", 80, 40, false, true, false, 0, 80, 9, 25},
		{"short drops minis", 120, 24, false, true, false, 34, 85, 0, 18},
		{"compact drops stats", 120, 40, true, true, false, 0, 120, 9, 25},
		{"minis off", 120, 40, false, false, false, 34, 85, 0, 34},
		{"full help shrinks focus", 120, 40, false, true, true, 34, 85, 9, 21},
		{"tiny floors focus", 120, 10, false, false, false, 34, 85, 0, 5},
	}

	m := newTestModel(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.width = tt.width
			m.height = tt.height
			m.compact = tt.compact
			m.showSecondary = tt.showSecondary
			m.help.ShowAll = tt.helpOpen

			lay := m.layoutNow()
			if lay.statsW != tt.wantStatsW {
				t.Errorf("statsW = %d, want %d", lay.statsW, tt.wantStatsW)
			}
			if lay.chartW != tt.wantChartW {
				t.Errorf("chartW = %d, want %d", lay.chartW, tt.wantChartW)
			}
			if lay.secondaryH != tt.wantSecondaryH {
				t.Errorf("secondaryH = %d, want %d", lay.secondaryH, tt.wantSecondaryH)
			}
			if lay.focusH != tt.wantFocusH {
				t.Errorf("focusH = %d, want %d", lay.focusH, tt.wantFocusH)
			}
			if lay.stripTop != lay.focusTop+lay.focusH {
				t.Errorf("stripTop = %d, want focusTop+focusH = %d", lay.stripTop, lay.focusTop+lay.focusH)
			}
		})
	}
}

func TestLayoutReclaimsSecondaryWhenShort(t *testing.T) {
	m := newTestModel(t)
	m.width = 120
	m.height = 31
	m.showSecondary = true

	// 31 rows leave 16 for focus+secondary. The secondary row would squeeze
	// the focus chart below its minimum, so it is dropped and its rows
	// returned to the focus chart.
	lay := m.layoutNow()
	if lay.secondaryH != 0 {
		t.Errorf("secondaryH = %d, want 0", lay.secondaryH)
	}
	if lay.focusH != 16 {
		t.Errorf("focusH = %d, want 16", lay.focusH)
	}
}

func TestWindowSizeResizesController(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	m = updated.(Model)

	if m.width != 200 || m.height != 50 {
		t.Fatalf("size = %dx%d, want 200x50", m.width, m.height)
	}
	// Before the first frame the controller width is the layout estimate:
	// chart width minus the axis gutter.
	wantGW := float64(200 - statsPaneWidth - 1 - focusAxisGutter)
	if got := m.ctrl.Context().FocusWidth; got != wantGW {
		t.Errorf("FocusWidth = %v, want %v", got, wantGW)
	}
}

func TestKeyZoomNarrowsWindow(t *testing.T) {
	m := newTestModel(t)
	before := m.ctrl.Window()

	m, _ = pressKey(t, m, "+")
	zoomed := m.ctrl.Window()
	if zoomed.Duration() >= before.Duration() {
		t.Fatalf("zoom in: duration %v, want < %v", zoomed.Duration(), before.Duration())
	}

	m, _ = pressKey(t, m, "-")
	back := m.ctrl.Window()
	if back.Duration() <= zoomed.Duration() {
		t.Errorf("zoom out: duration %v, want > %v", back.Duration(), zoomed.Duration())
	}
}

func TestZoomOutClampsAtOverview(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 12; i++ {
		m, _ = pressKey(t, m, "-")
	}
	testutil.AssertWindowWithin(t, m.ctrl.Window(), m.ctrl.Overview(), time.Second)

	// Fully zoomed out, another zoom out changes nothing.
	m, _ = pressKey(t, m, "-")
	testutil.AssertWindowWithin(t, m.ctrl.Window(), m.ctrl.Overview(), time.Second)
}

func TestResetShowsWholeOverview(t *testing.T) {
	m := newTestModel(t)
	m, _ = pressKey(t, m, "+")
	m, _ = pressKey(t, m, "+")

	m, _ = pressKey(t, m, "r")
	testutil.AssertWindowEqual(t, m.ctrl.Window(), m.ctrl.Overview())
}

func TestKeyPanMovesWindowBack(t *testing.T) {
	m := newTestModel(t)
	before := m.ctrl.Window()

	m, _ = pressKey(t, m, "h")
	after := m.ctrl.Window()

	if !after.Start.Before(before.Start) {
		t.Errorf("pan back: start %v, want before %v", after.Start, before.Start)
	}
	if diff := after.Duration() - before.Duration(); diff < -time.Second || diff > time.Second {
		t.Errorf("pan changed duration by %v", diff)
	}

	// Pan forward returns to the overview's right edge and stops there.
	m, _ = pressKey(t, m, "l")
	m, _ = pressKey(t, m, "l")
	if end := m.ctrl.Window().End; end.After(m.ctrl.Overview().End) {
		t.Errorf("pan forward overshot overview end: %v > %v", end, m.ctrl.Overview().End)
	}
}

func TestUnitKeyToggles(t *testing.T) {
	m := newTestModel(t)
	if m.unit != "kg" {
		t.Fatalf("initial unit = %q, want kg", m.unit)
	}
	m, _ = pressKey(t, m, "u")
	if m.unit != "lb" {
		t.Errorf("unit = %q, want lb", m.unit)
	}
	m, _ = pressKey(t, m, "u")
	if m.unit != "kg" {
		t.Errorf("unit = %q, want kg", m.unit)
	}
}

func TestOverlayToggles(t *testing.T) {
	m := newTestModel(t)

	if !m.showBand || !m.showGoal || !m.showSecondary {
		t.Fatalf("toggles = band %v goal %v minis %v, want all on", m.showBand, m.showGoal, m.showSecondary)
	}

	m, _ = pressKey(t, m, "b")
	if m.showBand {
		t.Error("band still on after b")
	}
	m, _ = pressKey(t, m, "g")
	if m.showGoal {
		t.Error("goal still on after g")
	}

	m, _ = pressKey(t, m, "t")
	if m.showSecondary {
		t.Error("minis still on after t")
	}
	if lay := m.layoutNow(); lay.secondaryH != 0 {
		t.Errorf("secondaryH = %d after hiding minis, want 0", lay.secondaryH)
	}
}

func TestHelpToggleExpandsFooter(t *testing.T) {
	m := newTestModel(t)
	focusBefore := m.layoutNow().focusH

	m, _ = pressKey(t, m, "?")
	if !m.help.ShowAll {
		t.Fatal("help not expanded after ?")
	}
	if got := m.layoutNow().focusH; got != focusBefore-(fullHelpRows-footerRows) {
		t.Errorf("focusH = %d with help open, want %d", got, focusBefore-(fullHelpRows-footerRows))
	}

	m, _ = pressKey(t, m, "?")
	if m.help.ShowAll {
		t.Error("help still expanded after second ?")
	}
}

func TestStatusClearedOnKeypress(t *testing.T) {
	m := newTestModel(t)
	m.statusMsg = "Saved gramline.svg"
	m.statusIsError = false

	m, _ = pressKey(t, m, "b")
	if m.statusMsg != "" {
		t.Errorf("statusMsg = %q after keypress, want empty", m.statusMsg)
	}
}

func TestQuitKeyStopsAndQuits(t *testing.T) {
	m := newTestModel(t)
	_, cmd := pressKey(t, m, "q")
	if cmd == nil {
		t.Fatal("no command from quit key")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("quit key produced %T, want tea.QuitMsg", cmd())
	}
}

func TestRangeKeyFocusesInputs(t *testing.T) {
	m := newTestModel(t)

	m, cmd := pressKey(t, m, "/")
	if m.focused != focusInputs {
		t.Fatal("inputs not focused after /")
	}
	if cmd == nil {
		t.Error("no focus command from /")
	}

	// Editing is abandoned on esc: focus returns to the chart and the
	// fields show the committed range again.
	m.inputs.from.SetValue("garbage")
	m, _ = pressKey(t, m, "esc")
	if m.focused != focusChartArea {
		t.Error("chart not refocused after esc")
	}
	if got := m.inputs.from.Value(); got != m.committer.Committed().Start.Format(dateLayout) {
		t.Errorf("from input %q after esc, want committed start", got)
	}
}

func TestTypedRangeCommitsImmediately(t *testing.T) {
	m := newTestModel(t)

	m, _ = pressKey(t, m, "/")
	m.inputs.from.SetValue("2025-03-01")
	m.inputs.to.SetValue("2025-04-30")
	m, _ = pressKey(t, m, "enter")

	if m.focused != focusChartArea {
		t.Fatal("chart not refocused after enter")
	}
	want := timeline.NewWindow(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	).SnapToDays()
	testutil.AssertWindowEqual(t, m.ctrl.Window(), want)
	// A typed range skips the settle delay.
	testutil.AssertWindowEqual(t, m.committer.Committed(), want)
}

func TestTypedRangeParseErrorKeepsFocus(t *testing.T) {
	m := newTestModel(t)
	before := m.ctrl.Window()

	m, _ = pressKey(t, m, "/")
	m.inputs.from.SetValue("03/01/2025")
	m, _ = pressKey(t, m, "enter")

	if m.focused != focusInputs {
		t.Error("focus left inputs despite parse error")
	}
	if !m.statusIsError || m.statusMsg == "" {
		t.Errorf("status = %q (err=%v), want parse error", m.statusMsg, m.statusIsError)
	}
	testutil.AssertWindowEqual(t, m.ctrl.Window(), before)
}

func TestTabCyclesInputFields(t *testing.T) {
	m := newTestModel(t)
	m, _ = pressKey(t, m, "/")
	if m.inputs.active != 0 {
		t.Fatalf("active field = %d after focus, want 0", m.inputs.active)
	}
	m, _ = pressKey(t, m, "tab")
	if m.inputs.active != 1 {
		t.Errorf("active field = %d after tab, want 1", m.inputs.active)
	}
	m, _ = pressKey(t, m, "tab")
	if m.inputs.active != 0 {
		t.Errorf("active field = %d after second tab, want 0", m.inputs.active)
	}
}

func TestFrameMsgStoresFrameAndCorrectsGeometry(t *testing.T) {
	m := newTestModel(t)
	if m.haveFrame {
		t.Fatal("haveFrame before any FrameMsg")
	}

	// The first real frame reports a graph width that differs from the
	// layout estimate; the controller must adopt it.
	updated, cmd := m.Update(FrameMsg{Frame: Frame{
		Focus:       "focus pane",
		FocusGraphX: 7,
		FocusGraphW: 90,
		Window:      m.ctrl.Window(),
	}})
	m = updated.(Model)

	if !m.haveFrame {
		t.Fatal("haveFrame not set")
	}
	if got := m.ctrl.Context().FocusWidth; got != 90 {
		t.Errorf("FocusWidth = %v after frame, want 90", got)
	}
	if cmd == nil {
		t.Error("frame handler did not re-arm the event pump")
	}
}

func TestRangeCommittedPopulatesInputs(t *testing.T) {
	m := newTestModel(t)
	win := timeline.NewWindow(
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
	).SnapToDays()

	updated, _ := m.Update(RangeCommittedMsg{Range: win})
	m = updated.(Model)
	if got := m.inputs.from.Value(); got != "2025-02-01" {
		t.Errorf("from input %q, want 2025-02-01", got)
	}
	if got := m.inputs.to.Value(); got != "2025-02-28" {
		t.Errorf("to input %q, want 2025-02-28", got)
	}

	// While the user is typing a range, commits must not clobber the
	// fields.
	m, _ = pressKey(t, m, "/")
	m.inputs.from.SetValue("2025-06-01")
	updated, _ = m.Update(RangeCommittedMsg{Range: win})
	m = updated.(Model)
	if got := m.inputs.from.Value(); got != "2025-06-01" {
		t.Errorf("from input %q, want typed value preserved", got)
	}
}

func TestRegressionChangedSetsStatus(t *testing.T) {
	m := newTestModel(t)
	win := timeline.NewWindow(
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	).SnapToDays()

	updated, _ := m.Update(RegressionChangedMsg{Range: &win})
	m = updated.(Model)
	if m.statusMsg != "Regression 2025-03-01 to 2025-04-30" {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}

	updated, _ = m.Update(RegressionChangedMsg{Range: nil})
	m = updated.(Model)
	if m.statusMsg != "Regression range cleared" {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
}

func TestSettledClearsHover(t *testing.T) {
	m := newTestModel(t)
	m.hover = &hoverPoint{}

	updated, _ := m.Update(settledMsg{})
	m = updated.(Model)
	if m.hover != nil {
		t.Error("hover survived settle")
	}
}

func TestFileChangedReloadsDataset(t *testing.T) {
	entries := testutil.QuickLoss(5)
	path := testutil.TempEntriesFile(t, entries)

	off := false
	cfg := config.DefaultConfig()
	cfg.Data.Watch = &off

	m := NewModel(testutil.Dataset(entries),
		datasource.DataSource{Type: datasource.SourceTypeJSONL, Path: path}, cfg)
	t.Cleanup(m.Stop)

	testutil.WriteEntriesJSONL(t, path, testutil.QuickLoss(8))
	updated, _ := m.Update(FileChangedMsg{})
	m = updated.(Model)

	if got := len(m.dataset.Entries); got != 8 {
		t.Errorf("dataset has %d entries after reload, want 8", got)
	}
	if m.statusMsg != "Reloaded 8 entries" {
		t.Errorf("statusMsg = %q", m.statusMsg)
	}
	if m.statusIsError {
		t.Error("reload flagged as error")
	}
}

func TestFileChangedReportsReloadError(t *testing.T) {
	entries := testutil.QuickLoss(5)
	path := testutil.TempEntriesFile(t, entries)

	off := false
	cfg := config.DefaultConfig()
	cfg.Data.Watch = &off

	m := NewModel(testutil.Dataset(entries),
		datasource.DataSource{Type: datasource.SourceTypeJSONL, Path: path}, cfg)
	t.Cleanup(m.Stop)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	updated, _ := m.Update(FileChangedMsg{})
	m = updated.(Model)

	if !m.statusIsError || !strings.HasPrefix(m.statusMsg, "Reload error:") {
		t.Errorf("status = %q (err=%v), want reload error", m.statusMsg, m.statusIsError)
	}
	// The old dataset stays up.
	if got := len(m.dataset.Entries); got != 5 {
		t.Errorf("dataset has %d entries, want original 5", got)
	}
}

func TestMouseWheelZoomsFocus(t *testing.T) {
	m := withFrame(t, newTestModel(t))
	before := m.ctrl.Window()

	updated, _ := m.Update(tea.MouseMsg{
		X: 40, Y: 5,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonWheelUp,
	})
	m = updated.(Model)
	if d := m.ctrl.Window().Duration(); d >= before.Duration() {
		t.Errorf("wheel up: duration %v, want < %v", d, before.Duration())
	}

	updated, _ = m.Update(tea.MouseMsg{
		X: 40, Y: 5,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonWheelDown,
	})
	m = updated.(Model)
	testutil.AssertWindowWithin(t, m.ctrl.Window(), before, time.Hour)
}

func TestMouseWheelIgnoredOutsideCharts(t *testing.T) {
	m := withFrame(t, newTestModel(t))
	before := m.ctrl.Window()

	// The inputs row is below the strip; wheeling there is not a zoom.
	updated, _ := m.Update(tea.MouseMsg{
		X: 40, Y: m.layoutNow().inputsTop,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonWheelUp,
	})
	m = updated.(Model)
	testutil.AssertWindowEqual(t, m.ctrl.Window(), before)
}

func TestMouseDragPanMovesWindow(t *testing.T) {
	m := withFrame(t, newTestModel(t))
	before := m.ctrl.Window()

	updated, _ := m.Update(tea.MouseMsg{X: 30, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.drag != dragPan {
		t.Fatalf("drag = %v after press, want dragPan", m.drag)
	}

	updated, _ = m.Update(tea.MouseMsg{X: 45, Y: 5, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if !m.ctrl.Window().Start.Before(before.Start) {
		t.Errorf("drag right did not pan back: start %v, want before %v", m.ctrl.Window().Start, before.Start)
	}

	updated, _ = m.Update(tea.MouseMsg{X: 45, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.drag != dragNone {
		t.Errorf("drag = %v after release, want dragNone", m.drag)
	}
}

func TestShiftDragSetsRegressionRange(t *testing.T) {
	m := withFrame(t, newTestModel(t))

	updated, _ := m.Update(tea.MouseMsg{X: 20, Y: 5, Shift: true, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.drag != dragRegression || m.liveReg == nil {
		t.Fatalf("drag = %v liveReg = %v after shift press", m.drag, m.liveReg)
	}

	updated, _ = m.Update(tea.MouseMsg{X: 60, Y: 5, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.liveReg == nil || m.liveReg.Width() <= 0 {
		t.Fatal("live selection not tracking motion")
	}

	updated, _ = m.Update(tea.MouseMsg{X: 60, Y: 5, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.liveReg != nil {
		t.Error("live selection survived release")
	}
	rng, ok := m.regBrush.Range()
	if !ok {
		t.Fatal("no regression range after drag")
	}
	win := m.ctrl.Window()
	if rng.Start.Before(win.Start) || rng.End.After(win.End) {
		t.Errorf("regression range %v outside view %v", rng, win)
	}

	// Esc clears the range first; the view itself is untouched.
	m, _ = pressKey(t, m, "esc")
	if _, ok := m.regBrush.Range(); ok {
		t.Error("regression range survived esc")
	}
	testutil.AssertWindowEqual(t, m.ctrl.Window(), win)
}

func TestStripDragBrushesWindow(t *testing.T) {
	m := withFrame(t, newTestModel(t))
	stripY := m.layoutNow().stripTop
	overview := m.ctrl.Overview()

	updated, _ := m.Update(tea.MouseMsg{X: 20, Y: stripY, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.drag != dragBrush {
		t.Fatalf("drag = %v after strip press, want dragBrush", m.drag)
	}

	updated, _ = m.Update(tea.MouseMsg{X: 60, Y: stripY, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	win := m.ctrl.Window()
	if win.Duration() >= overview.Duration() {
		t.Errorf("brush did not narrow the window: %v vs overview %v", win.Duration(), overview.Duration())
	}

	updated, _ = m.Update(tea.MouseMsg{X: 60, Y: stripY, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = updated.(Model)
	if m.drag != dragNone {
		t.Errorf("drag = %v after release, want dragNone", m.drag)
	}
}

func TestHoverMotionSetsReadout(t *testing.T) {
	m := withFrame(t, newTestModel(t))

	updated, _ := m.Update(tea.MouseMsg{X: 40, Y: 5, Action: tea.MouseActionMotion})
	m = updated.(Model)
	if m.hover == nil {
		t.Fatal("no hover readout over the focus chart")
	}
	win := m.ctrl.Window()
	d := m.hover.Entry.Date
	if d.Before(win.Start.AddDate(0, 0, -1)) || d.After(win.End.AddDate(0, 0, 1)) {
		t.Errorf("hover entry %v far outside window %v", d, win)
	}

	// Leaving the chart clears the readout.
	updated, _ = m.Update(tea.MouseMsg{X: 40, Y: m.layoutNow().inputsTop, Action: tea.MouseActionMotion})
	m = updated.(Model)
	if m.hover != nil {
		t.Error("hover survived leaving the chart")
	}
}

func TestMouseIgnoredBeforeFirstFrame(t *testing.T) {
	m := newTestModel(t)
	before := m.ctrl.Window()

	updated, _ := m.Update(tea.MouseMsg{
		X: 40, Y: 5,
		Action: tea.MouseActionPress,
		Button: tea.MouseButtonWheelUp,
	})
	m = updated.(Model)
	testutil.AssertWindowEqual(t, m.ctrl.Window(), before)
	if m.drag != dragNone {
		t.Errorf("drag = %v, want dragNone", m.drag)
	}
}

func TestCopyStatsWithoutFrame(t *testing.T) {
	m := newTestModel(t)
	m, _ = pressKey(t, m, "y")
	if !m.statusIsError || m.statusMsg != "Nothing to copy yet" {
		t.Errorf("status = %q (err=%v)", m.statusMsg, m.statusIsError)
	}
}

func TestViewBeforeFirstFrame(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	if !strings.Contains(view, "gramline") {
		t.Error("view missing header title")
	}
	if !strings.Contains(view, "Building first frame") {
		t.Error("view missing first-frame placeholder")
	}

	m.ready = false
	if got := m.View(); got != "Initializing..." {
		t.Errorf("unready view = %q", got)
	}
}

func TestViewComposesFrame(t *testing.T) {
	m := withFrame(t, newTestModel(t))

	view := m.View()
	if !strings.Contains(view, "focus pane") {
		t.Error("view missing focus panel")
	}
	if !strings.Contains(view, "overview strip") {
		t.Error("view missing overview strip")
	}
	if strings.Contains(view, "Building first frame") {
		t.Error("placeholder shown despite frame")
	}
}

func TestViewShowsStatusInFooter(t *testing.T) {
	m := withFrame(t, newTestModel(t))

	m.statusMsg = "Saved gramline.svg"
	if view := m.View(); !strings.Contains(view, "Saved gramline.svg") {
		t.Error("view missing status message")
	}

	m.statusMsg = ""
	if view := m.View(); !strings.Contains(view, "zoom in") {
		t.Error("view missing help hints when no status is set")
	}
}

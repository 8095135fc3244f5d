package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gramline/pkg/timeline"
)

const dateLayout = "2006-01-02"

// rangeInputs holds the from/to date fields for typing an exact analysis
// range. Dates are inclusive; parsing snaps the result to day bounds so a
// round trip through the fields reproduces the committed window.
type rangeInputs struct {
	from   textinput.Model
	to     textinput.Model
	active int
}

func newRangeInputs() rangeInputs {
	mk := func() textinput.Model {
		ti := textinput.New()
		ti.Placeholder = "YYYY-MM-DD"
		ti.CharLimit = 10
		ti.Width = 11
		return ti
	}
	return rangeInputs{from: mk(), to: mk()}
}

// Populate fills both fields from a window. The window's End is the last
// day's end-of-day timestamp, so formatting it yields the inclusive date.
func (r *rangeInputs) Populate(win timeline.Window) {
	if win.IsZero() {
		return
	}
	r.from.SetValue(win.Start.Format(dateLayout))
	r.to.SetValue(win.End.Format(dateLayout))
}

func (r *rangeInputs) Focus() tea.Cmd {
	r.active = 0
	r.to.Blur()
	return r.from.Focus()
}

func (r *rangeInputs) Blur() {
	r.from.Blur()
	r.to.Blur()
}

// Next moves focus to the other field.
func (r *rangeInputs) Next() tea.Cmd {
	if r.active == 0 {
		r.active = 1
		r.from.Blur()
		return r.to.Focus()
	}
	r.active = 0
	r.to.Blur()
	return r.from.Focus()
}

func (r *rangeInputs) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if r.active == 0 {
		r.from, cmd = r.from.Update(msg)
	} else {
		r.to, cmd = r.to.Update(msg)
	}
	return cmd
}

// Parse validates both fields and returns the snapped window. Reversed
// dates are reordered rather than rejected.
func (r *rangeInputs) Parse() (timeline.Window, error) {
	f, err := time.Parse(dateLayout, strings.TrimSpace(r.from.Value()))
	if err != nil {
		return timeline.Window{}, fmt.Errorf("from date: want YYYY-MM-DD, got %q", r.from.Value())
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(r.to.Value()))
	if err != nil {
		return timeline.Window{}, fmt.Errorf("to date: want YYYY-MM-DD, got %q", r.to.Value())
	}
	return timeline.NewWindow(f, t).SnapToDays(), nil
}

func (r *rangeInputs) View(th Theme) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		th.InputLabel.Render("range "),
		r.from.View(),
		th.InputLabel.Render(" to "),
		r.to.View(),
	)
}

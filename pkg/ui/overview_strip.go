package ui

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/gramline/pkg/timeline"
)

// sparkBlocks is the block ladder used by the overview strip, index 0-8.
var sparkBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// overviewStrip renders the full-history context strip under the focus
// chart: a two-row sparkline of mean weight per column, with the columns
// covered by the focus window highlighted, and a ruler row carrying the
// brush handles plus goal and annotation markers.
type overviewStrip struct {
	theme Theme
}

// render produces the three strip rows for the given width. Entries must
// be sorted by date and span the whole dataset, not just the focus window.
func (o *overviewStrip) render(in *frameInput, width int) string {
	if width < 4 || in.Overview.IsZero() || len(in.AllEntries) == 0 {
		return ""
	}
	scale := timeline.NewTimeScale(in.Overview, float64(width))
	if !scale.Valid() {
		return ""
	}

	levels := bucketLevels(in, scale, width)
	sel := timeline.SelectionFor(in.Win, scale).Clamp(float64(width))
	b0 := clampCol(int(math.Round(sel.Start)), width)
	b1 := clampCol(int(math.Round(sel.End))-1, width)
	if b1 < b0 {
		b1 = b0
	}

	styles := []lipgloss.Style{o.theme.StripLine, o.theme.BrushFill, o.theme.BrushHandle,
		o.theme.GoalMark, o.theme.AnnotMark}
	inBrush := func(i int) int {
		if i >= b0 && i <= b1 {
			return 1
		}
		return 0
	}

	top := make([]rune, width)
	bottom := make([]rune, width)
	styleOf := make([]int, width)
	for i := 0; i < width; i++ {
		lv := levels[i]
		switch {
		case lv > 8:
			top[i] = sparkBlocks[lv-8]
			bottom[i] = sparkBlocks[8]
		default:
			top[i] = ' '
			bottom[i] = sparkBlocks[lv]
		}
		styleOf[i] = inBrush(i)
	}

	ruler := make([]rune, width)
	rulerStyle := make([]int, width)
	for i := 0; i < width; i++ {
		ruler[i] = '─'
		rulerStyle[i] = 0
	}
	if in.Goal != nil {
		if col, ok := colFor(scale, in.Goal.TargetDate, width); ok {
			ruler[col] = '◆'
			rulerStyle[col] = 3
		}
	}
	for _, a := range in.Annotations {
		if col, ok := colFor(scale, a.Date, width); ok {
			ruler[col] = '▴'
			rulerStyle[col] = 4
		}
	}
	for _, col := range [2]int{b0, b1} {
		ruler[col] = '┃'
		rulerStyle[col] = 2
	}

	var sb strings.Builder
	sb.WriteString(renderRuns(top, styleOf, styles))
	sb.WriteByte('\n')
	sb.WriteString(renderRuns(bottom, styleOf, styles))
	sb.WriteByte('\n')
	sb.WriteString(renderRuns(ruler, rulerStyle, styles))
	return sb.String()
}

// bucketLevels maps each strip column to a block level 0-16: 0 means no
// data in that column, 1-16 scales the column's mean weight between the
// dataset's min and max means. Gaps stay visibly empty.
func bucketLevels(in *frameInput, scale timeline.TimeScale, width int) []int {
	sums := make([]float64, width)
	counts := make([]int, width)
	for _, e := range in.AllEntries {
		col, ok := colFor(scale, e.Date, width)
		if !ok {
			continue
		}
		sums[col] += e.WeightKg
		counts[col]++
	}

	minV, maxV := math.Inf(1), math.Inf(-1)
	for i := 0; i < width; i++ {
		if counts[i] == 0 {
			continue
		}
		v := sums[i] / float64(counts[i])
		sums[i] = v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	levels := make([]int, width)
	span := maxV - minV
	for i := 0; i < width; i++ {
		if counts[i] == 0 {
			continue
		}
		if span < 1e-9 {
			levels[i] = 8
			continue
		}
		lv := 1 + int((sums[i]-minV)/span*15)
		if lv > 16 {
			lv = 16
		}
		levels[i] = lv
	}
	return levels
}

func colFor(scale timeline.TimeScale, t time.Time, width int) (int, bool) {
	col := int(scale.Pos(t))
	if col < 0 || col >= width {
		return 0, false
	}
	return col, true
}

func clampCol(i, width int) int {
	if i < 0 {
		return 0
	}
	if i >= width {
		return width - 1
	}
	return i
}

// renderRuns renders cells grouped into runs of equal style so each row
// costs a handful of style invocations instead of one per column.
func renderRuns(cells []rune, styleOf []int, styles []lipgloss.Style) string {
	var b strings.Builder
	start := 0
	for i := 1; i <= len(cells); i++ {
		if i == len(cells) || styleOf[i] != styleOf[start] {
			b.WriteString(styles[styleOf[start]].Render(string(cells[start:i])))
			start = i
		}
	}
	return b.String()
}

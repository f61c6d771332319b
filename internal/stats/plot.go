package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Bar is one labelled bucket value.
type Bar struct {
	Label string
	Value float64
}

const (
	defaultPlotHeight   = 6
	minPlotWidth        = 10
	axisSeparator       = " ┤"
	axisRule            = " │"
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

// Eighth-block glyphs, empty to full.
var barLevels = []rune(" ▁▂▃▄▅▆▇█")

var colorPalette = []string{
	"\x1b[36m", // cyan
	"\x1b[35m", // magenta
	"\x1b[33m", // yellow
}

// PlotBars renders a vertical bar chart. A width of 0 uses the terminal width.
func PlotBars(w io.Writer, title string, bars []Bar, width, height int) error {
	return plotBars(w, title, bars, width, height, 0, false)
}

// PlotBarsWithColor renders a bar chart with optional forced color output.
// The color index selects a palette entry.
func PlotBarsWithColor(w io.Writer, title string, bars []Bar, width, height, color int, forceColor bool) error {
	return plotBars(w, title, bars, width, height, color, forceColor)
}

func plotBars(w io.Writer, title string, bars []Bar, width, height, color int, forceColor bool) error {
	if len(bars) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	if width <= 0 {
		width = terminalWidth()
	}

	maxVal := 0.0
	labelWidth := 1
	for _, b := range bars {
		if b.Value > maxVal {
			maxVal = b.Value
		}
		if lw := runewidth.StringWidth(b.Label); lw > labelWidth {
			labelWidth = lw
		}
	}
	topLabel := formatAxisValue(maxVal)
	axisWidth := runewidth.StringWidth(topLabel)

	colWidth := PlotWidthFor(width, axisWidth) / len(bars)
	if colWidth > labelWidth+1 {
		colWidth = labelWidth + 1
	}
	if colWidth < 1 {
		colWidth = 1
	}
	barWidth := colWidth
	if colWidth > 2 {
		barWidth = colWidth - 1
	}

	useColor := shouldUseColor(w, forceColor)
	paint := colorPalette[color%len(colorPalette)]

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for row := height - 1; row >= 0; row-- {
		var line strings.Builder
		axis := ""
		sep := axisRule
		switch row {
		case height - 1:
			axis, sep = topLabel, axisSeparator
		case 0:
			axis, sep = "0", axisSeparator
		}
		line.WriteString(runewidth.FillLeft(axis, axisWidth))
		line.WriteString(sep)
		for _, b := range bars {
			glyph := barGlyph(b.Value, maxVal, row, height)
			cell := strings.Repeat(string(glyph), barWidth)
			if useColor && glyph != ' ' {
				cell = paint + cell + colorReset
			}
			line.WriteString(cell)
			line.WriteString(strings.Repeat(" ", colWidth-barWidth))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " ")); err != nil {
			return err
		}
	}

	indent := strings.Repeat(" ", axisWidth+runewidth.StringWidth(axisRule))
	if _, err := fmt.Fprintln(w, indent+strings.Repeat("─", colWidth*len(bars))); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, indent+labelRow(bars, colWidth, labelWidth)); err != nil {
		return err
	}
	return nil
}

// barGlyph picks the eighth-block for row of a bar scaled to height rows.
func barGlyph(value, maxVal float64, row, height int) rune {
	if maxVal <= 0 || value <= 0 {
		return ' '
	}
	eighths := int(math.Round(value / maxVal * float64(height*8)))
	fill := eighths - row*8
	if fill <= 0 {
		return ' '
	}
	if fill >= 8 {
		return barLevels[8]
	}
	return barLevels[fill]
}

// labelRow prints every nth label so labels never overlap.
func labelRow(bars []Bar, colWidth, labelWidth int) string {
	step := int(math.Ceil(float64(labelWidth+1) / float64(colWidth)))
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i := 0; i < len(bars); i += step {
		span := colWidth * step
		if i+step > len(bars) {
			span = colWidth * (len(bars) - i)
		}
		b.WriteString(runewidth.FillRight(runewidth.Truncate(bars[i].Label, span, ""), span))
	}
	return strings.TrimRight(b.String(), " ")
}

func formatAxisValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f", v)
}

// PlotWidthFor computes the columns left for bars after the axis.
func PlotWidthFor(totalWidth, axisWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

package stats

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

type column struct {
	title string
	align align
}

func left(title string) column  { return column{title: title} }
func right(title string) column { return column{title: title, align: alignRight} }

// textTable lays out cells in columns sized to their widest cell. A table
// whose columns are all untitled prints no header line.
type textTable struct {
	cols []column
	rows [][]string
}

func newTable(cols ...column) *textTable {
	return &textTable{cols: cols}
}

// summaryTable is the label/value layout used by the day, month and year
// summaries.
func summaryTable() *textTable {
	return newTable(left(""), right(""))
}

func (t *textTable) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *textTable) hasHeader() bool {
	for _, c := range t.cols {
		if c.title != "" {
			return true
		}
	}
	return false
}

func (t *textTable) widths() []int {
	widths := make([]int, len(t.cols))
	measure := func(i int, cell string) {
		if w := runewidth.StringWidth(cell); w > widths[i] {
			widths[i] = w
		}
	}
	for i, c := range t.cols {
		measure(i, c.title)
	}
	for _, row := range t.rows {
		for i := range t.cols {
			if i < len(row) {
				measure(i, row[i])
			}
		}
	}
	return widths
}

func (t *textTable) lines() []string {
	if len(t.cols) == 0 {
		return nil
	}
	widths := t.widths()
	out := make([]string, 0, len(t.rows)+1)
	if t.hasHeader() {
		titles := make([]string, len(t.cols))
		for i, c := range t.cols {
			titles[i] = c.title
		}
		out = append(out, t.line(titles, widths))
	}
	for _, row := range t.rows {
		out = append(out, t.line(row, widths))
	}
	return out
}

func (t *textTable) line(cells []string, widths []int) string {
	parts := make([]string, len(t.cols))
	for i, c := range t.cols {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		gap := strings.Repeat(" ", max(0, widths[i]-runewidth.StringWidth(cell)))
		if c.align == alignRight {
			parts[i] = gap + cell
		} else {
			parts[i] = cell + gap
		}
	}
	return strings.Join(parts, " ")
}

func (t *textTable) writeTo(w io.Writer) error {
	return writeLines(w, t.lines())
}

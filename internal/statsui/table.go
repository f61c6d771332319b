package statsui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
)

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Started", Width: 12},
		{Title: "Ended", Width: 5},
		{Title: "Feed", Width: 14},
		{Title: "Left", Width: 7},
		{Title: "Right", Width: 7},
		{Title: "Total", Width: 7},
	}
}

func historyRows(history []model.Unit) []table.Row {
	rows := make([]table.Row, 0, len(history))
	for _, u := range history {
		started := u.StartTime().Time().Format("Jan 02 15:04")
		ended := u.EndTime.Time().Format("15:04")
		if u.IsBottle() {
			rows = append(rows, table.Row{started, ended, fmt.Sprintf("Bottle %.1f oz", u.VolumeOz), "", "", ""})
			continue
		}
		sides := make([]string, 0, len(u.Sessions))
		for _, s := range u.Sessions {
			sides = append(sides, s.Side.Short())
		}
		rows = append(rows, table.Row{
			started,
			ended,
			"Breast " + strings.Join(sides, "+"),
			timefmt.Clock(u.SideDuration(model.SideLeft)),
			timefmt.Clock(u.SideDuration(model.SideRight)),
			timefmt.Clock(u.TotalDuration()),
		})
	}
	return rows
}

func buildHistoryTable(history []model.Unit, width, height int) table.Model {
	t := table.New(
		table.WithColumns(historyColumns()),
		table.WithRows(historyRows(history)),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(historyTableStyles())
	return t
}

func (m *Model) applyHistoryTable(width, height int) {
	rows := historyRows(m.history)
	m.historyTable.SetRows(rows)
	if m.tableLayout.rowCount != len(rows) {
		m.historyTable.GotoTop()
	}
	m.tableLayout.rowCount = len(rows)
	m.tableLayout.width = 0
	m.setTableSize(width, height)
}

func (m *Model) setTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.tableLayout.width == width && m.tableLayout.height == viewportHeight {
		return
	}
	m.tableLayout.width = width
	m.tableLayout.height = viewportHeight
	m.historyTable.SetWidth(width)
	m.historyTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustTableHeight(height)
	if m.tableLayout.height != viewportHeight {
		m.tableLayout.height = viewportHeight
		m.historyTable.SetHeight(viewportHeight)
	}
}

func historyTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// adjustTableHeight corrects for the header border so the rendered table
// fills exactly bodyHeight lines.
func (m *Model) adjustTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.historyTable.Height()
	viewHeight := lipgloss.Height(m.historyTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	m.historyTable.SetHeight(height)
	viewHeight = lipgloss.Height(m.historyTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/stats"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
)

const (
	tabDay = iota
	tabMonth
	tabYear
	tabHistory
)

const (
	plotHeight = 8
	dateLayout = "2006-01-02"
)

var (
	tabBorder      = lipgloss.RoundedBorder()
	activeNavStyle = lipgloss.NewStyle().Border(tabBorder, true).Padding(0, 1).
			BorderForeground(lipgloss.Color("#5FB3B3")).
			Foreground(lipgloss.Color("#EDEDED")).Bold(true)
	inactiveNavStyle = lipgloss.NewStyle().Border(tabBorder, true).Padding(0, 1).
				BorderForeground(lipgloss.Color("#3C4A4A")).
				Foreground(lipgloss.Color("#9AA5A5"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A8585"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
	cardStyle       = lipgloss.NewStyle().Border(tabBorder, true).Padding(0, 1).BorderForeground(lipgloss.Color("#3C4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7A8585"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EDEDED")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B4BEBE"))
	modalStyle      = lipgloss.NewStyle().Border(tabBorder, true).Padding(1, 2).BorderForeground(lipgloss.Color("#5FB3B3"))
)

// Source provides the feeding history to summarize.
type Source interface {
	History(ctx context.Context) ([]model.Unit, error)
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	source Source
	cfg    model.StatsConfig

	history []model.Unit
	report  stats.Report
	errMsg  string

	tabs         []string
	activeTab    int
	viewports    []viewport.Model
	historyTable table.Model
	tableLayout  tableLayout

	width  int
	height int

	dateMode  bool
	dateInput textinput.Model
	dateError string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a stats UI model. A zero cfg.Date means today.
func NewModel(src Source, cfg model.StatsConfig) *Model {
	if cfg.Date.IsZero() {
		cfg.Date = time.Now()
	}
	m := &Model{
		source: src,
		cfg:    cfg,
		tabs:   []string{"Day", "Month", "Year", "History"},
	}
	m.initDateInput()
	m.historyTable = buildHistoryTable(nil, 0, 1)
	m.initViewports()
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.dateMode {
			return m.updateDateInput(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		if m.activeTab == tabHistory {
			m.historyTable.Focus()
		} else {
			m.historyTable.Blur()
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "[", "p":
			m.shiftDate(-1)
			return m, nil
		case "]", "n":
			m.shiftDate(1)
			return m, nil
		case "t":
			m.cfg.Date = time.Now()
			m.refreshReport()
			return m, nil
		case "r":
			m.reload()
			return m, nil
		case "/":
			return m.startDateInput()
		case "g", "home":
			if m.activeTab == tabHistory {
				m.historyTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabHistory {
				m.historyTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabHistory {
				var cmd tea.Cmd
				m.historyTable, cmd = m.historyTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.dateMode {
		return fitLines(m.renderDateModal(), m.width, m.height)
	}
	hh, bh, fh := m.layoutHeights()
	return lipgloss.JoinVertical(lipgloss.Left,
		fitLines(m.renderHeader(), m.width, hh),
		fitLines(m.renderBody(bh), m.width, bh),
		fitLines(m.renderFooter(), m.width, fh),
	)
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, tabHistory)
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initDateInput() {
	input := textinput.New()
	input.Prompt = "Date: "
	input.Placeholder = dateLayout
	input.CharLimit = len(dateLayout)
	input.Cursor.SetMode(cursor.CursorBlink)
	m.dateInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	// Tabs plus the date summary line.
	headerHeight = maxInt(1, lipgloss.Height(activeNavStyle.Render("X"))) + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight = 2
	}
	bodyHeight = maxInt(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setTableSize(m.width, vpHeight)
	m.dateInput.Width = maxInt(10, modalInnerWidth(m.width)-lipgloss.Width(m.dateInput.Prompt))
}

func (m *Model) moveTab(delta int) {
	if len(m.tabs) == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
	if m.activeTab == tabHistory {
		m.historyTable.Focus()
	} else {
		m.historyTable.Blur()
	}
}

// shiftDate moves the selected date by one unit of the active tab.
func (m *Model) shiftDate(delta int) {
	switch m.activeTab {
	case tabMonth:
		m.cfg.Date = addMonths(m.cfg.Date, delta)
	case tabYear:
		m.cfg.Date = m.cfg.Date.AddDate(delta, 0, 0)
	default:
		m.cfg.Date = m.cfg.Date.AddDate(0, 0, delta)
	}
	m.refreshReport()
}

// addMonths clamps to the last day of the target month instead of
// overflowing into the next one.
func addMonths(t time.Time, delta int) time.Time {
	y, mo, d := t.Date()
	first := time.Date(y, mo, 1, t.Hour(), t.Minute(), 0, 0, t.Location()).AddDate(0, delta, 0)
	if last := stats.DaysIn(first.Month(), first.Year(), t.Location()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func (m *Model) renderTabs() string {
	rendered := make([]string, len(m.tabs))
	for i, tab := range m.tabs {
		style := inactiveNavStyle
		if i == m.activeTab {
			style = activeNavStyle
		}
		rendered[i] = style.Render(tab)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *Model) renderHeader() string {
	return padLines(m.renderTabs()+"\n"+m.renderDateSummary(), m.width)
}

func (m *Model) renderDateSummary() string {
	summary := fmt.Sprintf("Date: %s  Feeds recorded: %d", m.cfg.Date.Format("Mon Jan 2 2006"), len(m.history))
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Date: [/]  Today: t  Go to: /  Reload: r  Scroll: up/down  Quit: q"
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFooter() string {
	footer := m.renderHelp()
	if m.errMsg != "" {
		footer += "\n" + errorStyle.Render(truncateLine(m.errMsg, m.width))
	}
	return footer
}

func (m *Model) renderBody(height int) string {
	if m.activeTab == tabHistory {
		if len(m.history) == 0 {
			return fitLines("No feeds recorded.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.historyTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

// reload re-reads history from the source and rebuilds every tab.
func (m *Model) reload() {
	history, err := m.source.History(context.Background())
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.history = committed(history)
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyHistoryTable(width, bodyHeight)
	m.refreshReport()
}

func (m *Model) refreshReport() {
	m.report = stats.BuildReport(m.history, m.cfg)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 || m.errMsg != "" {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	opts := stats.RenderOptions{Width: width, Height: plotHeight, Color: true}
	m.viewports[tabDay].SetContent(renderDay(m.report, opts))
	m.viewports[tabMonth].SetContent(renderMonth(m.report, opts))
	m.viewports[tabYear].SetContent(renderYear(m.report, opts))
}

func renderDay(r stats.Report, opts stats.RenderOptions) string {
	d := r.Hourly.DailyStats
	cards := []string{
		metricCard("Feeds", fmt.Sprintf("%d", d.TotalFeeds)),
		metricCard("Total", timefmt.Minutes(d.TotalTime)),
		metricCard("Average", timefmt.Clock(d.AvgDuration)),
		metricCard("Bottle", fmt.Sprintf("%.1f oz", d.BottleOz)),
	}
	return joinCards(cards, opts.Width) + "\n\n" + render(func(buf *bytes.Buffer) error {
		return stats.RenderHourly(buf, r.Date, r.Hourly, opts)
	})
}

func renderMonth(r stats.Report, opts stats.RenderOptions) string {
	return render(func(buf *bytes.Buffer) error {
		return stats.RenderMonthly(buf, r.Date.Month(), r.Date.Year(), r.Monthly, opts)
	})
}

func renderYear(r stats.Report, opts stats.RenderOptions) string {
	return render(func(buf *bytes.Buffer) error {
		return stats.RenderYearly(buf, r.Date.Year(), r.Yearly, opts)
	})
}

func render(fn func(buf *bytes.Buffer) error) string {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return fmt.Sprintf("Failed to render stats: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func joinCards(cards []string, width int) string {
	if width < 60 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func committed(history []model.Unit) []model.Unit {
	out := make([]model.Unit, 0, len(history))
	for _, u := range history {
		if u.IsPending() {
			continue
		}
		out = append(out, u)
	}
	return out
}

func (m *Model) startDateInput() (tea.Model, tea.Cmd) {
	m.dateMode = true
	m.dateError = ""
	m.dateInput.SetValue(m.cfg.Date.Format(dateLayout))
	return m, m.dateInput.Focus()
}

func (m *Model) updateDateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.dateMode = false
		m.dateError = ""
		m.dateInput.Blur()
		return m, nil
	case tea.KeyEnter:
		parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(m.dateInput.Value()), time.Local)
		if err != nil {
			m.dateError = "invalid date (expected YYYY-MM-DD)"
			return m, nil
		}
		m.cfg.Date = parsed.Add(12 * time.Hour)
		m.dateMode = false
		m.dateError = ""
		m.dateInput.Blur()
		m.refreshReport()
		return m, nil
	}
	var cmd tea.Cmd
	m.dateInput, cmd = m.dateInput.Update(msg)
	return m, cmd
}

func (m *Model) renderDateModal() string {
	body := []string{
		cardValueStyle.Render("Go to date"),
		m.dateInput.View(),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	if m.dateError != "" {
		body = append(body, errorStyle.Render(m.dateError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

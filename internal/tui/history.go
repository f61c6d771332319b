package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
)

// renderHistory renders one line per unit and keeps the selected line in
// view when the list is taller than height.
func renderHistory(units []model.UnitView, selected, width, height int) []string {
	if len(units) == 0 {
		return []string{mutedStyle.Render("No feeds yet.")}
	}
	if height < 1 {
		height = 1
	}
	start := 0
	if selected >= height {
		start = selected - height + 1
	}
	end := start + height
	if end > len(units) {
		end = len(units)
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		line := historyLine(units[i])
		if width > 2 {
			line = truncate(line, width-2)
		}
		switch {
		case i == selected:
			line = selectedStyle.Render("> " + line)
		case units[i].Active:
			line = activeRowStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return lines
}

func historyLine(u model.UnitView) string {
	at := timefmt.ClockTime(u.StartTime().Time())
	if u.IsBottle() {
		return fmt.Sprintf("%s  Bottle %.1f oz", at, u.VolumeOz)
	}
	parts := make([]string, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		parts = append(parts, s.Side.Short()+" "+timefmt.Clock(s.Duration))
	}
	line := fmt.Sprintf("%s  %s", at, strings.Join(parts, " + "))
	switch {
	case u.Paused:
		line += "  (paused)"
	case u.Active:
		line += "  (feeding)"
	case len(u.Sessions) > 1:
		line += "  = " + timefmt.Clock(u.TotalDuration())
	}
	return line
}

func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

func parseOunces(value string) (float64, error) {
	value = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(value)), "oz")
	oz, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("enter ounces such as 4 or 3.5")
	}
	return oz, nil
}

// parseDurations reads n space-separated MM:SS or plain-minute values.
func parseDurations(value string, n int) ([]int, error) {
	fields := strings.Fields(value)
	if len(fields) != n {
		return nil, fmt.Errorf("enter %d duration(s) as MM:SS", n)
	}
	out := make([]int, 0, n)
	for _, f := range fields {
		secs, err := parseClock(f)
		if err != nil {
			return nil, err
		}
		out = append(out, secs)
	}
	return out, nil
}

func parseClock(value string) (int, error) {
	mins, secs, found := strings.Cut(value, ":")
	m, err := strconv.Atoi(mins)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	s := 0
	if found {
		s, err = strconv.Atoi(secs)
		if err != nil || s < 0 || s > 59 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
	}
	return m*60 + s, nil
}

func editPrompt(u model.UnitView) string {
	if u.IsBottle() {
		return "Ounces: "
	}
	sides := make([]string, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		sides = append(sides, s.Side.Short())
	}
	return strings.Join(sides, " ") + " (MM:SS): "
}

func editValue(u model.UnitView) string {
	if u.IsBottle() {
		return strconv.FormatFloat(u.VolumeOz, 'f', -1, 64)
	}
	parts := make([]string, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		parts = append(parts, fmt.Sprintf("%d:%02d", s.Duration/60, s.Duration%60))
	}
	return strings.Join(parts, " ")
}

func formatDelay(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
	"github.com/verte-zerg/tuifeed/internal/timefmt"
)

const sparkChars = " .:-=+*#%@"

// RenderOptions sizes charts. Zero values use terminal defaults.
type RenderOptions struct {
	Width  int
	Height int
	Color  bool
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderDaily prints the day summary as a two-column table.
func RenderDaily(w io.Writer, title string, d DailyStats) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if d.TotalFeeds == 0 {
		_, err := fmt.Fprintln(w, "No feeds recorded.")
		return err
	}
	tbl := summaryTable()
	tbl.add("Feeds", fmt.Sprintf("%d", d.TotalFeeds))
	tbl.add("Total time", timefmt.Minutes(d.TotalTime))
	tbl.add("Left", timefmt.Minutes(d.LeftTime))
	tbl.add("Right", timefmt.Minutes(d.RightTime))
	tbl.add("Average", timefmt.Clock(d.AvgDuration))
	tbl.add("Longest", timefmt.Clock(d.LongestFeed))
	tbl.add("Shortest", timefmt.Clock(d.ShortestFeed))
	if d.BottleFeeds > 0 {
		tbl.add("Bottle", fmt.Sprintf("%d (%.1f oz)", d.BottleFeeds, d.BottleOz))
	}
	return tbl.writeTo(w)
}

// RenderHourly prints the day summary, the 3-hour block table and a chart.
func RenderHourly(w io.Writer, date time.Time, h HourlyStats, opts RenderOptions) error {
	if err := RenderDaily(w, date.Format("Monday, Jan 2 2006"), h.DailyStats); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}

	tbl := newTable(left("Block"), right("Feeds"), right("Time"), right("Bottle"))
	bars := make([]Bar, 0, len(h.Blocks))
	for _, b := range h.Blocks {
		tbl.add(b.Label, fmt.Sprintf("%d", b.FeedCount), timefmt.Minutes(b.Duration), fmt.Sprintf("%.1f oz", b.BottleOz))
		bars = append(bars, Bar{Label: b.Label, Value: float64(b.FeedCount)})
	}
	if err := tbl.writeTo(w); err != nil {
		return err
	}
	if h.MostActiveBlock != "" {
		if _, err := fmt.Fprintf(w, "Most active: %s\n", h.MostActiveBlock); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return PlotBarsWithColor(w, "Feeds per block", bars, opts.Width, opts.Height, 0, opts.Color)
}

// RenderMonthly prints month totals, a per-day chart and a 7-day trend.
func RenderMonthly(w io.Writer, month time.Month, year int, m MonthlyStats, opts RenderOptions) error {
	if _, err := fmt.Fprintf(w, "%s %d\n", month, year); err != nil {
		return err
	}
	if m.TotalFeeds == 0 {
		_, err := fmt.Fprintln(w, "No feeds recorded.")
		return err
	}
	tbl := summaryTable()
	tbl.add("Feeds", fmt.Sprintf("%d", m.TotalFeeds))
	tbl.add("Avg per day", fmt.Sprintf("%.1f", m.AvgFeedsPerDay))
	tbl.add("Total time", timefmt.Minutes(m.TotalTime))
	tbl.add("Left / Right", timefmt.Minutes(m.LeftTime)+" / "+timefmt.Minutes(m.RightTime))
	tbl.add("Bottle", fmt.Sprintf("%.1f oz", m.BottleOz))
	tbl.add("Most active", fmt.Sprintf("day %d", m.MostActiveDay))
	if err := tbl.writeTo(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}

	counts := make([]float64, len(m.DailyTotals))
	bars := make([]Bar, len(m.DailyTotals))
	minutes := make([]Bar, len(m.DailyTotals))
	for i, d := range m.DailyTotals {
		counts[i] = float64(d.FeedCount)
		bars[i] = Bar{Label: fmt.Sprintf("%d", d.Day), Value: counts[i]}
		minutes[i] = Bar{Label: bars[i].Label, Value: math.Round(float64(d.TotalDurationSeconds) / 60)}
	}
	if err := PlotBarsWithColor(w, "Feeds per day", bars, opts.Width, opts.Height, 0, opts.Color); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if err := PlotBarsWithColor(w, "Minutes per day", minutes, opts.Width, opts.Height, 1, opts.Color); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n7-day trend: %s\n", Sparkline(MovingAverage(counts, 7)))
	return err
}

// RenderYearly prints year totals and a per-month chart.
func RenderYearly(w io.Writer, year int, y YearlyStats, opts RenderOptions) error {
	if _, err := fmt.Fprintf(w, "%d\n", year); err != nil {
		return err
	}
	if y.TotalFeeds == 0 {
		_, err := fmt.Fprintln(w, "No feeds recorded.")
		return err
	}
	tbl := summaryTable()
	tbl.add("Feeds", fmt.Sprintf("%d", y.TotalFeeds))
	tbl.add("Avg per month", fmt.Sprintf("%.1f", y.AvgFeedsPerMonth))
	tbl.add("Total time", timefmt.Minutes(y.TotalTime))
	tbl.add("Left / Right", timefmt.Minutes(y.LeftTime)+" / "+timefmt.Minutes(y.RightTime))
	tbl.add("Bottle", fmt.Sprintf("%.1f oz", y.BottleOz))
	tbl.add("Most active", y.MostActiveMonth)
	if err := tbl.writeTo(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	bars := make([]Bar, len(y.MonthlyTotals))
	for i, m := range y.MonthlyTotals {
		bars[i] = Bar{Label: m.Label, Value: float64(m.FeedCount)}
	}
	return PlotBarsWithColor(w, "Feeds per month", bars, opts.Width, opts.Height, 2, opts.Color)
}

// RenderHistory prints up to limit units, newest first. A limit of 0 prints all.
func RenderHistory(w io.Writer, history []model.Unit, limit int) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "No feeds recorded.")
		return err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	tbl := newTable(left("Started"), left("Ended"), left("Feed"), right("Left"), right("Right"), right("Total"), left("ID"))
	for _, u := range history {
		tbl.add(historyRow(u)...)
	}
	return tbl.writeTo(w)
}

func historyRow(u model.Unit) []string {
	started := u.StartTime().Time().Format("Jan 02 15:04")
	ended := u.EndTime.Time().Format("15:04")
	switch {
	case u.IsBottle():
		return []string{started, ended, fmt.Sprintf("Bottle %.1f oz", u.VolumeOz), "", "", "", u.ID}
	case u.IsPending():
		return []string{started, "", "In progress", "", "", "", u.ID}
	}
	sides := make([]string, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		sides = append(sides, s.Side.Short())
	}
	return []string{
		started,
		ended,
		"Breast " + strings.Join(sides, "+"),
		timefmt.Clock(u.SideDuration(model.SideLeft)),
		timefmt.Clock(u.SideDuration(model.SideRight)),
		timefmt.Clock(u.TotalDuration()),
		u.ID,
	}
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

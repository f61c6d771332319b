package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
)

func sampleHistory() []model.Unit {
	return []model.Unit{
		bottle("b1", at(2025, 6, 10, 22, 0), 3),
		breast("u2", at(2025, 6, 10, 13, 10),
			model.Session{Side: model.SideLeft, Duration: 600, EndTime: at(2025, 6, 10, 13, 0)},
			model.Session{Side: model.SideRight, Duration: 420, EndTime: at(2025, 6, 10, 13, 10)},
		),
		breast("u1", at(2025, 6, 10, 2, 0),
			model.Session{Side: model.SideRight, Duration: 900, EndTime: at(2025, 6, 10, 2, 0)},
		),
		breast("u0", at(2025, 4, 1, 2, 0),
			model.Session{Side: model.SideLeft, Duration: 300, EndTime: at(2025, 4, 1, 2, 0)},
		),
	}
}

func TestBuildReport(t *testing.T) {
	date := time.Date(2025, 6, 10, 12, 0, 0, 0, loc)
	report := BuildReport(sampleHistory(), model.StatsConfig{Date: date})

	if report.Hourly.TotalFeeds != 3 {
		t.Fatalf("expected 3 feeds today, got %d", report.Hourly.TotalFeeds)
	}
	if report.Monthly.TotalFeeds != 3 || report.Monthly.MostActiveDay != 10 {
		t.Fatalf("unexpected monthly stats: %+v", report.Monthly)
	}
	if report.Yearly.TotalFeeds != 4 || report.Yearly.MostActiveMonth != "Jun" {
		t.Fatalf("unexpected yearly stats: %+v", report.Yearly)
	}
}

func TestRenderViews(t *testing.T) {
	date := time.Date(2025, 6, 10, 12, 0, 0, 0, loc)
	report := BuildReport(sampleHistory(), model.StatsConfig{Date: date})
	opts := RenderOptions{Width: 60, Height: 3}

	var buf bytes.Buffer
	if err := RenderHourly(&buf, date, report.Hourly, opts); err != nil {
		t.Fatalf("render hourly: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Tuesday, Jun 10 2025", "Feeds", "Bottle", "1 (3.0 oz)", "Most active:", "Feeds per block"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in hourly output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderMonthly(&buf, date.Month(), date.Year(), report.Monthly, opts); err != nil {
		t.Fatalf("render monthly: %v", err)
	}
	out = buf.String()
	for _, want := range []string{"June 2025", "Avg per day", "3.0", "day 10", "7-day trend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in monthly output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := RenderYearly(&buf, 2025, report.Yearly, opts); err != nil {
		t.Fatalf("render yearly: %v", err)
	}
	if !strings.Contains(buf.String(), "Feeds per month") {
		t.Fatalf("expected chart in yearly output:\n%s", buf.String())
	}
}

func TestRenderEmptyViews(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderMonthly(&buf, time.March, 2025, CalculateMonthlyStats(nil, time.March, 2025, loc), RenderOptions{}); err != nil {
		t.Fatalf("render monthly: %v", err)
	}
	if !strings.Contains(buf.String(), "No feeds recorded.") {
		t.Fatalf("expected empty message, got %q", buf.String())
	}
}

func TestRenderHistory(t *testing.T) {
	history := append([]model.Unit{model.NewPendingUnit(model.SideLeft, at(2025, 6, 11, 1, 0))}, sampleHistory()...)
	var buf bytes.Buffer
	if err := RenderHistory(&buf, history, 3); err != nil {
		t.Fatalf("render history: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "In progress") {
		t.Fatalf("expected pending row first, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "Bottle 3.0 oz") {
		t.Fatalf("expected bottle row, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Breast L+R") {
		t.Fatalf("expected paired breast row, got %q", lines[3])
	}
}

func TestSparklineAndMovingAverage(t *testing.T) {
	if got := Sparkline([]float64{1, 1, 1}); got != "+++" {
		t.Fatalf("flat sparkline: %q", got)
	}
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("range sparkline: %q", got)
	}
	avg := MovingAverage([]float64{2, 4, 6}, 2)
	if avg[0] != 2 || avg[1] != 3 || avg[2] != 5 {
		t.Fatalf("unexpected moving average %v", avg)
	}
}

package stats

import (
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Date    time.Time
	Hourly  HourlyStats
	Monthly MonthlyStats
	Yearly  YearlyStats
}

// BuildReport aggregates history around cfg.Date for every stats view.
func BuildReport(history []model.Unit, cfg model.StatsConfig) Report {
	date := cfg.Date
	if date.IsZero() {
		date = time.Now()
	}
	loc := date.Location()
	return Report{
		Date:    date,
		Hourly:  CalculateHourlyStats(history, date),
		Monthly: CalculateMonthlyStats(history, date.Month(), date.Year(), loc),
		Yearly:  CalculateYearlyStats(history, date.Year(), loc),
	}
}

// Package stats contains feeding statistics calculations and reporting.
package stats

import (
	"math"
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
)

// DailyStats summarizes one local calendar day. Durations are in seconds.
type DailyStats struct {
	TotalFeeds   int
	TotalTime    int
	LeftTime     int
	RightTime    int
	AvgDuration  int
	LongestFeed  int
	ShortestFeed int
	BottleFeeds  int
	BottleOz     float64
}

// Block is one of eight 3-hour windows of a day.
type Block struct {
	Label     string
	StartHour int
	EndHour   int
	FeedCount int
	Duration  int
	BottleOz  float64
}

// HourlyStats is a day split into 3-hour blocks. MostActiveBlock is empty
// when no block has feeds.
type HourlyStats struct {
	DailyStats
	Blocks          []Block
	MostActiveBlock string
}

// DayTotal is one day-of-month bucket.
type DayTotal struct {
	Day                  int
	FeedCount            int
	TotalDurationSeconds int
	BottleOz             float64
}

// MonthlyStats summarizes one month. MostActiveDay is 0 when empty.
type MonthlyStats struct {
	TotalFeeds     int
	TotalTime      int
	LeftTime       int
	RightTime      int
	BottleOz       float64
	AvgFeedsPerDay float64
	MostActiveDay  int
	DailyTotals    []DayTotal
}

// MonthTotal is one month-of-year bucket.
type MonthTotal struct {
	Month                time.Month
	Label                string
	FeedCount            int
	TotalDurationSeconds int
	BottleOz             float64
}

// YearlyStats summarizes one year. MostActiveMonth is empty when no feeds.
type YearlyStats struct {
	TotalFeeds       int
	TotalTime        int
	LeftTime         int
	RightTime        int
	BottleOz         float64
	AvgFeedsPerMonth float64
	MostActiveMonth  string
	MonthlyTotals    []MonthTotal
}

var blockLabels = [8]string{
	"12-3am", "3-6am", "6-9am", "9-12pm",
	"12-3pm", "3-6pm", "6-9pm", "9-12am",
}

// CalculateDailyStats aggregates units that ended on date's local day.
// The day is taken in date's location.
func CalculateDailyStats(history []model.Unit, date time.Time) DailyStats {
	var out DailyStats
	for _, u := range unitsOnDay(history, date) {
		duration := u.TotalDuration()
		if out.TotalFeeds == 0 || duration > out.LongestFeed {
			out.LongestFeed = duration
		}
		if out.TotalFeeds == 0 || duration < out.ShortestFeed {
			out.ShortestFeed = duration
		}
		out.TotalFeeds++
		out.TotalTime += duration
		out.LeftTime += u.SideDuration(model.SideLeft)
		out.RightTime += u.SideDuration(model.SideRight)
		if u.IsBottle() {
			out.BottleFeeds++
			out.BottleOz += u.BottleOz()
		}
	}
	if out.TotalFeeds > 0 {
		out.AvgDuration = int(math.Round(float64(out.TotalTime) / float64(out.TotalFeeds)))
	}
	out.BottleOz = round1(out.BottleOz)
	return out
}

// CalculateHourlyStats buckets date's units into 3-hour windows from local
// midnight.
func CalculateHourlyStats(history []model.Unit, date time.Time) HourlyStats {
	out := HourlyStats{
		DailyStats: CalculateDailyStats(history, date),
		Blocks:     make([]Block, len(blockLabels)),
	}
	for i, label := range blockLabels {
		out.Blocks[i] = Block{Label: label, StartHour: i * 3, EndHour: i*3 + 3}
	}
	for _, u := range unitsOnDay(history, date) {
		idx := u.EndTime.Time().In(date.Location()).Hour() / 3
		b := &out.Blocks[idx]
		b.FeedCount++
		b.Duration += u.TotalDuration()
		b.BottleOz += u.BottleOz()
	}
	maxFeeds := 0
	for i := range out.Blocks {
		out.Blocks[i].BottleOz = round1(out.Blocks[i].BottleOz)
		if out.Blocks[i].FeedCount > maxFeeds {
			maxFeeds = out.Blocks[i].FeedCount
			out.MostActiveBlock = out.Blocks[i].Label
		}
	}
	return out
}

// CalculateMonthlyStats aggregates a calendar month in loc. The daily
// average divides by days that had at least one feed.
func CalculateMonthlyStats(history []model.Unit, month time.Month, year int, loc *time.Location) MonthlyStats {
	if loc == nil {
		loc = time.Local
	}
	days := DaysIn(month, year, loc)
	out := MonthlyStats{DailyTotals: make([]DayTotal, days)}
	for i := range out.DailyTotals {
		out.DailyTotals[i].Day = i + 1
	}
	for _, u := range history {
		if u.IsPending() {
			continue
		}
		at := u.EndTime.Time().In(loc)
		if at.Year() != year || at.Month() != month {
			continue
		}
		out.TotalFeeds++
		out.TotalTime += u.TotalDuration()
		out.LeftTime += u.SideDuration(model.SideLeft)
		out.RightTime += u.SideDuration(model.SideRight)
		out.BottleOz += u.BottleOz()

		d := &out.DailyTotals[at.Day()-1]
		d.FeedCount++
		d.TotalDurationSeconds += u.TotalDuration()
		d.BottleOz += u.BottleOz()
	}

	activeDays, maxFeeds := 0, 0
	for i := range out.DailyTotals {
		d := &out.DailyTotals[i]
		d.BottleOz = round1(d.BottleOz)
		if d.FeedCount == 0 {
			continue
		}
		activeDays++
		if d.FeedCount > maxFeeds {
			maxFeeds = d.FeedCount
			out.MostActiveDay = d.Day
		}
	}
	if activeDays > 0 {
		out.AvgFeedsPerDay = round1(float64(out.TotalFeeds) / float64(activeDays))
	}
	out.BottleOz = round1(out.BottleOz)
	return out
}

// CalculateYearlyStats aggregates a calendar year in loc. The monthly
// average divides by months that had at least one feed.
func CalculateYearlyStats(history []model.Unit, year int, loc *time.Location) YearlyStats {
	if loc == nil {
		loc = time.Local
	}
	out := YearlyStats{MonthlyTotals: make([]MonthTotal, 12)}
	for i := range out.MonthlyTotals {
		m := time.Month(i + 1)
		out.MonthlyTotals[i] = MonthTotal{Month: m, Label: m.String()[:3]}
	}
	for _, u := range history {
		if u.IsPending() {
			continue
		}
		at := u.EndTime.Time().In(loc)
		if at.Year() != year {
			continue
		}
		out.TotalFeeds++
		out.TotalTime += u.TotalDuration()
		out.LeftTime += u.SideDuration(model.SideLeft)
		out.RightTime += u.SideDuration(model.SideRight)
		out.BottleOz += u.BottleOz()

		m := &out.MonthlyTotals[at.Month()-1]
		m.FeedCount++
		m.TotalDurationSeconds += u.TotalDuration()
		m.BottleOz += u.BottleOz()
	}

	activeMonths, maxFeeds := 0, 0
	for i := range out.MonthlyTotals {
		m := &out.MonthlyTotals[i]
		m.BottleOz = round1(m.BottleOz)
		if m.FeedCount == 0 {
			continue
		}
		activeMonths++
		if m.FeedCount > maxFeeds {
			maxFeeds = m.FeedCount
			out.MostActiveMonth = m.Label
		}
	}
	if activeMonths > 0 {
		out.AvgFeedsPerMonth = round1(float64(out.TotalFeeds) / float64(activeMonths))
	}
	out.BottleOz = round1(out.BottleOz)
	return out
}

// DaysIn returns the length of month in year, leap years included.
func DaysIn(month time.Month, year int, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, month+1, 0, 12, 0, 0, 0, loc).Day()
}

func unitsOnDay(history []model.Unit, date time.Time) []model.Unit {
	loc := date.Location()
	y, m, d := date.Date()
	out := make([]model.Unit, 0, len(history))
	for _, u := range history {
		if u.IsPending() {
			continue
		}
		uy, um, ud := u.EndTime.Time().In(loc).Date()
		if uy == y && um == m && ud == d {
			out = append(out, u)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Package ics writes single-event iCalendar files for feed reminders.
package ics

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	prodID          = "-//Baby Feed Tracker//EN"
	uidDomain       = "babyfeedtracker.local"
	dateLayout      = "20060102T150405Z"
	DefaultDuration = 15 * time.Minute
	DefaultFilename = "feed-reminder.ics"
	DefaultDetails  = "Created by Baby Feed Tracker"
	maxLineOctets   = 75
)

// Event is one calendar entry.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
	// RRule is an RRULE value such as FREQ=HOURLY;INTERVAL=3;COUNT=8.
	RRule string
	// Alarm, when set, adds a display alarm this long before Start.
	Alarm *time.Duration
	// Stamp is the creation instant used for DTSTAMP and UID.
	Stamp time.Time
}

// HourlyRule repeats every interval hours, count times. Both are at least 1.
func HourlyRule(interval, count int) string {
	interval, count = max(interval, 1), max(count, 1)
	return fmt.Sprintf("FREQ=HOURLY;INTERVAL=%d;COUNT=%d", interval, count)
}

// Filename names the exported file after its repeat rule.
func Filename(interval, count int) string {
	if interval <= 0 || count <= 0 {
		return DefaultFilename
	}
	return fmt.Sprintf("feed-reminder-%dh-x%d.ics", interval, count)
}

// Write renders ev as a VCALENDAR with CRLF line endings.
func Write(w io.Writer, ev Event) error {
	if ev.Duration <= 0 {
		ev.Duration = DefaultDuration
	}
	if ev.Stamp.IsZero() {
		ev.Stamp = time.Now()
	}
	if ev.Description == "" {
		ev.Description = DefaultDetails
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + strconv.FormatInt(ev.Stamp.UnixMilli(), 10) + "@" + uidDomain,
		"DTSTAMP:" + formatDate(ev.Stamp),
		"DTSTART:" + formatDate(ev.Start),
		"DTEND:" + formatDate(ev.Start.Add(ev.Duration)),
		"SUMMARY:" + Escape(ev.Title),
		"DESCRIPTION:" + Escape(ev.Description),
	}
	if ev.RRule != "" {
		lines = append(lines, "RRULE:"+ev.RRule)
	}
	if ev.Alarm != nil {
		lines = append(lines,
			"BEGIN:VALARM",
			"ACTION:DISPLAY",
			"DESCRIPTION:"+Escape(ev.Title),
			"TRIGGER:"+trigger(*ev.Alarm),
			"END:VALARM",
		)
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(fold(line) + "\r\n"); err != nil {
			return fmt.Errorf("failed to write calendar: %w", err)
		}
	}
	return bw.Flush()
}

// Escape quotes text values.
func Escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return r.Replace(s)
}

// GoogleCalendarURL builds a prefilled "add event" link.
func GoogleCalendarURL(title string, start time.Time, duration time.Duration, details string) string {
	if duration <= 0 {
		duration = DefaultDuration
	}
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", title)
	q.Set("dates", formatDate(start)+"/"+formatDate(start.Add(duration)))
	if details != "" {
		q.Set("details", details)
	}
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func trigger(before time.Duration) string {
	minutes := int(before / time.Minute)
	if minutes <= 0 {
		return "PT0M"
	}
	return fmt.Sprintf("-PT%dM", minutes)
}

// fold splits lines longer than 75 octets, continuing with a space.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}
	var b strings.Builder
	limit := maxLineOctets
	width := 0
	for _, r := range line {
		size := len(string(r))
		if width+size > limit {
			b.WriteString("\r\n ")
			width = 1
			limit = maxLineOctets
		}
		b.WriteRune(r)
		width += size
	}
	return b.String()
}

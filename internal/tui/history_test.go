package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
)

func breastView(id string, durations ...int) model.UnitView {
	end := model.At(epoch)
	side := model.SideLeft
	u := model.Unit{ID: id}
	for _, d := range durations {
		u.Sessions = append(u.Sessions, model.Session{Side: side, Duration: d, EndTime: end})
		side = side.Opposite()
	}
	u.EndTime = end
	return model.UnitView{Unit: u}
}

func TestHistoryLine(t *testing.T) {
	line := historyLine(breastView("a", 600, 125))
	if !strings.Contains(line, "L 10:00 + R 02:05") || !strings.HasSuffix(line, "= 12:05") {
		t.Fatalf("unexpected line %q", line)
	}

	bottle := model.UnitView{Unit: model.Unit{ID: "b", Kind: model.KindBottle, VolumeOz: 3.5, EndTime: model.At(epoch)}}
	if line := historyLine(bottle); !strings.HasSuffix(line, "Bottle 3.5 oz") {
		t.Fatalf("unexpected bottle line %q", line)
	}

	live := breastView("c", 42)
	live.Active, live.Paused = true, true
	if line := historyLine(live); !strings.HasSuffix(line, "(paused)") {
		t.Fatalf("unexpected live line %q", line)
	}
}

func TestRenderHistoryKeepsSelectionVisible(t *testing.T) {
	units := make([]model.UnitView, 10)
	for i := range units {
		units[i] = breastView("u", 60*(i+1))
	}
	lines := renderHistory(units, 7, 80, 3)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[2], "> ") || !strings.Contains(lines[2], "08:00") {
		t.Fatalf("selected row should be last visible: %q", lines[2])
	}

	if got := renderHistory(nil, 0, 80, 3); len(got) != 1 || !strings.Contains(got[0], "No feeds yet.") {
		t.Fatalf("unexpected empty rendering %q", got)
	}
}

func TestParseDurations(t *testing.T) {
	got, err := parseDurations("5:30 4", 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[0] != 330 || got[1] != 240 {
		t.Fatalf("unexpected durations %v", got)
	}
	for _, bad := range []string{"5:30", "5:75 1", "x 1", "-1 2"} {
		if _, err := parseDurations(bad, 2); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseOunces(t *testing.T) {
	for in, want := range map[string]float64{"4": 4, "3.5oz": 3.5, " 2 OZ": 2} {
		got, err := parseOunces(in)
		if err != nil || got != want {
			t.Fatalf("parseOunces(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseOunces("four"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatDelay(t *testing.T) {
	cases := map[time.Duration]string{
		3 * time.Hour:                "3h",
		2*time.Hour + 30*time.Minute: "2h30m",
		45 * time.Minute:             "45m",
		0:                            "",
	}
	for in, want := range cases {
		if got := formatDelay(in); got != want {
			t.Fatalf("formatDelay(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 10); got != "abcdef" {
		t.Fatalf("short strings are kept, got %q", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
}

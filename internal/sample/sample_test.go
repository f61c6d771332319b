package sample

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/tuifeed/internal/model"
)

func TestGenerateShape(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	units := NewSeeded(7).Generate(now, 30)

	if len(units) < 29*8 || len(units) > 30*12 {
		t.Fatalf("unexpected unit count %d", len(units))
	}
	perDay := map[string]int{}
	for i, u := range units {
		if i > 0 && units[i-1].EndTime < u.EndTime {
			t.Fatalf("history not newest first at %d", i)
		}
		if u.EndTime > model.At(now) {
			t.Fatalf("future feed %v", u.EndTime.Time())
		}
		if !strings.HasPrefix(u.ID, "sample-") {
			t.Fatalf("unexpected id %q", u.ID)
		}
		if len(u.Sessions) != 2 || u.Sessions[0].Side != u.Sessions[1].Side.Opposite() {
			t.Fatalf("expected an opposite-side pair, got %+v", u.Sessions)
		}
		if u.Sessions[0].Duration < 600 || u.Sessions[0].Duration >= 1200 {
			t.Fatalf("first side out of range: %d", u.Sessions[0].Duration)
		}
		if u.EndTime != u.Sessions[1].EndTime {
			t.Fatalf("unit end must match last session")
		}
		perDay[u.EndTime.Time().UTC().Format("2006-01-02")]++
	}
	for day, n := range perDay {
		if day == "2025-06-10" {
			continue
		}
		// Late feeds can spill into the next day, so allow a little slack.
		if n < 6 || n > 14 {
			t.Fatalf("day %s has %d feeds", day, n)
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	a := NewSeeded(42).Generate(now, 5)
	b := NewSeeded(42).Generate(now, 5)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different history (-a +b):\n%s", diff)
	}
}

func TestGenerateDefaultsDays(t *testing.T) {
	now := time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC)
	units := NewSeeded(1).Generate(now, 0)
	oldest := units[len(units)-1].EndTime.Time()
	if now.Sub(oldest) < 88*24*time.Hour {
		t.Fatalf("expected about %d days of data, oldest is %v", DefaultDays, oldest)
	}
}

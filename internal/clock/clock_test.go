package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresInOrder(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(2*time.Minute, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Minute, func() { fired = append(fired, "a") })
	late := c.AfterFunc(time.Hour, func() { fired = append(fired, "late") })

	c.Advance(5 * time.Minute)
	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("unexpected fire order: %v", fired)
	}
	if got := c.Now(); !got.Equal(start.Add(5 * time.Minute)) {
		t.Fatalf("unexpected now: %v", got)
	}
	if !late.Stop() {
		t.Fatalf("expected late timer to be pending")
	}
	c.Advance(2 * time.Hour)
	if len(fired) != 2 {
		t.Fatalf("stopped timer fired: %v", fired)
	}
}

func TestFakeCallbackSeesDeadline(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var seen time.Time
	c.AfterFunc(30*time.Second, func() { seen = c.Now() })
	c.Advance(time.Minute)

	if !seen.Equal(start.Add(30 * time.Second)) {
		t.Fatalf("callback saw %v", seen)
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}

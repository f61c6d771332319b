// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MaxBottleOz bounds a single bottle feed.
	MaxBottleOz = 20.0
	// MaxSessionSeconds bounds a manually edited session duration.
	MaxSessionSeconds = 20 * 60
	// MillilitresPerOunce converts legacy volumeMl values.
	MillilitresPerOunce = 29.5735
	// PendingIDPrefix marks the wire id of a pending placeholder unit.
	PendingIDPrefix = "pending-"
)

// Side is the breast a session was fed on.
type Side string

// Known sides. SideUnknown is kept for malformed or bottle sessions.
const (
	SideUnknown Side = ""
	SideLeft    Side = "Left"
	SideRight   Side = "Right"
)

// Opposite returns the other side. Unknown stays unknown.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideUnknown
	}
}

// Valid reports whether s is Left or Right.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// Short returns a one-letter label.
func (s Side) Short() string {
	switch s {
	case SideLeft:
		return "L"
	case SideRight:
		return "R"
	default:
		return "?"
	}
}

// ParseSide accepts left/right in any case, or their first letter.
func ParseSide(value string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "l", "left":
		return SideLeft, nil
	case "r", "right":
		return SideRight, nil
	}
	return SideUnknown, fmt.Errorf("unknown side %q (use left or right)", value)
}

func normalizeSide(value string) Side {
	side, err := ParseSide(value)
	if err != nil {
		return SideUnknown
	}
	return side
}

// Timestamp is an absolute instant in milliseconds since the Unix epoch.
type Timestamp int64

// At converts t to a Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time converts the timestamp back to a time.Time in the local zone.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts))
}

// Add returns ts shifted by d.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return ts + Timestamp(d.Milliseconds())
}

// Sub returns the duration ts - other.
func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return time.Duration(ts-other) * time.Millisecond
}

// Session is one side's nursing interval or a bottle feed.
type Session struct {
	Side     Side      `json:"side,omitempty" yaml:"side,omitempty"`
	Duration int       `json:"duration" yaml:"duration"`
	EndTime  Timestamp `json:"endTime" yaml:"endTime"`
}

// FeedKind discriminates breast and bottle units.
type FeedKind int

const (
	KindBreast FeedKind = iota
	KindBottle
)

// UnitState discriminates committed units from pending placeholders.
type UnitState int

const (
	StateCommitted UnitState = iota
	StatePending
)

// Unit is one logical feeding event: one or two breast sessions or one bottle.
type Unit struct {
	ID       string
	State    UnitState
	Kind     FeedKind
	Sessions []Session
	EndTime  Timestamp
	VolumeOz float64
}

// PendingID builds the wire id for a placeholder started at start.
func PendingID(start Timestamp) string {
	return PendingIDPrefix + strconv.FormatInt(int64(start), 10)
}

// NewPendingUnit builds a placeholder with a single zero-duration session.
func NewPendingUnit(side Side, start Timestamp) Unit {
	return Unit{
		ID:       PendingID(start),
		State:    StatePending,
		Kind:     KindBreast,
		Sessions: []Session{{Side: side, Duration: 0, EndTime: start}},
		EndTime:  start,
	}
}

// IsPending reports whether u is a speculative placeholder.
func (u Unit) IsPending() bool {
	return u.State == StatePending
}

// IsBottle reports whether u is a bottle feed.
func (u Unit) IsBottle() bool {
	return u.Kind == KindBottle
}

// TotalDuration sums session durations in seconds.
func (u Unit) TotalDuration() int {
	total := 0
	for _, s := range u.Sessions {
		total += s.Duration
	}
	return total
}

// SideDuration sums durations of sessions on side.
func (u Unit) SideDuration(side Side) int {
	total := 0
	for _, s := range u.Sessions {
		if s.Side == side {
			total += s.Duration
		}
	}
	return total
}

// BottleOz returns the bottle volume, or 0 for breast units.
func (u Unit) BottleOz() float64 {
	if !u.IsBottle() {
		return 0
	}
	return u.VolumeOz
}

// StartTime estimates when the first session began.
func (u Unit) StartTime() Timestamp {
	if len(u.Sessions) == 0 {
		return u.EndTime
	}
	first := u.Sessions[0]
	return first.EndTime - Timestamp(first.Duration)*1000
}

// Clone returns a copy that shares no session storage with u.
func (u Unit) Clone() Unit {
	out := u
	out.Sessions = append([]Session(nil), u.Sessions...)
	return out
}

// UnitView is a unit decorated with ephemeral display state. Never persisted.
type UnitView struct {
	Unit
	Active bool
	Paused bool
}

// FeedType is the user's preferred input mode.
type FeedType string

const (
	FeedTypeBreast FeedType = "breast"
	FeedTypeBottle FeedType = "bottle"
)

// ParseFeedType normalizes a stored preference, defaulting to breast.
func ParseFeedType(value string) FeedType {
	if strings.EqualFold(strings.TrimSpace(value), string(FeedTypeBottle)) {
		return FeedTypeBottle
	}
	return FeedTypeBreast
}

// TimerSnapshot is the durable form of an active timer.
type TimerSnapshot struct {
	Side               Side       `json:"side"`
	Paused             bool       `json:"paused"`
	ElapsedBaseSeconds int        `json:"elapsedBaseSeconds"`
	StartedAt          *Timestamp `json:"startedAt"`
	PausedAt           *Timestamp `json:"pausedAt,omitempty"`
}

// Reminder is the single scheduled "next feed" reminder.
type Reminder struct {
	FireAt Timestamp
	Title  string
}

// TrackerConfig defines tracker behavior.
type TrackerConfig struct {
	MaxFeed         time.Duration
	AutoFinalize    time.Duration
	StaleAfter      time.Duration
	WatchInterval   time.Duration
	ReminderTitle   string
	DefaultReminder time.Duration
	WakeLock        bool
	Notifications   bool
}

// StatsConfig defines the initial view of the stats UI.
type StatsConfig struct {
	Date time.Time
}

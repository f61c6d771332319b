package model

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// wireUnit is the persisted shape of a unit, shared by JSON and YAML.
type wireUnit struct {
	ID       string    `json:"id" yaml:"id"`
	Type     string    `json:"type,omitempty" yaml:"type,omitempty"`
	VolumeOz *float64  `json:"volumeOz,omitempty" yaml:"volumeOz,omitempty"`
	Sessions []Session `json:"sessions" yaml:"sessions"`
	EndTime  Timestamp `json:"endTime" yaml:"endTime"`
}

// legacyUnit accepts every historical shape, including volumeMl and
// fractional timestamps.
type legacyUnit struct {
	ID       string          `json:"id" yaml:"id"`
	Type     string          `json:"type" yaml:"type"`
	VolumeOz *float64        `json:"volumeOz" yaml:"volumeOz"`
	VolumeMl *float64        `json:"volumeMl" yaml:"volumeMl"`
	Sessions []legacySession `json:"sessions" yaml:"sessions"`
	EndTime  float64         `json:"endTime" yaml:"endTime"`
}

type legacySession struct {
	Side     string  `json:"side" yaml:"side"`
	Duration float64 `json:"duration" yaml:"duration"`
	EndTime  float64 `json:"endTime" yaml:"endTime"`
}

func (u Unit) wire() wireUnit {
	w := wireUnit{
		ID:       u.ID,
		Sessions: u.Sessions,
		EndTime:  u.EndTime,
	}
	if w.Sessions == nil {
		w.Sessions = []Session{}
	}
	if u.IsPending() && !strings.HasPrefix(w.ID, PendingIDPrefix) {
		w.ID = PendingID(u.EndTime)
	}
	if u.IsBottle() {
		w.Type = "Bottle"
		oz := u.VolumeOz
		w.VolumeOz = &oz
	}
	return w
}

// MarshalJSON implements json.Marshaler.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.wire())
}

// UnmarshalJSON implements json.Unmarshaler and normalizes legacy fields.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var raw legacyUnit
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = raw.normalize()
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (u Unit) MarshalYAML() (interface{}, error) {
	return u.wire(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (u *Unit) UnmarshalYAML(node *yaml.Node) error {
	var raw legacyUnit
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*u = raw.normalize()
	return nil
}

func (raw legacyUnit) normalize() Unit {
	u := Unit{
		ID:       raw.ID,
		EndTime:  Timestamp(finiteOrZero(raw.EndTime)),
		Sessions: make([]Session, 0, len(raw.Sessions)),
	}
	if strings.HasPrefix(raw.ID, PendingIDPrefix) {
		u.State = StatePending
	}
	for _, s := range raw.Sessions {
		duration := int(finiteOrZero(s.Duration))
		if duration < 0 {
			duration = 0
		}
		u.Sessions = append(u.Sessions, Session{
			Side:     normalizeSide(s.Side),
			Duration: duration,
			EndTime:  Timestamp(finiteOrZero(s.EndTime)),
		})
	}
	if strings.EqualFold(strings.TrimSpace(raw.Type), "bottle") {
		u.Kind = KindBottle
		u.State = StateCommitted
		switch {
		case raw.VolumeOz != nil && !math.IsNaN(*raw.VolumeOz) && !math.IsInf(*raw.VolumeOz, 0):
			u.VolumeOz = ClampOunces(*raw.VolumeOz)
		case raw.VolumeMl != nil:
			u.VolumeOz = ClampOunces(finiteOrZero(*raw.VolumeMl) / MillilitresPerOunce)
		}
	}
	if u.EndTime == 0 && len(u.Sessions) > 0 {
		u.EndTime = u.Sessions[len(u.Sessions)-1].EndTime
	}
	return u
}

// ClampOunces bounds a bottle volume to [0, MaxBottleOz] at one decimal.
func ClampOunces(oz float64) float64 {
	if math.IsNaN(oz) || oz < 0 {
		return 0
	}
	if oz > MaxBottleOz {
		oz = MaxBottleOz
	}
	return math.Round(oz*10) / 10
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Trunc(v)
}

// DecodeHistory parses a persisted history list. Elements that cannot be
// decoded are skipped; only a non-array payload is an error.
func DecodeHistory(data []byte) ([]Unit, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	units := make([]Unit, 0, len(items))
	for _, item := range items {
		var u Unit
		if err := json.Unmarshal(item, &u); err != nil {
			continue
		}
		units = append(units, u)
	}
	return units, nil
}

// DecodeHistoryYAML parses a YAML history list with the same tolerance as
// DecodeHistory.
func DecodeHistoryYAML(data []byte) ([]Unit, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	units := make([]Unit, 0, len(nodes))
	for i := range nodes {
		var u Unit
		if err := nodes[i].Decode(&u); err != nil {
			continue
		}
		units = append(units, u)
	}
	return units, nil
}

// SortNewestFirst orders units by end time, newest first, keeping ties stable.
func SortNewestFirst(units []Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].EndTime > units[j].EndTime
	})
}

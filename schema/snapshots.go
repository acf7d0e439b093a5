package schema

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the complete visible match state published by the authority.
type Snapshot struct {
	PointsLocal      int           `json:"points_local"`
	PointsVisit      int           `json:"points_visit"`
	Time             string        `json:"time"`
	TimeStyle        TimeStyle     `json:"time_style"`
	Period           int           `json:"period"`
	Countdown        string        `json:"countdown"`
	FoulsLocal       int           `json:"fouls_local"`
	FoulsVisit       int           `json:"fouls_visit"`
	TeamLocal        TeamView      `json:"team_local"`
	TeamVisit        TeamView      `json:"team_visit"`
	GameType         *GameTypeView `json:"game_type,omitempty"`
	Selected         Selection     `json:"selected"`
	OperatorTheme    ThemeName     `json:"operator_theme"`
	DisplayTheme     ThemeName     `json:"display_theme"`
	OperatorTemplate TemplateID    `json:"operator_template,omitempty"`
	DisplayTemplate  TemplateID    `json:"display_template,omitempty"`
}

// TeamView describes a team as shown on the scoreboard.
type TeamView struct {
	Name           string `json:"name"`
	Logo           string `json:"logo,omitempty"`
	ColorPrimary   string `json:"color_primary,omitempty"`
	ColorSecondary string `json:"color_secondary,omitempty"`
}

// GameTypeView describes the rules preset of the running match.
type GameTypeView struct {
	Name                string      `json:"name"`
	Quarters            json.Number `json:"quarters,omitempty"`
	TimePerQuarter      json.Number `json:"time_per_quarter,omitempty"`
	RestBetweenQuarters json.Number `json:"rest_between_quarters,omitempty"`
	HalftimeRest        json.Number `json:"halftime_rest,omitempty"`
}

// Selection holds the identifiers chosen for the next match setup.
type Selection struct {
	Local    int `json:"local"`
	Visit    int `json:"visit"`
	GameType int `json:"game_type"`
}

// requiredSnapshotFields must be present in every state payload. The template
// fields and time_style are only published to the touch dashboard and default
// to empty and regular.
var requiredSnapshotFields = []string{
	"points_local",
	"points_visit",
	"time",
	"period",
	"countdown",
	"fouls_local",
	"fouls_visit",
	"team_local",
	"team_visit",
	"selected",
	"operator_theme",
	"display_theme",
}

// DecodeSnapshot parses a state payload. Partial or out-of-range payloads are
// rejected with ErrMalformedSnapshot so a snapshot is never applied half-way.
func DecodeSnapshot(payload []byte) (Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for _, key := range requiredSnapshotFields {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			return Snapshot{}, fmt.Errorf("%w: missing %s", ErrMalformedSnapshot, key)
		}
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if err := snap.normalize(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Encode returns the JSON form of the snapshot.
func (s Snapshot) Encode() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Snapshot) normalize() error {
	counters := []struct {
		name  string
		value int
	}{
		{"points_local", s.PointsLocal},
		{"points_visit", s.PointsVisit},
		{"period", s.Period},
		{"fouls_local", s.FoulsLocal},
		{"fouls_visit", s.FoulsVisit},
	}
	for _, c := range counters {
		if c.value < 0 {
			return fmt.Errorf("%w: negative %s", ErrMalformedSnapshot, c.name)
		}
	}
	switch s.TimeStyle {
	case "":
		s.TimeStyle = TimeRegular
	case TimeRegular, TimeCritical:
	default:
		return fmt.Errorf("%w: unknown time_style %q", ErrMalformedSnapshot, s.TimeStyle)
	}
	operator, ok := NormalizeThemeName(string(s.OperatorTheme))
	if !ok {
		return fmt.Errorf("%w: operator_theme: %w", ErrMalformedSnapshot, ErrInvalidTheme)
	}
	display, ok := NormalizeThemeName(string(s.DisplayTheme))
	if !ok {
		return fmt.Errorf("%w: display_theme: %w", ErrMalformedSnapshot, ErrInvalidTheme)
	}
	s.OperatorTheme = operator
	s.DisplayTheme = display
	return nil
}

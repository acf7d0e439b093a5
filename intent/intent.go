// Package intent defines the closed set of operator intents and the boundary
// parser that turns declared action markers into them.
package intent

import (
	"strconv"
	"strings"

	"pkt.systems/courtside/schema"
)

// Action is the marker name a control or shortcut declares.
type Action string

const (
	ActionStartPause          Action = "start-pause"
	ActionResetTime           Action = "reset-time"
	ActionNextPeriod          Action = "next-period"
	ActionStartCountdown      Action = "start-countdown"
	ActionSetCountdown        Action = "set-countdown"
	ActionScoreLocal          Action = "score-local"
	ActionScoreVisit          Action = "score-visit"
	ActionFoulLocal           Action = "foul-local"
	ActionFoulVisit           Action = "foul-visit"
	ActionCreateMatch         Action = "create-match"
	ActionSetOperatorTheme    Action = "set-operator-theme"
	ActionSetDisplayTheme     Action = "set-display-theme"
	ActionSetOperatorTemplate Action = "set-operator-template"
	ActionSetDisplayTemplate  Action = "set-display-template"
)

// Intent is one operator request. The set of implementations is closed.
type Intent interface {
	Action() Action
	intent()
}

// StartPause toggles the match clock.
type StartPause struct{}

// ResetTime resets the match clock for the current period.
type ResetTime struct{}

// NextPeriod advances to the next period.
type NextPeriod struct{}

// StartCountdown starts the pregame countdown.
type StartCountdown struct{}

// SetCountdown submits the countdown input. The text is read from the live
// control when the intent is dispatched.
type SetCountdown struct{}

// ScoreLocal adjusts the local score.
type ScoreLocal struct{ Delta int }

// ScoreVisit adjusts the visiting score.
type ScoreVisit struct{ Delta int }

// FoulLocal adjusts the local foul count.
type FoulLocal struct{ Delta int }

// FoulVisit adjusts the visiting foul count.
type FoulVisit struct{ Delta int }

// CreateMatch sets up the next match.
type CreateMatch struct {
	Local    int
	Visit    int
	GameType int
}

// SetOperatorTheme switches the operator console theme.
type SetOperatorTheme struct{ Theme schema.ThemeName }

// SetDisplayTheme switches the public display theme.
type SetDisplayTheme struct{ Theme schema.ThemeName }

// SetOperatorTemplate selects the operator template.
type SetOperatorTemplate struct{ ID schema.TemplateID }

// SetDisplayTemplate selects the display template.
type SetDisplayTemplate struct{ ID schema.TemplateID }

func (StartPause) Action() Action          { return ActionStartPause }
func (ResetTime) Action() Action           { return ActionResetTime }
func (NextPeriod) Action() Action          { return ActionNextPeriod }
func (StartCountdown) Action() Action      { return ActionStartCountdown }
func (SetCountdown) Action() Action        { return ActionSetCountdown }
func (ScoreLocal) Action() Action          { return ActionScoreLocal }
func (ScoreVisit) Action() Action          { return ActionScoreVisit }
func (FoulLocal) Action() Action           { return ActionFoulLocal }
func (FoulVisit) Action() Action           { return ActionFoulVisit }
func (CreateMatch) Action() Action         { return ActionCreateMatch }
func (SetOperatorTheme) Action() Action    { return ActionSetOperatorTheme }
func (SetDisplayTheme) Action() Action     { return ActionSetDisplayTheme }
func (SetOperatorTemplate) Action() Action { return ActionSetOperatorTemplate }
func (SetDisplayTemplate) Action() Action  { return ActionSetDisplayTemplate }

func (StartPause) intent()          {}
func (ResetTime) intent()           {}
func (NextPeriod) intent()          {}
func (StartCountdown) intent()      {}
func (SetCountdown) intent()        {}
func (ScoreLocal) intent()          {}
func (ScoreVisit) intent()          {}
func (FoulLocal) intent()           {}
func (FoulVisit) intent()           {}
func (CreateMatch) intent()         {}
func (SetOperatorTheme) intent()    {}
func (SetDisplayTheme) intent()     {}
func (SetOperatorTemplate) intent() {}
func (SetDisplayTemplate) intent()  {}

// Parse builds the intent declared by an action marker and its optional value.
// It returns false for actions it does not know, for create-match (only a form
// submission produces it) and for theme or template values that do not
// normalize. Callers drop the trigger in that case.
func Parse(action, value string) (Intent, bool) {
	switch Action(strings.TrimSpace(action)) {
	case ActionStartPause:
		return StartPause{}, true
	case ActionResetTime:
		return ResetTime{}, true
	case ActionNextPeriod:
		return NextPeriod{}, true
	case ActionStartCountdown:
		return StartCountdown{}, true
	case ActionSetCountdown:
		return SetCountdown{}, true
	case ActionScoreLocal:
		return ScoreLocal{Delta: ParseInt(value)}, true
	case ActionScoreVisit:
		return ScoreVisit{Delta: ParseInt(value)}, true
	case ActionFoulLocal:
		return FoulLocal{Delta: ParseInt(value)}, true
	case ActionFoulVisit:
		return FoulVisit{Delta: ParseInt(value)}, true
	case ActionSetOperatorTheme:
		theme, ok := schema.NormalizeThemeName(value)
		if !ok {
			return nil, false
		}
		return SetOperatorTheme{Theme: theme}, true
	case ActionSetDisplayTheme:
		theme, ok := schema.NormalizeThemeName(value)
		if !ok {
			return nil, false
		}
		return SetDisplayTheme{Theme: theme}, true
	case ActionSetOperatorTemplate:
		id, ok := schema.NormalizeTemplateID(value)
		if !ok {
			return nil, false
		}
		return SetOperatorTemplate{ID: id}, true
	case ActionSetDisplayTemplate:
		id, ok := schema.NormalizeTemplateID(value)
		if !ok {
			return nil, false
		}
		return SetDisplayTemplate{ID: id}, true
	default:
		return nil, false
	}
}

// NewCreateMatch builds a match setup from raw selector values. Values that
// do not parse default to 0.
func NewCreateMatch(local, visit, gameType string) CreateMatch {
	return CreateMatch{
		Local:    ParseInt(local),
		Visit:    ParseInt(visit),
		GameType: ParseInt(gameType),
	}
}

// ParseInt parses the leading base-10 integer of s, ignoring surrounding
// space and any trailing text. It returns 0 when s has no leading integer.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// ValueAttr names the attribute a control uses to declare the value for action.
func ValueAttr(action Action) string {
	switch action {
	case ActionSetOperatorTheme, ActionSetDisplayTheme:
		return "data-theme"
	default:
		return "data-value"
	}
}

package core

import (
	"fmt"
	"strconv"

	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/schema"
)

// FieldMap declares how one console variant binds snapshot fields to its
// document. The Reconciler is shared; only the map differs per variant.
type FieldMap struct {
	Variant  schema.Variant
	Display  []Field
	Editable []Field
	// TimerEmphasis selects the elements that carry the timer--regular or
	// timer--critical class. Empty disables emphasis.
	TimerEmphasis string
	Themes        []ThemeTarget
	ThemeButtons  []ThemeKind
	Tabs          bool
}

// Field binds a selector to a rendering of one snapshot value.
type Field struct {
	Selector string
	Render   func(schema.Snapshot) string
}

// ThemeKind distinguishes the operator theme from the mirrored display theme.
type ThemeKind int

const (
	// OperatorTheme is the theme of the console itself.
	OperatorTheme ThemeKind = iota
	// DisplayTheme is the theme of the public scoreboard.
	DisplayTheme
)

// ThemeTarget receives exactly one theme class. An empty selector targets the
// document root.
type ThemeTarget struct {
	Kind     ThemeKind
	Selector string
}

// Of returns the theme of kind held by snap.
func (k ThemeKind) Of(snap schema.Snapshot) schema.ThemeName {
	if k == DisplayTheme {
		return snap.DisplayTheme
	}
	return snap.OperatorTheme
}

// Action returns the action declared by the theme buttons of kind.
func (k ThemeKind) Action() intent.Action {
	if k == DisplayTheme {
		return intent.ActionSetDisplayTheme
	}
	return intent.ActionSetOperatorTheme
}

func (k ThemeKind) String() string {
	if k == DisplayTheme {
		return "display"
	}
	return "operator"
}

// Highlight classes.
const (
	ThemeButtonActiveClass = "btn--primary"
	TimerRegularClass      = "timer--regular"
	TimerCriticalClass     = "timer--critical"
)

func displayFields() []Field {
	return []Field{
		{FieldSelector("points-local"), func(s schema.Snapshot) string { return strconv.Itoa(s.PointsLocal) }},
		{FieldSelector("points-visit"), func(s schema.Snapshot) string { return strconv.Itoa(s.PointsVisit) }},
		{FieldSelector("time"), func(s schema.Snapshot) string { return s.Time }},
		{FieldSelector("period"), func(s schema.Snapshot) string { return fmt.Sprintf("Period %d", s.Period) }},
		{FieldSelector("countdown"), func(s schema.Snapshot) string { return "Pregame: " + s.Countdown }},
		{FieldSelector("fouls-local"), func(s schema.Snapshot) string { return strconv.Itoa(s.FoulsLocal) }},
		{FieldSelector("fouls-visit"), func(s schema.Snapshot) string { return strconv.Itoa(s.FoulsVisit) }},
		{FieldSelector("team-local"), func(s schema.Snapshot) string { return s.TeamLocal.Name }},
		{FieldSelector("team-visit"), func(s schema.Snapshot) string { return s.TeamVisit.Name }},
	}
}

func editableFields(withDisplayTemplate bool) []Field {
	fields := []Field{
		{"#" + CountdownInputID, func(s schema.Snapshot) string { return s.Countdown }},
		{"#" + LocalTeamID, func(s schema.Snapshot) string { return strconv.Itoa(s.Selected.Local) }},
		{"#" + VisitTeamID, func(s schema.Snapshot) string { return strconv.Itoa(s.Selected.Visit) }},
		{"#" + GameTypeID, func(s schema.Snapshot) string { return strconv.Itoa(s.Selected.GameType) }},
		{"#" + OperatorTemplateID, func(s schema.Snapshot) string { return string(s.OperatorTemplate) }},
	}
	if withDisplayTemplate {
		fields = append(fields, Field{"#" + DisplayTemplateID, func(s schema.Snapshot) string { return string(s.DisplayTemplate) }})
	}
	return fields
}

// PanelFieldMap binds the compact operator panel.
func PanelFieldMap() FieldMap {
	return FieldMap{
		Variant:  schema.VariantPanel,
		Display:  displayFields(),
		Editable: editableFields(false),
		Themes: []ThemeTarget{
			{Kind: OperatorTheme},
			{Kind: DisplayTheme, Selector: FieldSelector("display-theme")},
		},
		ThemeButtons: []ThemeKind{OperatorTheme, DisplayTheme},
	}
}

// DashboardFieldMap binds the multi-tab touch dashboard.
func DashboardFieldMap() FieldMap {
	return FieldMap{
		Variant:       schema.VariantDashboard,
		Display:       displayFields(),
		Editable:      editableFields(true),
		TimerEmphasis: FieldSelector("time"),
		Themes:        []ThemeTarget{{Kind: OperatorTheme}},
		ThemeButtons:  []ThemeKind{OperatorTheme, DisplayTheme},
		Tabs:          true,
	}
}

// FieldMapFor returns the field map of variant.
func FieldMapFor(variant schema.Variant) (FieldMap, error) {
	switch variant {
	case schema.VariantPanel:
		return PanelFieldMap(), nil
	case schema.VariantDashboard:
		return DashboardFieldMap(), nil
	default:
		return FieldMap{}, fmt.Errorf("%w: %q", schema.ErrInvalidVariant, variant)
	}
}

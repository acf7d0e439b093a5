package dom

import (
	"bytes"
	"fmt"
	"html/template"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/schema"
)

// Catalog lists the choices offered by the selection controls.
type Catalog struct {
	Teams             []core.Option
	GameTypes         []core.Option
	OperatorTemplates []core.Option
	DisplayTemplates  []core.Option
}

// Build returns the document of variant populated from catalog.
func Build(variant schema.Variant, catalog Catalog) (*Document, error) {
	var name string
	switch variant {
	case schema.VariantPanel:
		name = "panel"
	case schema.VariantDashboard:
		name = "dashboard"
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrInvalidVariant, variant)
	}
	var buf bytes.Buffer
	if err := markup.ExecuteTemplate(&buf, name, newMarkupView()); err != nil {
		return nil, fmt.Errorf("render %s markup: %w", name, err)
	}
	d, err := Parse(&buf)
	if err != nil {
		return nil, fmt.Errorf("parse %s markup: %w", name, err)
	}
	for id, opts := range map[string][]core.Option{
		core.LocalTeamID:        catalog.Teams,
		core.VisitTeamID:        catalog.Teams,
		core.GameTypeID:         catalog.GameTypes,
		core.OperatorTemplateID: catalog.OperatorTemplates,
		core.DisplayTemplateID:  catalog.DisplayTemplates,
	} {
		if sel, ok := d.ByID(id).(*Element); ok {
			sel.SetOptions(opts)
		}
	}
	return d, nil
}

// NewPanel builds the compact operator panel.
func NewPanel(catalog Catalog) *Document {
	return mustBuild(schema.VariantPanel, catalog)
}

// NewDashboard builds the multi-tab touch dashboard.
func NewDashboard(catalog Catalog) *Document {
	return mustBuild(schema.VariantDashboard, catalog)
}

func mustBuild(variant schema.Variant, catalog Catalog) *Document {
	d, err := Build(variant, catalog)
	if err != nil {
		panic(err)
	}
	return d
}

type buttonView struct {
	Action intent.Action
	Value  template.HTMLAttr
	Label  string
}

func button(action intent.Action, value, label string) buttonView {
	b := buttonView{Action: action, Label: label}
	if value != "" {
		b.Value = template.HTMLAttr(fmt.Sprintf(`%s="%s"`, intent.ValueAttr(action), template.HTMLEscapeString(value)))
	}
	return b
}

type groupView struct {
	Class   string
	Label   string
	Buttons []buttonView
}

type selectView struct {
	ID     string
	Label  string
	Action intent.Action
}

type markupView struct {
	Clock            groupView
	Score            []groupView
	SetCountdown     buttonView
	CountdownFormID  string
	CountdownInputID string
	MatchFormID      string
	Match            []selectView
	Themes           []groupView
	OperatorTemplate selectView
	DisplayTemplate  selectView
}

func newMarkupView() markupView {
	v := markupView{
		Clock: groupView{Class: "button-group button-group--clock", Buttons: []buttonView{
			button(intent.ActionStartPause, "", "Start/Pause"),
			button(intent.ActionResetTime, "", "Reset time"),
			button(intent.ActionNextPeriod, "", "Next period"),
			button(intent.ActionStartCountdown, "", "Start countdown"),
		}},
		SetCountdown:     button(intent.ActionSetCountdown, "", "Set countdown"),
		CountdownFormID:  core.CountdownFormID,
		CountdownInputID: core.CountdownInputID,
		MatchFormID:      core.MatchFormID,
		Match: []selectView{
			{ID: core.LocalTeamID, Label: "Local team"},
			{ID: core.VisitTeamID, Label: "Visiting team"},
			{ID: core.GameTypeID, Label: "Game type"},
		},
		OperatorTemplate: selectView{ID: core.OperatorTemplateID, Label: "Operator template", Action: intent.ActionSetOperatorTemplate},
		DisplayTemplate:  selectView{ID: core.DisplayTemplateID, Label: "Display template", Action: intent.ActionSetDisplayTemplate},
	}
	for _, side := range []struct {
		name  string
		score intent.Action
		foul  intent.Action
	}{
		{"local", intent.ActionScoreLocal, intent.ActionFoulLocal},
		{"visit", intent.ActionScoreVisit, intent.ActionFoulVisit},
	} {
		group := groupView{Class: "button-group button-group--" + side.name}
		for _, delta := range []string{"1", "2", "3", "-1"} {
			label := "+" + delta
			if delta[0] == '-' {
				label = delta
			}
			group.Buttons = append(group.Buttons, button(side.score, delta, label))
		}
		group.Buttons = append(group.Buttons,
			button(side.foul, "1", "Foul +1"),
			button(side.foul, "-1", "Foul -1"),
		)
		v.Score = append(v.Score, group)
	}
	for _, group := range []struct {
		action intent.Action
		label  string
	}{
		{intent.ActionSetOperatorTheme, "Operator"},
		{intent.ActionSetDisplayTheme, "Display"},
	} {
		g := groupView{Class: "theme-group", Label: group.label}
		for _, theme := range schema.AvailableThemes() {
			g.Buttons = append(g.Buttons, button(group.action, string(theme), string(theme)))
		}
		v.Themes = append(v.Themes, g)
	}
	return v
}

var markup = template.Must(template.New("markup").Parse(`
{{define "button"}}<button type="button" class="btn" data-action="{{.Action}}" {{.Value}}>{{.Label}}</button>{{end}}

{{define "group"}}<div class="{{.Class}}">{{range .Buttons}}{{template "button" .}}{{end}}</div>{{end}}

{{define "scoreboard"}}
<header class="scoreboard">
  <div class="team team--local">
    <span class="team-name" data-field="team-local"></span>
    <span class="points" data-field="points-local"></span>
    <span class="fouls" data-field="fouls-local"></span>
  </div>
  <div class="clock">
    <span class="timer" data-field="time"></span>
    <span class="period" data-field="period"></span>
    <span class="countdown" data-field="countdown"></span>
  </div>
  <div class="team team--visit">
    <span class="team-name" data-field="team-visit"></span>
    <span class="points" data-field="points-visit"></span>
    <span class="fouls" data-field="fouls-visit"></span>
  </div>
  {{if .}}<span class="display-theme" data-field="display-theme"></span>{{end}}
</header>
{{end}}

{{define "controls"}}
{{template "group" .Clock}}
{{range .Score}}{{template "group" .}}{{end}}
<form id="{{.CountdownFormID}}" class="countdown-form">
  <label for="{{.CountdownInputID}}">Pregame countdown</label>
  <input id="{{.CountdownInputID}}" type="text" placeholder="MM:SS" autocomplete="off">
  {{template "button" .SetCountdown}}
</form>
{{end}}

{{define "select"}}
<label for="{{.ID}}">{{.Label}}</label>
<select id="{{.ID}}"{{with .Action}} data-change-action="{{.}}"{{end}}></select>
{{end}}

{{define "match"}}
<form id="{{.MatchFormID}}" class="match-form">
  {{range .Match}}{{template "select" .}}{{end}}
  <button type="submit" class="btn btn--primary">Apply setup</button>
</form>
{{end}}

{{define "themes"}}
{{range .Themes}}
<div class="{{.Class}}">
  <span class="theme-group__label">{{.Label}} theme</span>
  {{range .Buttons}}{{template "button" .}}{{end}}
</div>
{{end}}
{{end}}

{{define "panel"}}
<!DOCTYPE html>
<html>
<body data-variant="panel">
{{template "scoreboard" true}}
<section class="controls">{{template "controls" .}}</section>
{{template "match" .}}
<section class="appearance">
  {{template "themes" .}}
  {{template "select" .OperatorTemplate}}
</section>
</body>
</html>
{{end}}

{{define "dashboard"}}
<!DOCTYPE html>
<html>
<body data-variant="dashboard">
{{template "scoreboard" false}}
<nav class="tabs" role="tablist">
  <button class="tab" role="tab" data-tab-target="match">Match</button>
  <button class="tab" role="tab" data-tab-target="setup">Setup</button>
  <button class="tab" role="tab" data-tab-target="appearance">Appearance</button>
</nav>
<section class="tab-panel" data-tab-panel="match" role="tabpanel">{{template "controls" .}}</section>
<section class="tab-panel" data-tab-panel="setup" role="tabpanel">{{template "match" .}}</section>
<section class="tab-panel" data-tab-panel="appearance" role="tabpanel">
  {{template "themes" .}}
  {{template "select" .OperatorTemplate}}
  {{template "select" .DisplayTemplate}}
</section>
</body>
</html>
{{end}}
`))

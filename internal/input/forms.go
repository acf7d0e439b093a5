package input

import (
	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
)

// SubmitMatch builds the match setup from the selector values of doc at the
// moment of submission.
func SubmitMatch(doc core.Document) intent.CreateMatch {
	return intent.NewCreateMatch(
		controlValue(doc, core.LocalTeamID),
		controlValue(doc, core.VisitTeamID),
		controlValue(doc, core.GameTypeID),
	)
}

// Submit returns the intent of submitting form. Forms other than the match
// setup and countdown forms produce nothing.
func Submit(doc core.Document, form core.Element) (intent.Intent, bool) {
	if form == nil {
		return nil, false
	}
	switch form.ID() {
	case core.MatchFormID:
		return SubmitMatch(doc), true
	case core.CountdownFormID:
		return intent.SetCountdown{}, true
	default:
		return nil, false
	}
}

// Change returns the intent of a selection control that dispatches on change.
func Change(el core.Element) (intent.Intent, bool) {
	if el == nil {
		return nil, false
	}
	action, ok := el.Attr("data-change-action")
	if !ok {
		return nil, false
	}
	return intent.Parse(action, el.Value())
}

func controlValue(doc core.Document, id string) string {
	if doc == nil {
		return ""
	}
	el := doc.ByID(id)
	if el == nil {
		return ""
	}
	return el.Value()
}

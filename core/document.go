package core

// Element is one node of an operator document.
type Element interface {
	Tag() string
	ID() string
	Attr(name string) (string, bool)
	SetAttr(name, value string)
	RemoveAttr(name string)
	Text() string
	SetText(text string)
	Value() string
	SetValue(value string)
	HasClass(name string) bool
	AddClass(names ...string)
	RemoveClass(names ...string)
	Classes() []string
	AppendChild(child Element)
	Remove()
	Children() []Element
}

// Document is the live operator UI that snapshots are reconciled into and
// control values are read from. Lookups return a nil Element when nothing
// matches.
type Document interface {
	Root() Element
	ByID(id string) Element
	Query(selector string) Element
	QueryAll(selector string) []Element
	CreateElement(tag string) Element
}

// Option is one choice of a selection control.
type Option struct {
	Value string
	Label string
}

// OptionLister is implemented by elements that hold a list of options.
type OptionLister interface {
	Options() []Option
}

// FocusFunc reports whether el is the control the operator is currently editing.
type FocusFunc func(el Element) bool

// NoFocus is a FocusFunc for documents with no editable focus.
func NoFocus(Element) bool { return false }

// Control ids shared by the document builders and the input sources.
const (
	CountdownInputID   = "countdown-input"
	CountdownFormID    = "countdown-form"
	LocalTeamID        = "local-team"
	VisitTeamID        = "visit-team"
	GameTypeID         = "game-type"
	OperatorTemplateID = "operator-template"
	DisplayTemplateID  = "display-template"
	MatchFormID        = "match-form"
	ToastContainerID   = "toast-container"
)

// FieldSelector returns the selector of display elements bound to name.
func FieldSelector(name string) string {
	return `[data-field="` + name + `"]`
}

// ActionSelector returns the selector of controls declaring action.
func ActionSelector(action string) string {
	return `[data-action="` + action + `"]`
}

// OptionLabel returns the label of the option with value on the control with
// id, or value itself when the control or option is missing.
func OptionLabel(doc Document, id, value string) string {
	if doc == nil {
		return value
	}
	lister, ok := doc.ByID(id).(OptionLister)
	if !ok {
		return value
	}
	for _, opt := range lister.Options() {
		if opt.Value == value && opt.Label != "" {
			return opt.Label
		}
	}
	return value
}

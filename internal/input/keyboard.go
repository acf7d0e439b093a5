package input

import (
	"fmt"
	"strings"
	"unicode"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
)

// Shortcut binds a physical key code to an action and optional value.
type Shortcut struct {
	Code   string
	Action intent.Action
	Value  string
}

// DefaultShortcuts returns the operator shortcut table.
func DefaultShortcuts() []Shortcut {
	return []Shortcut{
		{Code: "Space", Action: intent.ActionStartPause},
		{Code: "KeyR", Action: intent.ActionResetTime},
		{Code: "KeyP", Action: intent.ActionNextPeriod},
		{Code: "KeyQ", Action: intent.ActionScoreLocal, Value: "1"},
		{Code: "KeyW", Action: intent.ActionScoreLocal, Value: "2"},
		{Code: "KeyE", Action: intent.ActionScoreLocal, Value: "3"},
		{Code: "KeyA", Action: intent.ActionScoreLocal, Value: "-1"},
		{Code: "KeyZ", Action: intent.ActionFoulLocal, Value: "1"},
		{Code: "KeyX", Action: intent.ActionFoulLocal, Value: "-1"},
		{Code: "KeyU", Action: intent.ActionScoreVisit, Value: "1"},
		{Code: "KeyI", Action: intent.ActionScoreVisit, Value: "2"},
		{Code: "KeyO", Action: intent.ActionScoreVisit, Value: "3"},
		{Code: "KeyJ", Action: intent.ActionScoreVisit, Value: "-1"},
		{Code: "KeyM", Action: intent.ActionFoulVisit, Value: "1"},
		{Code: "KeyN", Action: intent.ActionFoulVisit, Value: "-1"},
		{Code: "KeyT", Action: intent.ActionSetCountdown},
		{Code: "KeyC", Action: intent.ActionStartCountdown},
	}
}

// KeyEvent is one key-down.
type KeyEvent struct {
	Code string
	// Repeat marks a synthetic repeat of a held key.
	Repeat bool
	// Target is the element holding focus, if any.
	Target core.Element
}

// Keyboard resolves key-downs against a shortcut table.
type Keyboard struct {
	table  []Shortcut
	byCode map[string]intent.Intent
}

// NewKeyboard validates table. Every code may appear once and every entry
// must name a known action.
func NewKeyboard(table []Shortcut) (*Keyboard, error) {
	k := &Keyboard{
		table:  append([]Shortcut(nil), table...),
		byCode: make(map[string]intent.Intent, len(table)),
	}
	for _, sc := range table {
		if _, dup := k.byCode[sc.Code]; dup {
			return nil, fmt.Errorf("shortcut %s bound twice", sc.Code)
		}
		in, ok := intent.Parse(string(sc.Action), sc.Value)
		if !ok {
			return nil, fmt.Errorf("shortcut %s: unknown action %q", sc.Code, sc.Action)
		}
		k.byCode[sc.Code] = in
	}
	return k, nil
}

// Handle returns the intent for ev and whether the event was consumed.
// Repeats and keys typed into a text entry are never consumed; neither are
// keys without a shortcut.
func (k *Keyboard) Handle(ev KeyEvent) (intent.Intent, bool) {
	if ev.Repeat || IsTextEntry(ev.Target) {
		return nil, false
	}
	in, ok := k.byCode[ev.Code]
	if !ok {
		return nil, false
	}
	return in, true
}

// Table returns the shortcut table in declaration order.
func (k *Keyboard) Table() []Shortcut {
	return append([]Shortcut(nil), k.table...)
}

// IsTextEntry reports whether el accepts typed text: inputs, selects, text
// areas and content-editable regions.
func IsTextEntry(el core.Element) bool {
	if el == nil {
		return false
	}
	switch el.Tag() {
	case "input", "select", "textarea":
		return true
	}
	value, ok := el.Attr("contenteditable")
	return ok && (value == "" || strings.EqualFold(value, "true"))
}

// Label returns the operator-facing name of a key code.
func Label(code string) string {
	if code == "Space" {
		return "Space"
	}
	if letter, ok := strings.CutPrefix(code, "Key"); ok && letter != "" {
		return letter
	}
	return code
}

// CodeForRune maps a typed character to its physical key code.
func CodeForRune(r rune) (string, bool) {
	switch {
	case r == ' ':
		return "Space", true
	case r < unicode.MaxASCII && unicode.IsLetter(r):
		return "Key" + string(unicode.ToUpper(r)), true
	case r >= '0' && r <= '9':
		return "Digit" + string(r), true
	default:
		return "", false
	}
}

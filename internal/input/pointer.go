// Package input turns operator triggers (control activations, key presses
// and form submissions) into intents.
package input

import (
	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
)

// PointerBindings maps the action controls of a document to their intents.
type PointerBindings struct {
	bound    map[core.Element]intent.Intent
	controls []core.Element
	skipped  []string
}

// BindPointer binds every control declaring data-action in doc. Controls
// whose action does not parse are left unbound.
func BindPointer(doc core.Document) *PointerBindings {
	b := &PointerBindings{bound: make(map[core.Element]intent.Intent)}
	if doc == nil {
		return b
	}
	for _, el := range doc.QueryAll("[data-action]") {
		action, _ := el.Attr("data-action")
		value, _ := el.Attr(intent.ValueAttr(intent.Action(action)))
		in, ok := intent.Parse(action, value)
		if !ok {
			b.skipped = append(b.skipped, action)
			continue
		}
		b.bound[el] = in
		b.controls = append(b.controls, el)
	}
	return b
}

// Activate returns the intent bound to el.
func (b *PointerBindings) Activate(el core.Element) (intent.Intent, bool) {
	if el == nil {
		return nil, false
	}
	in, ok := b.bound[el]
	return in, ok
}

// Controls returns the bound controls in document order.
func (b *PointerBindings) Controls() []core.Element {
	out := make([]core.Element, len(b.controls))
	copy(out, b.controls)
	return out
}

// Skipped returns the action names that were not bound.
func (b *PointerBindings) Skipped() []string {
	out := make([]string, len(b.skipped))
	copy(out, b.skipped)
	return out
}

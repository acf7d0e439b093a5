package core

import (
	"pkt.systems/courtside/schema"
)

// Reconciler applies snapshots to a document according to a FieldMap.
type Reconciler struct {
	fields FieldMap
}

// NewReconciler returns a reconciler for fields.
func NewReconciler(fields FieldMap) *Reconciler {
	return &Reconciler{fields: fields}
}

// Fields returns the field map the reconciler applies.
func (r *Reconciler) Fields() FieldMap {
	return r.fields
}

// Apply writes snap into doc. Display fields are always written. An editable
// control is skipped while focused reports it as the current edit target.
// Selectors that match nothing are ignored.
func (r *Reconciler) Apply(doc Document, snap schema.Snapshot, focused FocusFunc) {
	if doc == nil {
		return
	}
	if focused == nil {
		focused = NoFocus
	}
	for _, field := range r.fields.Display {
		text := field.Render(snap)
		for _, el := range doc.QueryAll(field.Selector) {
			el.SetText(text)
		}
	}
	if r.fields.TimerEmphasis != "" {
		class := TimerRegularClass
		if snap.TimeStyle == schema.TimeCritical {
			class = TimerCriticalClass
		}
		for _, el := range doc.QueryAll(r.fields.TimerEmphasis) {
			el.RemoveClass(TimerRegularClass, TimerCriticalClass)
			el.AddClass(class)
		}
	}
	for _, field := range r.fields.Editable {
		value := field.Render(snap)
		for _, el := range doc.QueryAll(field.Selector) {
			if focused(el) {
				continue
			}
			el.SetValue(value)
		}
	}
	for _, kind := range []ThemeKind{OperatorTheme, DisplayTheme} {
		r.ApplyTheme(doc, kind, kind.Of(snap))
	}
}

// ApplyTheme sets the theme class on every target of kind and recomputes the
// highlight of the matching theme buttons.
func (r *Reconciler) ApplyTheme(doc Document, kind ThemeKind, theme schema.ThemeName) {
	if doc == nil {
		return
	}
	class := schema.ThemeClass(theme)
	for _, target := range r.fields.Themes {
		if target.Kind != kind {
			continue
		}
		var els []Element
		if target.Selector == "" {
			if root := doc.Root(); root != nil {
				els = []Element{root}
			}
		} else {
			els = doc.QueryAll(target.Selector)
		}
		for _, el := range els {
			el.RemoveClass(schema.ThemeClasses()...)
			el.AddClass(class)
		}
	}
	for _, buttons := range r.fields.ThemeButtons {
		if buttons != kind {
			continue
		}
		for _, el := range doc.QueryAll(ActionSelector(string(kind.Action()))) {
			value, _ := el.Attr("data-theme")
			if name, ok := schema.NormalizeThemeName(value); ok && name == theme {
				el.AddClass(ThemeButtonActiveClass)
			} else {
				el.RemoveClass(ThemeButtonActiveClass)
			}
		}
	}
}

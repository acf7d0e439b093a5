package input

import (
	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
)

// ApplyHints labels every control that has a shortcut with a title and a
// data-shortcut attribute. Attributes the markup already declares are kept.
func ApplyHints(doc core.Document, table []Shortcut) int {
	if doc == nil {
		return 0
	}
	annotated := 0
	for _, sc := range table {
		label := Label(sc.Code)
		selector := core.ActionSelector(string(sc.Action))
		if sc.Value != "" {
			selector += `[` + intent.ValueAttr(sc.Action) + `="` + sc.Value + `"]`
		}
		for _, el := range doc.QueryAll(selector) {
			changed := false
			if title, ok := el.Attr("title"); !ok || title == "" {
				el.SetAttr("title", "Shortcut: "+label)
				changed = true
			}
			if _, ok := el.Attr("data-shortcut"); !ok {
				el.SetAttr("data-shortcut", label)
				changed = true
			}
			if changed {
				annotated++
			}
		}
	}
	return annotated
}

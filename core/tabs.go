package core

// Tab markers.
const (
	TabTargetAttr  = "data-tab-target"
	TabPanelAttr   = "data-tab-panel"
	TabActiveClass = "is-active"
)

// TabGroup is a single-selection group of tab buttons and their panels.
type TabGroup struct {
	buttons []Element
	panels  []Element
	names   []string
	active  string
}

// NewTabGroup collects the tab buttons and panels of doc and activates the
// first declared tab. It returns nil when doc declares no tabs.
func NewTabGroup(doc Document) *TabGroup {
	if doc == nil {
		return nil
	}
	g := &TabGroup{
		buttons: doc.QueryAll("[" + TabTargetAttr + "]"),
		panels:  doc.QueryAll("[" + TabPanelAttr + "]"),
	}
	seen := make(map[string]bool)
	for _, btn := range g.buttons {
		name, _ := btn.Attr(TabTargetAttr)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		g.names = append(g.names, name)
	}
	if len(g.names) == 0 {
		return nil
	}
	g.Activate(g.names[0])
	return g
}

// Names returns the tab names in declaration order.
func (g *TabGroup) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Active returns the active tab name.
func (g *TabGroup) Active() string {
	return g.active
}

// Activate makes name the only active tab. Unknown names leave the group
// unchanged and return false.
func (g *TabGroup) Activate(name string) bool {
	if g.index(name) < 0 {
		return false
	}
	for _, btn := range g.buttons {
		target, _ := btn.Attr(TabTargetAttr)
		on := target == name
		setActive(btn, on)
		btn.SetAttr("aria-selected", boolAttr(on))
	}
	for _, panel := range g.panels {
		target, _ := panel.Attr(TabPanelAttr)
		on := target == name
		setActive(panel, on)
		panel.SetAttr("aria-hidden", boolAttr(!on))
	}
	g.active = name
	return true
}

// Cycle activates the tab delta positions away from the active one, wrapping.
func (g *TabGroup) Cycle(delta int) string {
	n := len(g.names)
	idx := g.index(g.active)
	next := ((idx+delta)%n + n) % n
	g.Activate(g.names[next])
	return g.active
}

// ActivePanel returns the panel element of the active tab, or nil.
func (g *TabGroup) ActivePanel() Element {
	for _, panel := range g.panels {
		if target, _ := panel.Attr(TabPanelAttr); target == g.active {
			return panel
		}
	}
	return nil
}

func (g *TabGroup) index(name string) int {
	for i, candidate := range g.names {
		if candidate == name {
			return i
		}
	}
	return -1
}

func setActive(el Element, on bool) {
	if on {
		el.AddClass(TabActiveClass)
		return
	}
	el.RemoveClass(TabActiveClass)
}

func boolAttr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

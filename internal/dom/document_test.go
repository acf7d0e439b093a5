package dom

import (
	"strings"
	"testing"

	"pkt.systems/courtside/core"
)

func appendEl(parent *Element, tag string, attrs ...string) *Element {
	child := parent.doc.CreateElement(tag).(*Element)
	for i := 0; i+1 < len(attrs); i += 2 {
		child.SetAttr(attrs[i], attrs[i+1])
	}
	parent.AppendChild(child)
	return child
}

func TestQuerySelectors(t *testing.T) {
	d := New()
	form := appendEl(d.Body(), "form", "id", "match-form", "class", "card wide")
	appendEl(form, "select", "id", "local-team", "data-field", "local")
	appendEl(form, "button", "data-action", "score-local", "data-value", "2")
	appendEl(form, "button", "data-action", "score-local")

	cases := []struct {
		sel  string
		want int
	}{
		{"#match-form", 1},
		{"form", 1},
		{"form.card", 1},
		{".card.wide", 1},
		{".missing", 0},
		{"[data-action]", 2},
		{`[data-action="score-local"]`, 2},
		{`button[data-value="2"]`, 1},
		{`[data-value='2']`, 1},
		{"body", 1},
		{"select#local-team[data-field=local]", 1},
		{"div > span", 0},
		{"[unterminated", 0},
	}
	for _, tc := range cases {
		if got := len(d.QueryAll(tc.sel)); got != tc.want {
			t.Fatalf("QueryAll(%q) = %d, want %d", tc.sel, got, tc.want)
		}
	}
}

func TestMissingElementIsNilInterface(t *testing.T) {
	d := New()
	if el := d.ByID("nope"); el != nil {
		t.Fatalf("expected nil element, got %#v", el)
	}
	if el := d.Query("[data-field=time]"); el != nil {
		t.Fatalf("expected nil element, got %#v", el)
	}
	if els := d.QueryAll("[data-field=time]"); els != nil {
		t.Fatalf("expected no elements, got %d", len(els))
	}
}

func TestSelectValueFollowsOptions(t *testing.T) {
	d := New()
	sel := appendEl(d.Body(), "select", "id", "game-type")
	sel.SetOptions([]core.Option{{Value: "0", Label: "FIBA"}, {Value: "1", Label: "NBA"}})
	if sel.Value() != "0" {
		t.Fatalf("expected first option selected, got %q", sel.Value())
	}
	sel.SetValue("1")
	if sel.Value() != "1" {
		t.Fatalf("expected option 1, got %q", sel.Value())
	}
	sel.SetValue("7")
	if sel.Value() != "" {
		t.Fatalf("expected no selection for unknown value, got %q", sel.Value())
	}
	if got := core.OptionLabel(d, "game-type", "1"); got != "NBA" {
		t.Fatalf("expected option label, got %q", got)
	}
	if got := core.OptionLabel(d, "missing", "1"); got != "1" {
		t.Fatalf("expected value fallback, got %q", got)
	}
}

func TestClassesAndAttributes(t *testing.T) {
	d := New()
	el := d.CreateElement("div")
	el.AddClass("a", "b", "a")
	el.RemoveClass("a")
	if got := el.Classes(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("unexpected classes %v", got)
	}
	el.SetAttr("class", "x y")
	if !el.HasClass("x") || el.HasClass("b") {
		t.Fatalf("class attribute should replace the class list, got %v", el.Classes())
	}
	el.SetAttr("Data-Value", "3")
	if v, ok := el.Attr("data-value"); !ok || v != "3" {
		t.Fatalf("attributes are case-insensitive, got %q ok=%v", v, ok)
	}
	el.RemoveAttr("data-value")
	if _, ok := el.Attr("data-value"); ok {
		t.Fatalf("expected attribute removed")
	}
}

func TestAppendAndRemove(t *testing.T) {
	d := New()
	el := d.CreateElement("div").(*Element)
	el.SetAttr("id", "toast")
	if d.ByID("toast") != nil || el.Attached() {
		t.Fatalf("detached elements are not queryable")
	}
	d.Root().AppendChild(el)
	if d.ByID("toast") == nil || !el.Attached() {
		t.Fatalf("expected appended element to be queryable")
	}
	other := New()
	other.Root().AppendChild(el)
	if len(other.Root().Children()) != 0 {
		t.Fatalf("elements cannot move across documents")
	}
	el.Remove()
	if d.ByID("toast") != nil || len(d.Root().Children()) != 0 {
		t.Fatalf("expected element removed")
	}
}

func TestWithin(t *testing.T) {
	d := NewDashboard(Catalog{})
	panel := d.Query(`[data-tab-panel="setup"]`)
	if panel == nil {
		t.Fatalf("expected setup panel")
	}
	if got := len(Within(panel, "select")); got != 3 {
		t.Fatalf("expected 3 selects in setup panel, got %d", got)
	}
	if got := Within(nil, "select"); got != nil {
		t.Fatalf("expected nothing for nil scope")
	}
}

func TestEditable(t *testing.T) {
	d := New()
	cases := []struct {
		el   *Element
		want bool
	}{
		{appendEl(d.Body(), "input"), true},
		{appendEl(d.Body(), "select"), true},
		{appendEl(d.Body(), "textarea"), true},
		{appendEl(d.Body(), "div", "contenteditable", "true"), true},
		{appendEl(d.Body(), "div", "contenteditable", ""), true},
		{appendEl(d.Body(), "div", "contenteditable", "false"), false},
		{appendEl(d.Body(), "button"), false},
	}
	for i, tc := range cases {
		if got := tc.el.Editable(); got != tc.want {
			t.Fatalf("case %d (%s) Editable = %v, want %v", i, tc.el.Tag(), got, tc.want)
		}
	}
}

func TestParseKeepsControlState(t *testing.T) {
	d, err := Parse(strings.NewReader(`<body class="theme-dark">
  <form id="f">
    <input id="name" value="Halcones">
    <select id="pick"><option value="a">A</option><option value="b" selected>B</option></select>
  </form>
</body>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Root().HasClass("theme-dark") {
		t.Fatalf("expected body classes, got %v", d.Body().Classes())
	}
	if got := d.ByID("name").Value(); got != "Halcones" {
		t.Fatalf("expected input value, got %q", got)
	}
	pick := d.ByID("pick")
	if pick.Value() != "b" {
		t.Fatalf("expected selected option, got %q", pick.Value())
	}
	if got := pick.(*Element).Options(); len(got) != 2 || got[1].Label != "B" {
		t.Fatalf("unexpected options %+v", got)
	}
	if got := len(d.ByID("f").Children()); got != 2 {
		t.Fatalf("expected whitespace dropped, got %d children", got)
	}
	if d.ByID("f").(*Element).Parent() != d.Root() || d.Root().(*Element).Parent() != nil {
		t.Fatalf("unexpected parent chain")
	}

	pick.SetValue("a")
	d.ByID("name").SetValue("Toros")
	var out strings.Builder
	if err := d.Render(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`value="Toros"`, `<option value="a" selected="">A</option>`, `<option value="b">B</option>`} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %s in %s", want, out.String())
		}
	}
}

func TestSetTextKeepsChildren(t *testing.T) {
	d := New()
	el := appendEl(d.Body(), "div")
	appendEl(el, "span", "id", "inner")
	el.SetText("hello")
	el.SetText("bye")
	if el.Text() != "bye" || len(el.Children()) != 1 {
		t.Fatalf("unexpected text %q children %d", el.Text(), len(el.Children()))
	}
	el.SetText("")
	if el.Text() != "" || d.ByID("inner") == nil {
		t.Fatalf("expected text cleared and child kept")
	}
}

// Package dom is an in-memory operator document. It implements the
// core.Document contract for terminal consoles and tests on top of an
// x/net/html node tree.
package dom

import (
	"io"
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pkt.systems/courtside/core"
)

// Document is a parsed HTML tree rooted at its body element. All access is
// serialized by a single document lock.
type Document struct {
	mu   sync.RWMutex
	tree *html.Node
	root *html.Node

	wrapMu   sync.Mutex
	elements map[*html.Node]*Element
}

// Element is an element node of a Document. Each node has exactly one
// Element, so elements compare equal when they are the same node.
type Element struct {
	doc  *Document
	node *html.Node
}

// New returns a document with an empty body.
func New() *Document {
	d, err := Parse(strings.NewReader("<body></body>"))
	if err != nil {
		panic(err)
	}
	return d
}

// Parse reads markup into a Document. Whitespace-only text between
// elements is dropped.
func Parse(r io.Reader) (*Document, error) {
	tree, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	trimWhitespace(tree)
	d := &Document{tree: tree, elements: make(map[*html.Node]*Element)}
	d.root = findBody(tree)
	if d.root == nil {
		d.root = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		tree.AppendChild(d.root)
	}
	return d, nil
}

// Render writes the document markup to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return html.Render(w, d.tree)
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

func trimWhitespace(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			n.RemoveChild(c)
		} else {
			trimWhitespace(c)
		}
		c = next
	}
}

var _ core.Document = (*Document)(nil)
var _ core.Element = (*Element)(nil)
var _ core.OptionLister = (*Element)(nil)

func (d *Document) element(n *html.Node) *Element {
	if n == nil {
		return nil
	}
	d.wrapMu.Lock()
	defer d.wrapMu.Unlock()
	el, ok := d.elements[n]
	if !ok {
		el = &Element{doc: d, node: n}
		d.elements[n] = el
	}
	return el
}

func newNode(tag string) *html.Node {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func (d *Document) wrap(n *html.Node) core.Element {
	if n == nil {
		return nil
	}
	return d.element(n)
}

// Root returns the body element.
func (d *Document) Root() core.Element {
	return d.element(d.root)
}

// Body returns the body element with its concrete type.
func (d *Document) Body() *Element {
	return d.element(d.root)
}

// CreateElement returns a detached element owned by d.
func (d *Document) CreateElement(tag string) core.Element {
	return d.element(newNode(tag))
}

// ByID returns the attached element with id, or nil.
func (d *Document) ByID(id string) core.Element {
	if id == "" {
		return nil
	}
	return d.Query("#" + id)
}

// Query returns the first attached element matching sel in document order.
func (d *Document) Query(sel string) core.Element {
	found := d.find(d.root, sel, true)
	if len(found) == 0 {
		return nil
	}
	return d.wrap(found[0])
}

// QueryAll returns every attached element matching sel in document order.
func (d *Document) QueryAll(sel string) []core.Element {
	return d.toCore(d.find(d.root, sel, false))
}

// Within returns the descendants of scope matching sel. A scope that does not
// belong to a Document yields nothing.
func Within(scope core.Element, sel string) []core.Element {
	el, ok := scope.(*Element)
	if !ok || el == nil {
		return nil
	}
	return el.doc.toCore(el.doc.find(el.node, sel, false))
}

func (d *Document) toCore(nodes []*html.Node) []core.Element {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]core.Element, len(nodes))
	for i, n := range nodes {
		out[i] = d.element(n)
	}
	return out
}

func (d *Document) find(scope *html.Node, sel string, first bool) []*html.Node {
	parsed, ok := parseSelector(sel)
	if !ok {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if parsed.matches(c) {
				out = append(out, c)
				if first {
					return true
				}
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	if scope == d.root && parsed.matches(scope) {
		out = append(out, scope)
		if first {
			return out
		}
	}
	walk(scope)
	return out
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == name
	})
}

func classList(n *html.Node) []string {
	value, _ := getAttr(n, "class")
	return strings.Fields(value)
}

func setClassList(n *html.Node, classes []string) {
	if len(classes) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(classes, " "))
}

// ownText is the text of the direct text children of n.
func ownText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// Tag returns the lower-case tag name.
func (e *Element) Tag() string { return e.node.Data }

// ID returns the id attribute.
func (e *Element) ID() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	id, _ := getAttr(e.node, "id")
	return id
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return getAttr(e.node, strings.ToLower(name))
}

// SetAttr sets the named attribute. Setting "class" replaces the class list.
func (e *Element) SetAttr(name, value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	name = strings.ToLower(name)
	if name == "class" {
		setClassList(e.node, strings.Fields(value))
		return
	}
	setAttr(e.node, name, value)
}

// RemoveAttr deletes the named attribute.
func (e *Element) RemoveAttr(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeAttr(e.node, strings.ToLower(name))
}

// Text returns the text content of the element itself.
func (e *Element) Text() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return ownText(e.node)
}

// SetText replaces the text children. Element children are kept.
func (e *Element) SetText(text string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode {
			e.node.RemoveChild(c)
		}
		c = next
	}
	if text == "" {
		return
	}
	e.node.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, e.node.FirstChild)
}

// Value returns the control value. A select reports its selected option.
func (e *Element) Value() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	if e.node.DataAtom == atom.Select {
		if opts := optionNodes(e.node); len(opts) > 0 {
			for _, opt := range opts {
				if _, ok := getAttr(opt, "selected"); ok {
					value, _ := getAttr(opt, "value")
					return value
				}
			}
			return ""
		}
	}
	value, _ := getAttr(e.node, "value")
	return value
}

// SetValue sets the control value. A select with options only takes values
// of one of its options and otherwise ends up with no selection.
func (e *Element) SetValue(value string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.DataAtom == atom.Select {
		if opts := optionNodes(e.node); len(opts) > 0 {
			selectOption(opts, value)
			return
		}
	}
	setAttr(e.node, "value", value)
}

func optionNodes(sel *html.Node) []*html.Node {
	var out []*html.Node
	for c := sel.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Option {
			out = append(out, c)
		}
	}
	return out
}

// selectOption marks the option carrying value and reports whether one did.
func selectOption(opts []*html.Node, value string) bool {
	found := false
	for _, opt := range opts {
		removeAttr(opt, "selected")
		if v, _ := getAttr(opt, "value"); v == value && !found {
			setAttr(opt, "selected", "")
			found = true
		}
	}
	return found
}

// HasClass reports whether name is in the class list.
func (e *Element) HasClass(name string) bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return slices.Contains(classList(e.node), name)
}

// AddClass adds each name not already present.
func (e *Element) AddClass(names ...string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	classes := classList(e.node)
	for _, name := range names {
		if name == "" || slices.Contains(classes, name) {
			continue
		}
		classes = append(classes, name)
	}
	setClassList(e.node, classes)
}

// RemoveClass removes each name.
func (e *Element) RemoveClass(names ...string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	classes := slices.DeleteFunc(classList(e.node), func(class string) bool {
		return slices.Contains(names, class)
	})
	setClassList(e.node, classes)
}

// Classes returns a copy of the class list.
func (e *Element) Classes() []string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return classList(e.node)
}

// AppendChild moves child under e. Elements of other implementations or
// documents are ignored.
func (e *Element) AppendChild(child core.Element) {
	c, ok := child.(*Element)
	if !ok || c == nil || c.doc != e.doc || c == e {
		return
	}
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if c.node.Parent != nil {
		c.node.Parent.RemoveChild(c.node)
	}
	e.node.AppendChild(c.node)
	e.doc.wrapMu.Lock()
	e.doc.elements[c.node] = c
	e.doc.wrapMu.Unlock()
}

// Remove detaches e from its parent.
func (e *Element) Remove() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.node.Parent == nil || e.node == e.doc.root {
		return
	}
	e.node.Parent.RemoveChild(e.node)
	e.doc.wrapMu.Lock()
	delete(e.doc.elements, e.node)
	e.doc.wrapMu.Unlock()
}

// Children returns the direct child elements.
func (e *Element) Children() []core.Element {
	e.doc.mu.RLock()
	var nodes []*html.Node
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			nodes = append(nodes, c)
		}
	}
	e.doc.mu.RUnlock()
	return e.doc.toCore(nodes)
}

// Parent returns the parent element, or nil for the root and detached elements.
func (e *Element) Parent() core.Element {
	e.doc.mu.RLock()
	p := e.node.Parent
	root := e.node == e.doc.root
	e.doc.mu.RUnlock()
	if root || p == nil || p.Type != html.ElementNode {
		return nil
	}
	return e.doc.element(p)
}

// Options returns the options of a select.
func (e *Element) Options() []core.Option {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	opts := optionNodes(e.node)
	if len(opts) == 0 {
		return nil
	}
	out := make([]core.Option, len(opts))
	for i, opt := range opts {
		value, _ := getAttr(opt, "value")
		out[i] = core.Option{Value: value, Label: ownText(opt)}
	}
	return out
}

// SetOptions replaces the options of a select and selects the first one when
// the current value is not among them.
func (e *Element) SetOptions(opts []core.Option) {
	current := e.Value()
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for _, old := range optionNodes(e.node) {
		e.node.RemoveChild(old)
	}
	removeAttr(e.node, "value")
	nodes := make([]*html.Node, 0, len(opts))
	for _, opt := range opts {
		n := newNode("option")
		setAttr(n, "value", opt.Value)
		if opt.Label != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: opt.Label})
		}
		e.node.AppendChild(n)
		nodes = append(nodes, n)
	}
	if len(nodes) > 0 && !selectOption(nodes, current) {
		setAttr(nodes[0], "selected", "")
	}
}

// Editable reports whether typing into e edits it: inputs, selects, text
// areas and content-editable regions.
func (e *Element) Editable() bool {
	switch e.node.DataAtom {
	case atom.Input, atom.Select, atom.Textarea:
		return true
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	value, ok := getAttr(e.node, "contenteditable")
	return ok && (value == "" || strings.EqualFold(value, "true"))
}

// Attached reports whether e is reachable from the document root.
func (e *Element) Attached() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for cur := e.node; cur != nil; cur = cur.Parent {
		if cur == e.doc.root {
			return true
		}
	}
	return false
}

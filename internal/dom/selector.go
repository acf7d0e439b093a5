package dom

import (
	"slices"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// selector is one compound selector: tag, #id, .class and [attr] or
// [attr="value"] parts with no combinators.
type selector struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatch
}

type attrMatch struct {
	name     string
	value    string
	hasValue bool
}

var selectorCache sync.Map

// parseSelector parses sel, returning false for anything outside the
// supported subset.
func parseSelector(sel string) (selector, bool) {
	if cached, ok := selectorCache.Load(sel); ok {
		return cached.(selector), true
	}
	parsed, ok := parseSelectorUncached(strings.TrimSpace(sel))
	if ok {
		selectorCache.Store(sel, parsed)
	}
	return parsed, ok
}

func parseSelectorUncached(sel string) (selector, bool) {
	var out selector
	if sel == "" {
		return out, false
	}
	i := 0
	start := i
	for i < len(sel) && isIdentByte(sel[i]) {
		i++
	}
	out.tag = strings.ToLower(sel[start:i])
	for i < len(sel) {
		switch sel[i] {
		case '#':
			i++
			start = i
			for i < len(sel) && isIdentByte(sel[i]) {
				i++
			}
			if start == i {
				return selector{}, false
			}
			out.id = sel[start:i]
		case '.':
			i++
			start = i
			for i < len(sel) && isIdentByte(sel[i]) {
				i++
			}
			if start == i {
				return selector{}, false
			}
			out.classes = append(out.classes, sel[start:i])
		case '[':
			end := strings.IndexByte(sel[i:], ']')
			if end < 0 {
				return selector{}, false
			}
			match, ok := parseAttrMatch(sel[i+1 : i+end])
			if !ok {
				return selector{}, false
			}
			out.attrs = append(out.attrs, match)
			i += end + 1
		default:
			return selector{}, false
		}
	}
	return out, true
}

func parseAttrMatch(body string) (attrMatch, bool) {
	name, value, hasValue := strings.Cut(body, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return attrMatch{}, false
	}
	for i := 0; i < len(name); i++ {
		if !isIdentByte(name[i]) {
			return attrMatch{}, false
		}
	}
	if !hasValue {
		return attrMatch{name: strings.ToLower(name)}, true
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return attrMatch{name: strings.ToLower(name), value: value, hasValue: true}, true
}

func isIdentByte(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func (s selector) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && s.tag != n.Data {
		return false
	}
	if s.id != "" {
		if id, _ := getAttr(n, "id"); id != s.id {
			return false
		}
	}
	if len(s.classes) > 0 {
		classes := classList(n)
		for _, class := range s.classes {
			if !slices.Contains(classes, class) {
				return false
			}
		}
	}
	for _, attr := range s.attrs {
		value, ok := getAttr(n, attr.name)
		if !ok {
			return false
		}
		if attr.hasValue && value != attr.value {
			return false
		}
	}
	return true
}

package sshserver

import (
	"strings"
	"unicode/utf8"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/schema"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	rowIndent     = "  "
	inputMinWidth = 10
)

type segmentKind int

const (
	segText segmentKind = iota
	segButton
	segInput
	segSelect
)

// segment is one rendered piece of a control row. Focusable segments carry
// the element they stand for.
type segment struct {
	kind    segmentKind
	text    string
	el      core.Element
	primary bool
	hint    string
}

type layoutRow []segment

// view is everything needed to paint one frame.
type view struct {
	doc        core.Document
	tabs       *core.TabGroup
	variant    schema.Variant
	operator   schema.OperatorID
	focus      core.Element
	editor     *lineEditor
	connected  bool
	channelErr string
	width      int
	height     int
}

type frame struct {
	lines     []string
	cursorRow int
	cursorCol int
}

// controlScope is the subtree whose controls are currently reachable.
func controlScope(doc core.Document, tabs *core.TabGroup) core.Element {
	if doc == nil {
		return nil
	}
	if tabs != nil {
		if panel := tabs.ActivePanel(); panel != nil {
			return panel
		}
	}
	return doc.Root()
}

// layoutControls groups the controls under scope into rows. Container
// elements become one row each; loose controls are gathered until the next
// container.
func layoutControls(scope core.Element) []layoutRow {
	if scope == nil {
		return nil
	}
	var rows []layoutRow
	var pending layoutRow
	flush := func() {
		if len(pending) > 0 {
			rows = append(rows, pending)
			pending = nil
		}
	}
	var walk func(parent core.Element)
	walk = func(parent core.Element) {
		for _, child := range parent.Children() {
			if skipSubtree(child) {
				continue
			}
			switch child.Tag() {
			case "div", "form":
				flush()
				var row layoutRow
				for _, leaf := range child.Children() {
					if seg, ok := segmentOf(leaf); ok {
						row = append(row, seg)
					}
				}
				if len(row) > 0 {
					rows = append(rows, row)
				}
			case "section":
				flush()
				walk(child)
				flush()
			default:
				if seg, ok := segmentOf(child); ok {
					pending = append(pending, seg)
				}
			}
		}
	}
	walk(scope)
	flush()
	return rows
}

func skipSubtree(el core.Element) bool {
	if el.Tag() == "header" || el.Tag() == "nav" || el.ID() == core.ToastContainerID {
		return true
	}
	if hidden, _ := el.Attr("aria-hidden"); hidden == "true" {
		return true
	}
	return false
}

func segmentOf(el core.Element) (segment, bool) {
	switch el.Tag() {
	case "label":
		return segment{kind: segText, text: sanitizeOutputLine(el.Text()) + ":"}, true
	case "span":
		return segment{kind: segText, text: sanitizeOutputLine(el.Text())}, true
	case "button":
		hint, _ := el.Attr("data-shortcut")
		return segment{
			kind:    segButton,
			text:    sanitizeOutputLine(el.Text()),
			el:      el,
			primary: el.HasClass(core.ThemeButtonActiveClass),
			hint:    sanitizeOutputLine(hint),
		}, true
	case "input":
		return segment{kind: segInput, text: sanitizeOutputLine(el.Value()), el: el}, true
	case "select":
		return segment{kind: segSelect, text: selectedLabel(el), el: el}, true
	default:
		return segment{}, false
	}
}

func selectedLabel(el core.Element) string {
	value := el.Value()
	if lister, ok := el.(core.OptionLister); ok {
		for _, opt := range lister.Options() {
			if opt.Value == value {
				if opt.Label != "" {
					return sanitizeOutputLine(opt.Label)
				}
				return sanitizeOutputLine(opt.Value)
			}
		}
	}
	if value == "" {
		return "-"
	}
	return sanitizeOutputLine(value)
}

// focusRing lists the focusable controls of rows in display order.
func focusRing(rows []layoutRow) []core.Element {
	var ring []core.Element
	for _, row := range rows {
		for _, seg := range row {
			if seg.el != nil {
				ring = append(ring, seg.el)
			}
		}
	}
	return ring
}

func (v view) render() frame {
	width := v.width
	if width <= 0 {
		width = defaultWidth
	}
	height := v.height
	if height <= 0 {
		height = defaultHeight
	}
	theme := themeForName(themeOf(rootOf(v.doc)))

	var body []string
	body = append(body, v.renderScoreboard(width, theme)...)
	if v.tabs != nil {
		body = append(body, v.renderTabBar(width, theme), "")
	}
	focusLine := -1
	cursorRow, cursorCol := -1, 0
	for _, row := range layoutControls(controlScope(v.doc, v.tabs)) {
		lines, focusAt, cursorAt, col := v.renderRow(row, width, theme)
		if focusAt >= 0 {
			focusLine = len(body) + focusAt
		}
		if cursorAt >= 0 {
			cursorRow = len(body) + cursorAt
			cursorCol = col
		}
		body = append(body, lines...)
	}
	if toasts := v.renderToasts(width, theme); len(toasts) > 0 {
		body = append(body, "")
		body = append(body, toasts...)
	}

	avail := height - 2
	if avail < 1 {
		avail = 1
	}
	start := 0
	if len(body) > avail && focusLine >= avail {
		start = focusLine - avail + 1
	}
	end := start + avail
	if end > len(body) {
		end = len(body)
	}

	out := frame{lines: make([]string, 0, height)}
	out.lines = append(out.lines, v.renderTitle(width, theme))
	for _, line := range body[start:end] {
		out.lines = append(out.lines, padLine(line, width, theme))
	}
	for len(out.lines) < height-1 {
		out.lines = append(out.lines, padLine("", width, theme))
	}
	out.lines = append(out.lines, v.renderFooter(width, theme))
	if cursorRow >= start && cursorRow < end {
		out.cursorRow = cursorRow - start + 2
		out.cursorCol = cursorCol
	}
	return out
}

func rootOf(doc core.Document) core.Element {
	if doc == nil {
		return nil
	}
	return doc.Root()
}

func (v view) field(name string) core.Element {
	if v.doc == nil {
		return nil
	}
	return v.doc.Query(core.FieldSelector(name))
}

func (v view) fieldText(name string) string {
	el := v.field(name)
	if el == nil {
		return ""
	}
	return sanitizeOutputLine(el.Text())
}

func (v view) renderTitle(width int, theme tuiTheme) string {
	bar := ansiBgRGB(theme.BarBG) + ansiFgRGB(theme.BarFG)
	left := " courtside · " + string(v.variant)
	if v.operator != "" {
		left += " · " + sanitizeOutputLine(string(v.operator))
	}
	right := "● online "
	if !v.connected {
		right = "○ offline "
		if v.channelErr != "" {
			right = "○ " + sanitizeOutputLine(v.channelErr) + " "
		}
	}
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	line := bar + ansiBold + left + ansiReset + bar + strings.Repeat(" ", gap)
	if v.connected {
		line += ansiFgRGB(theme.SuccessFG) + right
	} else {
		line += ansiFgRGB(theme.ErrorFG) + right
	}
	return trimANSIToWidth(line, width) + ansiReset
}

func (v view) renderScoreboard(width int, theme tuiTheme) []string {
	score := ansiBold + ansiFgRGB(theme.ScoreFG)
	muted := ansiFgRGB(theme.MutedFG)
	timerStyle := ansiBold + ansiFgRGB(theme.ScoreFG)
	if el := v.field("time"); el != nil && el.HasClass(core.TimerCriticalClass) {
		timerStyle = ansiBold + ansiFgRGB(theme.CriticalFG)
	}
	side := func(team, points, fouls string) string {
		return styled(orDash(v.fieldText(team)), ansiBold, theme) + " " +
			styled(orDash(v.fieldText(points)), score, theme) + " " +
			styled("fouls "+orDash(v.fieldText(fouls)), muted, theme)
	}
	sep := styled(" │ ", muted, theme)
	line := rowIndent + side("team-local", "points-local", "fouls-local") + sep +
		styled(orDash(v.fieldText("time")), timerStyle, theme) + " " +
		styled(v.fieldText("period"), muted, theme) + sep +
		side("team-visit", "points-visit", "fouls-visit")

	detail := rowIndent + styled(v.fieldText("countdown"), muted, theme)
	if el := v.field("display-theme"); el != nil {
		if name := themeOf(el); name != "" {
			detail += styled("  ·  display "+string(name), muted, theme)
		}
	}
	return []string{"", trimANSIToWidth(line, width), trimANSIToWidth(detail, width), ""}
}

func (v view) renderTabBar(width int, theme tuiTheme) string {
	var b strings.Builder
	b.WriteString(rowIndent)
	for i, name := range v.tabs.Names() {
		if i > 0 {
			b.WriteString("  ")
		}
		label := tabLabel(v.doc, name)
		if name == v.tabs.Active() {
			b.WriteString(styled(" "+label+" ", ansiBold+ansiBgRGB(theme.BarBG)+ansiFgRGB(theme.AccentFG), theme))
			continue
		}
		b.WriteString(styled(" "+label+" ", ansiFgRGB(theme.MutedFG), theme))
	}
	b.WriteString(styled("   [ ]", ansiDim+ansiFgRGB(theme.MutedFG), theme))
	return trimANSIToWidth(b.String(), width)
}

func tabLabel(doc core.Document, name string) string {
	if doc != nil {
		if btn := doc.Query(`[` + core.TabTargetAttr + `="` + name + `"]`); btn != nil && btn.Text() != "" {
			return sanitizeOutputLine(btn.Text())
		}
	}
	return name
}

// renderRow wraps row to width. It returns the lines, the line index holding
// the focused control and, when the focused control is a text entry, the
// line index and 1-based column of the text cursor. Missing indexes are -1.
func (v view) renderRow(row layoutRow, width int, theme tuiTheme) ([]string, int, int, int) {
	var lines []string
	var cur strings.Builder
	col := utf8.RuneCountInString(rowIndent)
	cur.WriteString(rowIndent)
	focusAt, cursorAt, cursorCol := -1, -1, 0
	for i, seg := range row {
		text := decorate(seg)
		w := utf8.RuneCountInString(text)
		if i > 0 {
			if col+1+w > width && col > len(rowIndent) {
				lines = append(lines, cur.String())
				cur.Reset()
				cur.WriteString(rowIndent + rowIndent)
				col = 2 * len(rowIndent)
			} else {
				cur.WriteString(" ")
				col++
			}
		}
		focused := seg.el != nil && seg.el == v.focus
		if focused {
			focusAt = len(lines)
			if seg.kind == segInput && v.editor != nil {
				cursorAt = len(lines)
				cursorCol = col + 2 + v.editor.Cursor()
			}
		}
		cur.WriteString(styled(text, segmentStyle(seg, focused, theme), theme))
		col += w
	}
	lines = append(lines, cur.String())
	for i := range lines {
		lines[i] = trimANSIToWidth(lines[i], width)
	}
	return lines, focusAt, cursorAt, cursorCol
}

func decorate(seg segment) string {
	switch seg.kind {
	case segButton:
		text := seg.text
		if seg.hint != "" {
			text += " (" + seg.hint + ")"
		}
		return "[" + text + "]"
	case segInput:
		text := seg.text
		if pad := inputMinWidth - utf8.RuneCountInString(text); pad > 0 {
			text += strings.Repeat(" ", pad)
		}
		return "[" + text + "]"
	case segSelect:
		return "‹ " + seg.text + " ›"
	default:
		return seg.text
	}
}

func segmentStyle(seg segment, focused bool, theme tuiTheme) string {
	if focused {
		return ansiBold + ansiBgRGB(theme.FocusBG) + ansiFgRGB(theme.FocusFG)
	}
	switch seg.kind {
	case segText:
		return ansiFgRGB(theme.MutedFG)
	case segButton:
		if seg.primary {
			return ansiBold + ansiFgRGB(theme.AccentFG)
		}
		return ""
	default:
		return ansiFgRGB(theme.InfoFG)
	}
}

func (v view) renderToasts(width int, theme tuiTheme) []string {
	if v.doc == nil {
		return nil
	}
	container := v.doc.ByID(core.ToastContainerID)
	if container == nil {
		return nil
	}
	var out []string
	for _, toast := range container.Children() {
		if !toast.HasClass(core.ToastVisibleClass) {
			continue
		}
		kind := toastKind(toast)
		mark := "•"
		switch kind {
		case core.NoticeSuccess:
			mark = "✓"
		case core.NoticeError:
			mark = "✗"
		}
		line := rowIndent + styled(mark+" "+sanitizeOutputLine(toast.Text()), ansiBold+ansiFgRGB(theme.noticeFG(kind)), theme)
		out = append(out, trimANSIToWidth(line, width))
	}
	return out
}

func toastKind(el core.Element) core.NoticeKind {
	for _, kind := range []core.NoticeKind{core.NoticeSuccess, core.NoticeError, core.NoticeInfo} {
		if el.HasClass(core.ToastClass + "--" + string(kind)) {
			return kind
		}
	}
	return core.NoticeInfo
}

func (v view) renderFooter(width int, theme tuiTheme) string {
	help := " Tab focus · Enter activate · ←/→ choose · Esc leave · "
	if v.tabs != nil {
		help += "[ ] tabs · "
	}
	help += "Ctrl-C quit"
	bar := ansiBgRGB(theme.BarBG) + ansiFgRGB(theme.MutedFG)
	if pad := width - utf8.RuneCountInString(help); pad > 0 {
		help += strings.Repeat(" ", pad)
	}
	return trimANSIToWidth(bar+help, width) + ansiReset
}

// styled wraps text in style and restores the base colors afterwards.
func styled(text, style string, theme tuiTheme) string {
	if style == "" {
		return text
	}
	return style + text + ansiReset + theme.base()
}

func padLine(line string, width int, theme tuiTheme) string {
	pad := width - visibleWidth(line)
	if pad < 0 {
		pad = 0
	}
	return theme.base() + line + strings.Repeat(" ", pad) + ansiReset
}

func orDash(text string) string {
	if text == "" {
		return "-"
	}
	return text
}

func sanitizeOutputLine(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		ch := text[i]
		if ch == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r == '\t' {
			b.WriteString(" ")
			i += size
			continue
		}
		if r < 0x20 || r == 0x7f {
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func skipEscape(text string, i int) int {
	if i >= len(text) {
		return i
	}
	switch text[i] {
	case '[':
		return skipCSI(text, i+1)
	case ']':
		return skipOSC(text, i+1)
	default:
		return i + 1
	}
}

func skipCSI(text string, i int) int {
	for i < len(text) {
		b := text[i]
		if b >= 0x40 && b <= 0x7e {
			return i + 1
		}
		i++
	}
	return i
}

func skipOSC(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case 0x07:
			return i + 1
		case 0x1b:
			if i+1 < len(text) && text[i+1] == '\\' {
				return i + 2
			}
		}
		i++
	}
	return i
}

func visibleWidth(text string) int {
	width := 0
	for i := 0; i < len(text); {
		if text[i] == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		if size == 0 {
			break
		}
		i += size
		width++
	}
	return width
}

func trimANSIToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	visible := 0
	for i := 0; i < len(text); {
		if text[i] == 0x1b {
			start := i
			i = skipEscape(text, i+1)
			b.WriteString(text[start:i])
			continue
		}
		if visible >= width {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if size == 0 {
			break
		}
		b.WriteRune(r)
		i += size
		visible++
	}
	return b.String()
}

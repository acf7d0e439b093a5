package sshserver

import (
	"context"
	"io"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/jonboulle/clockwork"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/internal/dom"
	"pkt.systems/courtside/internal/eventbus"
	"pkt.systems/courtside/internal/input"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

const (
	defaultRenderInterval = 250 * time.Millisecond
	postQueueDepth        = 32
	keyQueueDepth         = 32
	// A pty has no key-up, so the same shortcut arriving again within
	// repeatWindow is treated as an autorepeat of a held key.
	repeatWindow = 40 * time.Millisecond
)

// sessionConfig describes one terminal console.
type sessionConfig struct {
	Variant        schema.Variant
	Catalog        dom.Catalog
	Notices        core.NoticeTimings
	Shortcuts      []input.Shortcut
	Authority      core.Authority
	State          StateReader
	Status         ChannelStatus
	Clock          clockwork.Clock
	Events         <-chan eventbus.Event
	RenderInterval time.Duration
	Operator       schema.OperatorID
}

// terminalSession is one operator console drawn on an SSH pty. Everything
// that touches the document runs on the Run loop; timers and countdown
// results reach it through post.
type terminalSession struct {
	out            *screen
	console        *core.Console
	doc            core.Document
	keyboard       *input.Keyboard
	pointer        *input.PointerBindings
	clock          clockwork.Clock
	events         <-chan eventbus.Event
	posted         chan func()
	done           chan struct{}
	renderInterval time.Duration

	variant    schema.Variant
	operator   schema.OperatorID
	focus      core.Element
	editor     lineEditor
	connected  bool
	channelErr string
	width      int
	height     int
	dirty      bool
	lastCode   string
	lastKeyAt  time.Time
}

func newTerminalSession(cfg sessionConfig, out io.Writer) (*terminalSession, error) {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.RenderInterval <= 0 {
		cfg.RenderInterval = defaultRenderInterval
	}
	if cfg.Shortcuts == nil {
		cfg.Shortcuts = input.DefaultShortcuts()
	}
	doc, err := dom.Build(cfg.Variant, cfg.Catalog)
	if err != nil {
		return nil, err
	}
	keyboard, err := input.NewKeyboard(cfg.Shortcuts)
	if err != nil {
		return nil, err
	}
	input.ApplyHints(doc, keyboard.Table())

	t := &terminalSession{
		out:            newScreen(out),
		doc:            doc,
		keyboard:       keyboard,
		pointer:        input.BindPointer(doc),
		clock:          cfg.Clock,
		events:         cfg.Events,
		posted:         make(chan func(), postQueueDepth),
		done:           make(chan struct{}),
		renderInterval: cfg.RenderInterval,
		variant:        cfg.Variant,
		operator:       cfg.Operator,
		connected:      true,
	}
	t.console, err = core.NewConsole(core.ConsoleConfig{Variant: cfg.Variant, Notices: cfg.Notices}, core.ConsoleDeps{
		Document:  doc,
		Authority: cfg.Authority,
		Focus:     t.isFocused,
		Clock:     cfg.Clock,
		Post:      t.post,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Status != nil {
		t.connected, t.channelErr = cfg.Status.Channel()
	}
	if cfg.State != nil {
		if snap, ok := cfg.State.Current(); ok {
			t.console.Mirror().Replace(snap)
			t.console.Render()
		}
	}
	return t, nil
}

// SetSize records the pty dimensions.
func (t *terminalSession) SetSize(width, height int) {
	if width > 0 {
		t.width = width
	}
	if height > 0 {
		t.height = height
	}
}

// Run drives the console until the input closes, the operator quits or ctx
// ends.
func (t *terminalSession) Run(ctx context.Context, in io.Reader, winCh <-chan gliderssh.Window) error {
	defer close(t.done)
	defer t.console.Close()
	log := pslog.Ctx(ctx)

	t.out.EnterAltScreen()
	defer t.out.ExitAltScreen()

	if err := t.console.Start(ctx); err != nil {
		t.console.Notifier().Notify(core.NoticeError, "Authority unavailable")
	}

	keys := make(chan key, keyQueueDepth)
	go readKeys(in, keys, t.done)

	ticker := t.clock.NewTicker(t.renderInterval)
	defer ticker.Stop()

	t.draw(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if t.handleKey(ctx, k) {
				log.Debug("ssh console quit")
				return nil
			}
			t.draw(ctx)
		case win, ok := <-winCh:
			if !ok {
				winCh = nil
				continue
			}
			t.SetSize(win.Width, win.Height)
			t.draw(ctx)
		case ev, ok := <-t.events:
			if !ok {
				t.events = nil
				continue
			}
			t.handleEvent(ctx, ev)
		case fn := <-t.posted:
			fn()
			t.dirty = true
		case <-ticker.Chan():
			if t.dirty {
				t.draw(ctx)
			}
		}
	}
}

func (t *terminalSession) post(fn func()) {
	select {
	case t.posted <- fn:
	case <-t.done:
	}
}

func (t *terminalSession) isFocused(el core.Element) bool {
	return el != nil && el == t.focus && input.IsTextEntry(el)
}

func (t *terminalSession) handleEvent(ctx context.Context, ev eventbus.Event) {
	switch ev.Type {
	case eventbus.EventState:
		_ = t.console.HandleState(ctx, ev.Payload)
	case eventbus.EventChannel:
		t.connected = ev.Connected
		t.channelErr = ev.Err
	default:
		return
	}
	t.dirty = true
}

// handleKey applies k and reports whether the session should end.
func (t *terminalSession) handleKey(ctx context.Context, k key) bool {
	switch k.kind {
	case keyCtrlC, keyCtrlD:
		return true
	case keyCtrlL:
		return false
	case keyTab, keyDown:
		t.moveFocus(1)
		return false
	case keyShiftTab, keyUp:
		t.moveFocus(-1)
		return false
	case keyEscape:
		t.blur()
		return false
	}
	if t.focus != nil && t.focus.Tag() == "input" {
		t.handleEditKey(ctx, k)
		return false
	}
	switch k.kind {
	case keyEnter:
		t.activate(ctx)
	case keyLeft:
		t.cycleOption(ctx, -1)
	case keyRight:
		t.cycleOption(ctx, 1)
	case keyRune:
		t.handleRune(ctx, k.r)
	}
	return false
}

func (t *terminalSession) handleEditKey(ctx context.Context, k key) {
	switch k.kind {
	case keyEnter:
		t.submit(ctx, enclosingForm(t.focus))
		return
	case keyRune:
		t.editor.InsertRune(k.r)
	case keyBackspace:
		t.editor.Backspace()
	case keyDelete:
		t.editor.Delete()
	case keyLeft:
		t.editor.MoveLeft()
	case keyRight:
		t.editor.MoveRight()
	case keyHome, keyCtrlA:
		t.editor.MoveStart()
	case keyEnd, keyCtrlE:
		t.editor.MoveEnd()
	case keyCtrlW:
		t.editor.DeleteWordBackward()
	case keyCtrlU:
		t.editor.KillLineStart()
	case keyCtrlK:
		t.editor.KillLineEnd()
	default:
		return
	}
	t.focus.SetValue(t.editor.String())
}

func (t *terminalSession) handleRune(ctx context.Context, r rune) {
	if tabs := t.console.Tabs(); tabs != nil && (r == '[' || r == ']') {
		delta := 1
		if r == '[' {
			delta = -1
		}
		tabs.Cycle(delta)
		if !t.inRing(t.focus) {
			t.focus = nil
		}
		return
	}
	code, ok := input.CodeForRune(r)
	if !ok {
		return
	}
	now := t.clock.Now()
	repeat := code == t.lastCode && now.Sub(t.lastKeyAt) < repeatWindow
	t.lastCode, t.lastKeyAt = code, now
	if in, ok := t.keyboard.Handle(input.KeyEvent{Code: code, Repeat: repeat, Target: t.focus}); ok {
		t.dispatch(ctx, in)
	}
}

// activate handles Enter on the focused control.
func (t *terminalSession) activate(ctx context.Context) {
	el := t.focus
	if el == nil {
		return
	}
	switch el.Tag() {
	case "button":
		if in, ok := t.pointer.Activate(el); ok {
			t.dispatch(ctx, in)
			return
		}
		if kind, _ := el.Attr("type"); kind == "submit" {
			t.submit(ctx, enclosingForm(el))
		}
	case "select":
		if form := enclosingForm(el); form != nil {
			t.submit(ctx, form)
			return
		}
		if in, ok := input.Change(el); ok {
			t.dispatch(ctx, in)
		}
	}
}

func (t *terminalSession) submit(ctx context.Context, form core.Element) {
	if in, ok := input.Submit(t.doc, form); ok {
		t.dispatch(ctx, in)
	}
}

// cycleOption steps the focused selection control through its options.
// Controls that dispatch on change send the new value right away.
func (t *terminalSession) cycleOption(ctx context.Context, delta int) {
	el := t.focus
	if el == nil || el.Tag() != "select" {
		return
	}
	lister, ok := el.(core.OptionLister)
	if !ok {
		return
	}
	opts := lister.Options()
	if len(opts) == 0 {
		return
	}
	idx := -1
	for i, opt := range opts {
		if opt.Value == el.Value() {
			idx = i
			break
		}
	}
	next := 0
	switch {
	case idx < 0 && delta < 0:
		next = len(opts) - 1
	case idx >= 0:
		next = ((idx+delta)%len(opts) + len(opts)) % len(opts)
	}
	el.SetValue(opts[next].Value)
	if in, ok := input.Change(el); ok {
		t.dispatch(ctx, in)
	}
}

func (t *terminalSession) dispatch(ctx context.Context, in intent.Intent) {
	log := pslog.Ctx(ctx).With("action", in.Action())
	if err := t.console.Dispatch(ctx, in); err != nil {
		log.Warn("intent not delivered", "err", err)
		return
	}
	log.Debug("intent dispatched")
}

func (t *terminalSession) ring() []core.Element {
	return focusRing(layoutControls(controlScope(t.doc, t.console.Tabs())))
}

func (t *terminalSession) inRing(el core.Element) bool {
	if el == nil {
		return false
	}
	for _, candidate := range t.ring() {
		if candidate == el {
			return true
		}
	}
	return false
}

func (t *terminalSession) moveFocus(delta int) {
	ring := t.ring()
	if len(ring) == 0 {
		t.blur()
		return
	}
	idx := -1
	for i, el := range ring {
		if el == t.focus {
			idx = i
			break
		}
	}
	var next int
	switch {
	case idx < 0 && delta < 0:
		next = len(ring) - 1
	case idx < 0:
		next = 0
	default:
		next = ((idx+delta)%len(ring) + len(ring)) % len(ring)
	}
	t.setFocus(ring[next])
}

func (t *terminalSession) setFocus(el core.Element) {
	t.focus = el
	if el != nil && el.Tag() == "input" {
		t.editor.SetString(el.Value())
	}
}

// blur drops focus. The control keeps the operator's value until the next
// snapshot reclaims it.
func (t *terminalSession) blur() {
	if t.focus == nil {
		return
	}
	t.focus = nil
	t.editor.Clear()
}

func (t *terminalSession) view() view {
	return view{
		doc:        t.doc,
		tabs:       t.console.Tabs(),
		variant:    t.variant,
		operator:   t.operator,
		focus:      t.focus,
		editor:     &t.editor,
		connected:  t.connected,
		channelErr: t.channelErr,
		width:      t.width,
		height:     t.height,
	}
}

func (t *terminalSession) draw(ctx context.Context) {
	f := t.view().render()
	if err := t.out.Render(f.lines, f.cursorRow, f.cursorCol); err != nil {
		pslog.Ctx(ctx).Debug("ssh render failed", "err", err)
	}
	t.dirty = false
}

func enclosingForm(el core.Element) core.Element {
	type parenter interface {
		Parent() core.Element
	}
	for el != nil {
		if el.Tag() == "form" {
			return el
		}
		p, ok := el.(parenter)
		if !ok {
			return nil
		}
		el = p.Parent()
	}
	return nil
}

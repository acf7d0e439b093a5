package core

import (
	"context"
	"sync"

	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

// ConsoleConfig selects the layout and feedback timings of a console.
type ConsoleConfig struct {
	Variant schema.Variant
	Notices NoticeTimings
}

// Console is one operator UI instance: the mirror, reconciler, dispatcher,
// notifier and tab group bound to a single document.
type Console struct {
	doc        Document
	focus      FocusFunc
	authority  Authority
	mirror     *Mirror
	reconciler *Reconciler
	dispatcher *Dispatcher
	notifier   *Notifier
	tabs       *TabGroup
	startOnce  sync.Once
	startErr   error
}

// NewConsole builds a console over deps.Document. The authority is required.
func NewConsole(cfg ConsoleConfig, deps ConsoleDeps) (*Console, error) {
	if deps.Authority == nil {
		return nil, schema.ErrChannelUnavailable
	}
	fields, err := FieldMapFor(cfg.Variant)
	if err != nil {
		return nil, err
	}
	if deps.Focus == nil {
		deps.Focus = NoFocus
	}
	if deps.Mirror == nil {
		deps.Mirror = NewMirror()
	}
	c := &Console{
		doc:        deps.Document,
		focus:      deps.Focus,
		authority:  deps.Authority,
		mirror:     deps.Mirror,
		reconciler: NewReconciler(fields),
	}
	c.notifier = NewNotifier(deps.Document, deps.Clock, deps.Post, cfg.Notices)
	c.dispatcher, err = NewDispatcher(DispatcherConfig{
		Authority:     deps.Authority,
		Notices:       c.notifier,
		CountdownText: c.countdownText,
		Label: func(controlID, value string) string {
			return OptionLabel(c.doc, controlID, value)
		},
		Post: deps.Post,
	})
	if err != nil {
		return nil, err
	}
	if fields.Tabs {
		c.tabs = NewTabGroup(deps.Document)
	}
	return c, nil
}

// Start requests the initial snapshot. Only the first call reaches the
// authority; later calls return the first result.
func (c *Console) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		c.startErr = c.authority.RequestInitialState(ctx)
		if c.startErr != nil {
			pslog.Ctx(ctx).Error("initial state request failed", "err", c.startErr)
		}
	})
	return c.startErr
}

// HandleState accepts a stateUpdated payload. A payload that does not decode
// is logged and dropped; the document keeps showing the previous snapshot.
func (c *Console) HandleState(ctx context.Context, payload []byte) error {
	snap, err := c.mirror.Accept(payload)
	if err != nil {
		pslog.Ctx(ctx).Warn("snapshot dropped", "err", err, "bytes", len(payload))
		return err
	}
	c.reconciler.Apply(c.doc, snap, c.focus)
	return nil
}

// Render reapplies the mirrored snapshot, if any, to the document.
func (c *Console) Render() bool {
	snap, ok := c.mirror.Current()
	if !ok {
		return false
	}
	c.reconciler.Apply(c.doc, snap, c.focus)
	return true
}

// Dispatch forwards in to the authority. Theme choices are reflected in the
// document right away; the next snapshot settles them.
func (c *Console) Dispatch(ctx context.Context, in intent.Intent) error {
	switch v := in.(type) {
	case intent.SetOperatorTheme:
		c.reconciler.ApplyTheme(c.doc, OperatorTheme, v.Theme)
	case intent.SetDisplayTheme:
		c.reconciler.ApplyTheme(c.doc, DisplayTheme, v.Theme)
	}
	return c.dispatcher.Dispatch(ctx, in)
}

// SubmitCountdown validates text with the authority and waits for the verdict.
func (c *Console) SubmitCountdown(ctx context.Context, text string) (bool, error) {
	return c.dispatcher.SubmitCountdown(ctx, text)
}

// Close stops pending notification timers.
func (c *Console) Close() {
	c.notifier.Close()
}

// Document returns the console document.
func (c *Console) Document() Document { return c.doc }

// Mirror returns the snapshot mirror.
func (c *Console) Mirror() *Mirror { return c.mirror }

// Tabs returns the tab group, or nil for variants without tabs.
func (c *Console) Tabs() *TabGroup { return c.tabs }

// Notifier returns the toast notifier.
func (c *Console) Notifier() *Notifier { return c.notifier }

// Fields returns the field map of the console variant.
func (c *Console) Fields() FieldMap { return c.reconciler.Fields() }

// Focused reports whether el is the current edit target.
func (c *Console) Focused(el Element) bool { return c.focus(el) }

func (c *Console) countdownText() string {
	if c.doc == nil {
		return ""
	}
	el := c.doc.ByID(CountdownInputID)
	if el == nil {
		return ""
	}
	return el.Value()
}

package core

import (
	"context"
	"fmt"
	"strconv"

	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/internal/logx"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

// Feedback texts.
const (
	msgMatchApplied       = "Match setup applied"
	msgCountdownUpdated   = "Countdown updated"
	msgCountdownInvalid   = "Invalid time format. Use MM:SS"
	msgCountdownStarted   = "Countdown started"
	msgAuthorityUnreached = "Authority unavailable"
)

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Authority Authority
	Notices   Notices
	// CountdownText reads the live countdown input.
	CountdownText func() string
	// Label resolves the display label of a selection control value.
	Label func(controlID, value string) string
	// Post runs countdown completions on the caller's event loop. Nil runs
	// them on the goroutine that received the result.
	Post func(func())
}

// Dispatcher maps intents onto authority commands.
type Dispatcher struct {
	authority Authority
	notices   Notices
	countdown func() string
	label     func(controlID, value string) string
	post      func(func())
}

// NewDispatcher returns a dispatcher. It fails with ErrChannelUnavailable when
// no authority is configured.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Authority == nil {
		return nil, schema.ErrChannelUnavailable
	}
	d := &Dispatcher{
		authority: cfg.Authority,
		notices:   cfg.Notices,
		countdown: cfg.CountdownText,
		label:     cfg.Label,
		post:      cfg.Post,
	}
	if d.countdown == nil {
		d.countdown = func() string { return "" }
	}
	if d.label == nil {
		d.label = func(_ string, value string) string { return value }
	}
	if d.post == nil {
		d.post = func(fn func()) { fn() }
	}
	return d, nil
}

// Dispatch sends the command for in. Only a transport failure is returned;
// a nil intent is ignored. set-countdown returns immediately and reports the
// authority's verdict through the notices once it arrives.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent) error {
	switch v := in.(type) {
	case nil:
		return nil
	case intent.StartPause:
		return d.call(ctx, schema.CommandStartPause, func() error { return d.authority.StartPause(ctx) })
	case intent.ResetTime:
		return d.call(ctx, schema.CommandResetTime, func() error { return d.authority.ResetTime(ctx) })
	case intent.NextPeriod:
		return d.call(ctx, schema.CommandNextPeriod, func() error { return d.authority.NextPeriod(ctx) })
	case intent.StartCountdown:
		if err := d.call(ctx, schema.CommandStartPregame, func() error { return d.authority.StartPregame(ctx) }); err != nil {
			return err
		}
		d.notify(NoticeSuccess, msgCountdownStarted)
		return nil
	case intent.SetCountdown:
		text := d.countdown()
		go func() {
			accepted, err := d.authority.SetPregameCountdown(ctx, text)
			d.post(func() { d.reportCountdown(ctx, text, accepted, err) })
		}()
		return nil
	case intent.ScoreLocal:
		return d.call(ctx, schema.CommandScoreLocal, func() error { return d.authority.ScoreLocal(ctx, v.Delta) })
	case intent.ScoreVisit:
		return d.call(ctx, schema.CommandScoreVisit, func() error { return d.authority.ScoreVisit(ctx, v.Delta) })
	case intent.FoulLocal:
		return d.call(ctx, schema.CommandFoulLocal, func() error { return d.authority.FoulLocal(ctx, v.Delta) })
	case intent.FoulVisit:
		return d.call(ctx, schema.CommandFoulVisit, func() error { return d.authority.FoulVisit(ctx, v.Delta) })
	case intent.CreateMatch:
		if err := d.call(ctx, schema.CommandCreateMatch, func() error {
			return d.authority.CreateMatch(ctx, v.Local, v.Visit, v.GameType)
		}); err != nil {
			return err
		}
		d.notify(NoticeSuccess, msgMatchApplied)
		return nil
	case intent.SetOperatorTheme:
		if err := d.call(ctx, schema.CommandSetOperatorTheme, func() error { return d.authority.SetOperatorTheme(ctx, v.Theme) }); err != nil {
			return err
		}
		d.notify(NoticeSuccess, "Operator theme: "+string(v.Theme))
		return nil
	case intent.SetDisplayTheme:
		if err := d.call(ctx, schema.CommandSetDisplayTheme, func() error { return d.authority.SetDisplayTheme(ctx, v.Theme) }); err != nil {
			return err
		}
		d.notify(NoticeSuccess, "Display theme: "+string(v.Theme))
		return nil
	case intent.SetOperatorTemplate:
		if err := d.call(ctx, schema.CommandSetOperatorTemplate, func() error { return d.authority.SetOperatorTemplate(ctx, v.ID) }); err != nil {
			return err
		}
		d.notify(NoticeSuccess, "Operator template: "+d.label(OperatorTemplateID, string(v.ID)))
		return nil
	case intent.SetDisplayTemplate:
		if err := d.call(ctx, schema.CommandSetDisplayTemplate, func() error { return d.authority.SetDisplayTemplate(ctx, v.ID) }); err != nil {
			return err
		}
		d.notify(NoticeSuccess, "Display template: "+d.label(DisplayTemplateID, string(v.ID)))
		return nil
	default:
		pslog.Ctx(ctx).Warn("intent has no command", "action", in.Action())
		return nil
	}
}

// SubmitCountdown sends text to the authority and waits for its verdict.
func (d *Dispatcher) SubmitCountdown(ctx context.Context, text string) (bool, error) {
	accepted, err := d.authority.SetPregameCountdown(ctx, text)
	d.reportCountdown(ctx, text, accepted, err)
	return accepted, err
}

func (d *Dispatcher) reportCountdown(ctx context.Context, text string, accepted bool, err error) {
	log := logx.WithCommand(pslog.Ctx(ctx), schema.CommandSetPregameCountdown)
	switch {
	case err != nil:
		log.Error("countdown not delivered", "err", err)
		d.notify(NoticeError, msgAuthorityUnreached)
	case accepted:
		log.Debug("countdown accepted", "text", text)
		d.notify(NoticeSuccess, msgCountdownUpdated)
	default:
		log.Info("countdown rejected", "text", strconv.Quote(text))
		d.notify(NoticeError, msgCountdownInvalid)
	}
}

func (d *Dispatcher) call(ctx context.Context, name schema.CommandName, fn func() error) error {
	log := logx.WithCommand(pslog.Ctx(ctx), name)
	if err := fn(); err != nil {
		log.Error("command not delivered", "err", err)
		d.notify(NoticeError, msgAuthorityUnreached)
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("command sent")
	return nil
}

func (d *Dispatcher) notify(kind NoticeKind, text string) {
	if d.notices == nil {
		return
	}
	d.notices.Notify(kind, text)
}

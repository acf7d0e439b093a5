package core

import (
	"context"

	"pkt.systems/courtside/schema"
)

// Authority is the command surface of the external scoreboard authority.
// Every call except SetPregameCountdown is fire-and-forget: a nil error only
// means the command was handed to the transport.
type Authority interface {
	CreateMatch(ctx context.Context, local, visit, gameType int) error
	SetDisplayTheme(ctx context.Context, theme schema.ThemeName) error
	SetOperatorTheme(ctx context.Context, theme schema.ThemeName) error
	StartPause(ctx context.Context) error
	ResetTime(ctx context.Context) error
	NextPeriod(ctx context.Context) error
	StartPregame(ctx context.Context) error
	// SetPregameCountdown asks the authority to validate and apply text. The
	// result reports whether the authority accepted it.
	SetPregameCountdown(ctx context.Context, text string) (bool, error)
	ScoreLocal(ctx context.Context, delta int) error
	ScoreVisit(ctx context.Context, delta int) error
	FoulLocal(ctx context.Context, delta int) error
	FoulVisit(ctx context.Context, delta int) error
	SetOperatorTemplate(ctx context.Context, id schema.TemplateID) error
	SetDisplayTemplate(ctx context.Context, id schema.TemplateID) error
	RequestInitialState(ctx context.Context) error
}

// StateSource delivers snapshot payloads pushed by the authority.
type StateSource interface {
	// Subscribe registers fn for every stateUpdated payload until the
	// returned cancel function is called.
	Subscribe(fn func(payload []byte)) (cancel func())
}

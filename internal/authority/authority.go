// Package authority adapts Command Channel transports to core.Authority.
package authority

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/internal/logx"
	"pkt.systems/courtside/schema"
)

// Transport carries encoded commands to the authority.
type Transport interface {
	// Send hands a fire-and-forget command to the channel.
	Send(ctx context.Context, req schema.CommandRequest) error
	// Request sends a command and waits for its result.
	Request(ctx context.Context, req schema.CommandRequest) (schema.CommandResult, error)
}

// Client implements core.Authority on top of a Transport.
type Client struct {
	transport Transport
}

var _ core.Authority = (*Client)(nil)

// New wraps a transport.
func New(transport Transport) (*Client, error) {
	if transport == nil {
		return nil, schema.ErrChannelUnavailable
	}
	return &Client{transport: transport}, nil
}

func (c *Client) send(ctx context.Context, req schema.CommandRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	log := logx.WithCommand(pslog.Ctx(ctx), req.Name)
	log.Debug("authority command", "ints", req.Ints, "text", req.Text)
	if err := c.transport.Send(ctx, req); err != nil {
		return fmt.Errorf("%s: %w", req.Name, err)
	}
	return nil
}

// CreateMatch reconfigures the match from catalog identifiers.
func (c *Client) CreateMatch(ctx context.Context, local, visit, gameType int) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandCreateMatch, Ints: []int{local, visit, gameType}})
}

// SetDisplayTheme selects the scoreboard display theme.
func (c *Client) SetDisplayTheme(ctx context.Context, theme schema.ThemeName) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandSetDisplayTheme, Text: string(theme)})
}

// SetOperatorTheme selects the operator console theme.
func (c *Client) SetOperatorTheme(ctx context.Context, theme schema.ThemeName) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandSetOperatorTheme, Text: string(theme)})
}

// StartPause toggles the game clock.
func (c *Client) StartPause(ctx context.Context) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandStartPause})
}

// ResetTime restores the period clock.
func (c *Client) ResetTime(ctx context.Context) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandResetTime})
}

// NextPeriod advances to the next period.
func (c *Client) NextPeriod(ctx context.Context) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandNextPeriod})
}

// StartPregame starts the pregame countdown.
func (c *Client) StartPregame(ctx context.Context) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandStartPregame})
}

// SetPregameCountdown asks the authority to apply text as the pregame
// countdown and reports its verdict.
func (c *Client) SetPregameCountdown(ctx context.Context, text string) (bool, error) {
	req := schema.CommandRequest{
		ID:    uuid.NewString(),
		Name:  schema.CommandSetPregameCountdown,
		Text:  text,
		Reply: true,
	}
	log := logx.WithCommand(pslog.Ctx(ctx), req.Name)
	log.Debug("authority request", "id", req.ID, "text", text)
	res, err := c.transport.Request(ctx, req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", req.Name, err)
	}
	if !res.OK {
		log.Info("countdown rejected", "text", text, "reason", res.Error)
	}
	return res.OK, nil
}

// ScoreLocal adjusts the local score.
func (c *Client) ScoreLocal(ctx context.Context, delta int) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandScoreLocal, Ints: []int{delta}})
}

// ScoreVisit adjusts the visiting score.
func (c *Client) ScoreVisit(ctx context.Context, delta int) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandScoreVisit, Ints: []int{delta}})
}

// FoulLocal adjusts the local fouls.
func (c *Client) FoulLocal(ctx context.Context, delta int) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandFoulLocal, Ints: []int{delta}})
}

// FoulVisit adjusts the visiting fouls.
func (c *Client) FoulVisit(ctx context.Context, delta int) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandFoulVisit, Ints: []int{delta}})
}

// SetOperatorTemplate selects the operator layout template.
func (c *Client) SetOperatorTemplate(ctx context.Context, id schema.TemplateID) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandSetOperatorTemplate, Text: string(id)})
}

// SetDisplayTemplate selects the display layout template.
func (c *Client) SetDisplayTemplate(ctx context.Context, id schema.TemplateID) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandSetDisplayTemplate, Text: string(id)})
}

// RequestInitialState asks the authority to publish its current snapshot.
func (c *Client) RequestInitialState(ctx context.Context) error {
	return c.send(ctx, schema.CommandRequest{Name: schema.CommandRequestInitialState})
}

// Listeners fans snapshot payloads out to registered callbacks.
type Listeners struct {
	mu   sync.RWMutex
	next int
	fns  map[int]func([]byte)
}

var _ core.StateSource = (*Listeners)(nil)

// Subscribe registers fn until cancel is called.
func (l *Listeners) Subscribe(fn func(payload []byte)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[int]func([]byte))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// Emit delivers payload to every listener in registration order.
func (l *Listeners) Emit(payload []byte) {
	l.mu.RLock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	fns := make([]func([]byte), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(payload)
	}
}

// Len reports the number of registered listeners.
func (l *Listeners) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.fns)
}

// Package natsclient speaks the Command Channel over NATS subjects.
package natsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"pkt.systems/pslog"

	"pkt.systems/courtside/internal/authority"
	"pkt.systems/courtside/schema"
)

// Defaults for the NATS connection.
const (
	DefaultSubjectPrefix  = "courtside"
	DefaultCommandTimeout = 5 * time.Second
	DefaultReconnectWait  = 2 * time.Second
)

// Config configures a Client.
type Config struct {
	URL            string
	SubjectPrefix  string
	Name           string
	CommandTimeout time.Duration
	ReconnectWait  time.Duration
	// OnStatus is called when the connection drops or is re-established.
	OnStatus func(connected bool, err error)
}

// Subjects names the subjects used for a prefix.
type Subjects struct {
	State   string
	Command string
}

// SubjectsFor returns the state and command subjects under prefix.
func SubjectsFor(prefix string) Subjects {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return Subjects{
		State:   prefix + ".state",
		Command: prefix + ".command",
	}
}

// Client is a Command Channel transport and snapshot source over NATS.
type Client struct {
	cfg       Config
	subjects  Subjects
	nc        *nats.Conn
	sub       *nats.Subscription
	log       pslog.Logger
	listeners authority.Listeners
}

// Connect dials NATS and subscribes to the state subject. Failure to connect
// is reported as schema.ErrChannelUnavailable.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = DefaultReconnectWait
	}
	if cfg.Name == "" {
		cfg.Name = "courtside"
	}
	log := pslog.Ctx(ctx).With("authority", cfg.URL)
	c := &Client{
		cfg:      cfg,
		subjects: SubjectsFor(cfg.SubjectPrefix),
		log:      log,
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Error("authority connection lost", "err", err)
			c.status(false, err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("authority connection restored", "url", nc.ConnectedUrl())
			c.status(true, nil)
			if err := c.Send(context.Background(), schema.CommandRequest{Name: schema.CommandRequestInitialState}); err != nil {
				log.Warn("initial state request failed", "err", err)
			}
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error("authority nats error", "err", err)
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", schema.ErrChannelUnavailable, cfg.URL, err)
	}
	c.nc = nc
	sub, err := nc.Subscribe(c.subjects.State, func(msg *nats.Msg) {
		c.listeners.Emit(msg.Data)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %v", schema.ErrChannelUnavailable, c.subjects.State, err)
	}
	c.sub = sub
	return c, nil
}

func (c *Client) status(connected bool, err error) {
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(connected, err)
	}
}

// Subjects returns the subjects in use.
func (c *Client) Subjects() Subjects {
	return c.subjects
}

// Subscribe registers fn for every snapshot payload.
func (c *Client) Subscribe(fn func(payload []byte)) (cancel func()) {
	return c.listeners.Subscribe(fn)
}

// Send publishes a command.
func (c *Client) Send(_ context.Context, req schema.CommandRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := c.nc.Publish(c.subjects.Command, data); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrChannelUnavailable, err)
	}
	return nil
}

// Request publishes a command and waits for the result reply.
func (c *Client) Request(ctx context.Context, req schema.CommandRequest) (schema.CommandResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return schema.CommandResult{}, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CommandTimeout)
		defer cancel()
	}
	msg, err := c.nc.RequestWithContext(ctx, c.subjects.Command, data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return schema.CommandResult{}, err
		}
		return schema.CommandResult{}, fmt.Errorf("%w: %v", schema.ErrChannelUnavailable, err)
	}
	return DecodeResult(msg.Data, req.ID)
}

// DecodeResult parses a reply body and checks that it answers id.
func DecodeResult(data []byte, id string) (schema.CommandResult, error) {
	var res schema.CommandResult
	if err := json.Unmarshal(data, &res); err != nil {
		return schema.CommandResult{}, fmt.Errorf("decode result: %w", err)
	}
	if res.ID != "" && res.ID != id {
		return schema.CommandResult{}, fmt.Errorf("result for %q answers %q", id, res.ID)
	}
	return res, nil
}

// Close drains the subscription and closes the connection.
func (c *Client) Close() error {
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}

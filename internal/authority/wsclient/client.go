// Package wsclient speaks the Command Channel over a WebSocket connection.
package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"pkt.systems/pslog"

	"pkt.systems/courtside/internal/authority"
	"pkt.systems/courtside/schema"
)

// Defaults for the connection pumps.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultPongWait       = 60 * time.Second
	DefaultWriteWait      = 10 * time.Second
	DefaultMaxFrameSize   = 64 << 10
	DefaultReconnectMin   = 500 * time.Millisecond
	DefaultReconnectMax   = 10 * time.Second
	DefaultCommandTimeout = 5 * time.Second
)

// Config configures a Client.
type Config struct {
	URL            string
	Header         http.Header
	Dialer         *websocket.Dialer
	CommandTimeout time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxFrameSize   int64
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration
	// Clock drives pings, command timeouts and reconnect backoff. Defaults to
	// the real clock.
	Clock clockwork.Clock
	// OnStatus is called when the connection drops or is re-established.
	OnStatus func(connected bool, err error)
}

func (c Config) withDefaults() Config {
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongWait <= 0 {
		c.PongWait = DefaultPongWait
	}
	if c.WriteWait <= 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = DefaultReconnectMin
	}
	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = DefaultReconnectMax
		if c.ReconnectMax < c.ReconnectMin {
			c.ReconnectMax = c.ReconnectMin
		}
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c
}

// Client is a Command Channel transport and snapshot source.
type Client struct {
	cfg       Config
	log       pslog.Logger
	listeners authority.Listeners

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	pending map[string]chan schema.CommandResult

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Dial connects to the authority. A failed dial is reported as
// schema.ErrChannelUnavailable. After a successful dial the client keeps
// the connection alive until Close, redialing with backoff when it drops.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: no authority url", schema.ErrChannelUnavailable)
	}
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Client{
		cfg:     cfg,
		log:     pslog.Ctx(ctx).With("authority", cfg.URL),
		conn:    conn,
		pending: make(map[string]chan schema.CommandResult),
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.run(conn)
	return c, nil
}

func dial(ctx context.Context, cfg Config) (*websocket.Conn, error) {
	conn, resp, err := cfg.Dialer.DialContext(ctx, cfg.URL, cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", schema.ErrChannelUnavailable, cfg.URL, err)
	}
	conn.SetReadLimit(cfg.MaxFrameSize)
	return conn, nil
}

// Subscribe registers fn for every snapshot payload.
func (c *Client) Subscribe(fn func(payload []byte)) (cancel func()) {
	return c.listeners.Subscribe(fn)
}

// Send writes a command frame.
func (c *Client) Send(ctx context.Context, req schema.CommandRequest) error {
	frame := schema.Frame{Type: schema.FrameCommand, Command: &req}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return schema.ErrChannelUnavailable
	}
	if err := c.write(conn, websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %v", schema.ErrChannelUnavailable, err)
	}
	return nil
}

// Request writes a command frame and waits for the matching result frame.
func (c *Client) Request(ctx context.Context, req schema.CommandRequest) (schema.CommandResult, error) {
	if req.ID == "" {
		return schema.CommandResult{}, fmt.Errorf("%s: missing request id", req.Name)
	}
	ch := make(chan schema.CommandResult, 1)
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return schema.CommandResult{}, schema.ErrChannelUnavailable
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer c.forget(req.ID)

	if err := c.Send(ctx, req); err != nil {
		return schema.CommandResult{}, err
	}
	timer := c.cfg.Clock.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()
	select {
	case res, ok := <-ch:
		if !ok {
			return schema.CommandResult{}, schema.ErrChannelUnavailable
		}
		return res, nil
	case <-timer.Chan():
		return schema.CommandResult{}, fmt.Errorf("%w: no result within %s", schema.ErrChannelUnavailable, c.cfg.CommandTimeout)
	case <-ctx.Done():
		return schema.CommandResult{}, ctx.Err()
	case <-c.done:
		return schema.CommandResult{}, schema.ErrChannelUnavailable
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	if c.pending != nil {
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// Close stops the client and closes the connection.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(c.cfg.WriteWait))
			c.writeMu.Unlock()
			_ = conn.Close()
		}
	})
	<-c.done
	return nil
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) write(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}

func (c *Client) run(conn *websocket.Conn) {
	defer close(c.done)
	for {
		err := c.serve(conn)
		c.dropped(conn)
		if c.ctx.Err() != nil {
			return
		}
		c.log.Error("authority connection lost", "err", err)
		c.status(false, err)

		conn = c.redial()
		if conn == nil {
			return
		}
		c.log.Info("authority connection restored")
		c.status(true, nil)
		if err := c.Send(c.ctx, schema.CommandRequest{Name: schema.CommandRequestInitialState}); err != nil {
			c.log.Warn("initial state request failed", "err", err)
		}
	}
}

func (c *Client) status(connected bool, err error) {
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(connected, err)
	}
}

// serve runs the read pump on conn with a companion ping pump and returns
// when the connection fails.
func (c *Client) serve(conn *websocket.Conn) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.pingPump(conn, stop)
	}()
	err := c.readPump(conn)
	close(stop)
	_ = conn.Close()
	wg.Wait()
	return err
}

func (c *Client) pingPump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := c.cfg.Clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait))
			c.writeMu.Unlock()
			if err != nil {
				c.log.Debug("authority ping failed", "err", err)
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *Client) readPump(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.handleFrame(data)
	}
}

func (c *Client) handleFrame(data []byte) {
	var frame schema.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.log.Warn("authority frame dropped", "err", err)
		return
	}
	switch frame.Type {
	case schema.FrameStateUpdated:
		c.listeners.Emit([]byte(frame.Payload))
	case schema.FrameResult:
		if frame.Result == nil {
			c.log.Warn("authority result frame without result")
			return
		}
		c.mu.Lock()
		ch := c.pending[frame.Result.ID]
		delete(c.pending, frame.Result.ID)
		c.mu.Unlock()
		if ch == nil {
			c.log.Debug("authority result without pending request", "id", frame.Result.ID)
			return
		}
		ch <- *frame.Result
	default:
		c.log.Debug("authority frame ignored", "type", frame.Type)
	}
}

// dropped detaches conn and fails every request waiting on it.
func (c *Client) dropped(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	pending := c.pending
	c.pending = make(map[string]chan schema.CommandResult)
	c.mu.Unlock()
	for _, ch := range pending {
		close(ch)
	}
}

func (c *Client) redial() *websocket.Conn {
	wait := c.cfg.ReconnectMin
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-c.cfg.Clock.After(wait):
		}
		conn, err := dial(c.ctx, c.cfg)
		if err == nil {
			c.mu.Lock()
			if c.ctx.Err() != nil {
				c.mu.Unlock()
				_ = conn.Close()
				return nil
			}
			c.conn = conn
			c.mu.Unlock()
			return conn
		}
		if c.ctx.Err() != nil {
			return nil
		}
		c.log.Debug("authority redial failed", "err", err, "retry_in", wait)
		wait *= 2
		if wait > c.cfg.ReconnectMax {
			wait = c.cfg.ReconnectMax
		}
	}
}

package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

// Stream event types.
const (
	EventSnapshot = "snapshot"
	EventState    = "state"
	EventChannel  = "channel"
	EventNotice   = "notice"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64           `json:"seq"`
	Type      string           `json:"type"`
	Snapshot  *schema.Snapshot `json:"snapshot,omitempty"`
	Connected *bool            `json:"connected,omitempty"`
	Error     string           `json:"error,omitempty"`
	Notice    *Notice          `json:"notice,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Notice is feedback produced by a dispatched intent.
type Notice struct {
	Kind core.NoticeKind `json:"kind"`
	Text string          `json:"text"`
}

// Hub broadcasts mirrored snapshots, channel status and notices to stream
// clients and keeps a bounded history for Last-Event-ID replay.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
	connected   bool
	lastErr     string
	log         pslog.Logger
	now         func() time.Time
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int, logger pslog.Logger) *Hub {
	if historySize <= 0 {
		historySize = 256
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
		log:         logger,
		now:         time.Now,
	}
}

// PublishState broadcasts a mirrored snapshot.
func (h *Hub) PublishState(snap schema.Snapshot) {
	h.log.Trace("hub state event", "period", snap.Period, "time", snap.Time)
	h.publish(StreamEvent{Type: EventState, Snapshot: &snap})
}

// PublishChannel records and broadcasts a command channel status change.
func (h *Hub) PublishChannel(connected bool, err error) {
	event := StreamEvent{Type: EventChannel, Connected: &connected}
	if err != nil {
		event.Error = err.Error()
	}
	h.mu.Lock()
	h.connected = connected
	h.lastErr = event.Error
	h.mu.Unlock()
	h.publish(event)
}

// Notify implements core.Notices.
func (h *Hub) Notify(kind core.NoticeKind, text string) {
	h.publish(StreamEvent{Type: EventNotice, Notice: &Notice{Kind: kind, Text: text}})
}

// Channel returns the last reported channel status.
func (h *Hub) Channel() (connected bool, lastErr string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected, h.lastErr
}

// Subscribe registers a stream client. It returns the channel, the cancel
// func and the sequence number of the newest event at subscription time.
func (h *Hub) Subscribe() (<-chan StreamEvent, func(), uint64) {
	h.mu.Lock()
	ch := make(chan StreamEvent, 64)
	h.subs[ch] = struct{}{}
	seq := h.seq
	count := len(h.subs)
	h.mu.Unlock()
	h.log.Info("hub subscribe", "subs", count)
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			h.log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq
}

// Replay returns the retained events with after < seq <= upto.
func (h *Hub) Replay(after, upto uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after && event.Seq <= upto {
			events = append(events, event)
		}
	}
	h.log.Debug("hub replay", "after", after, "count", len(events))
	return events
}

// Subscribers returns the number of connected stream clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	h.seq++
	event.Seq = h.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now()
	}
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()
	if dropped > 0 {
		h.log.Warn("hub event dropped", "type", event.Type, "seq", event.Seq, "dropped", dropped)
	}
}

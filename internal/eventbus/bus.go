package eventbus

import (
	"context"
	"sync"

	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventState carries a stateUpdated payload.
	EventState EventType = "state"
	// EventChannel carries a command channel status change.
	EventChannel EventType = "channel"
)

// Event is delivered to every console session.
type Event struct {
	Type EventType
	Seq  uint64
	// Payload is the raw snapshot text of an EventState.
	Payload []byte
	// Connected and Err describe an EventChannel.
	Connected bool
	Err       string
}

// Bus fans events out to console sessions.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]schema.SessionID
	log   pslog.Logger
	depth int
	seq   uint64
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]schema.SessionID),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a session and returns its channel and a cancel func.
func (b *Bus) Subscribe(session schema.SessionID) (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = session
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.With("session", session).Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.With("session", session).Debug("eventbus unsubscribe")
			}
		})
	}
}

// Subscribers returns the number of registered sessions.
func (b *Bus) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// PublishState publishes a snapshot payload.
func (b *Bus) PublishState(payload []byte) {
	b.publish(Event{Type: EventState, Payload: payload})
}

// PublishChannel publishes a command channel status change.
func (b *Bus) PublishChannel(connected bool, err error) {
	event := Event{Type: EventChannel, Connected: connected}
	if err != nil {
		event.Err = err.Error()
	}
	b.publish(event)
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	event.Seq = b.seq
	coalesced := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			coalesce(sub, event)
			coalesced++
		}
	}
	b.mu.Unlock()
	if coalesced > 0 && b.log != nil {
		b.log.Warn("eventbus coalesced", "type", event.Type, "seq", event.Seq, "count", coalesced)
	}
}

// coalesce empties a full session buffer and requeues the latest channel
// status followed by event. Every snapshot is complete, so only the newest
// one matters. Callers hold b.mu, which keeps other publishers out.
func coalesce(sub chan Event, event Event) {
	var status *Event
drain:
	for {
		select {
		case old := <-sub:
			if old.Type == EventChannel {
				status = &old
			}
		default:
			break drain
		}
	}
	if status != nil && event.Type != EventChannel && cap(sub) > 1 {
		sub <- *status
	}
	sub <- event
}

package courtside

import (
	"sync"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/httpapi"
	"pkt.systems/courtside/internal/eventbus"
	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

// stateSink receives every accepted snapshot and channel status change.
type stateSink interface {
	OnState(payload []byte, snap schema.Snapshot)
	OnChannel(connected bool, err error)
}

// eventFanout mirrors authority snapshots once and forwards them to every
// embedding. It also tracks the command channel status.
type eventFanout struct {
	mirror *core.Mirror
	sinks  []stateSink
	log    pslog.Logger

	mu        sync.Mutex
	connected bool
	lastErr   string
}

func newEventFanout(log pslog.Logger, sinks ...stateSink) *eventFanout {
	f := &eventFanout{mirror: core.NewMirror(), log: log, connected: true}
	for _, sink := range sinks {
		if sink != nil {
			f.sinks = append(f.sinks, sink)
		}
	}
	return f
}

// OnState decodes payload into the shared mirror. Payloads that do not
// decode are dropped before any embedding sees them.
func (f *eventFanout) OnState(payload []byte) {
	snap, err := f.mirror.Accept(payload)
	if err != nil {
		f.log.Warn("snapshot dropped", "err", err, "bytes", len(payload))
		return
	}
	for _, sink := range f.sinks {
		sink.OnState(payload, snap)
	}
}

func (f *eventFanout) OnChannel(connected bool, err error) {
	f.mu.Lock()
	f.connected = connected
	f.lastErr = ""
	if err != nil {
		f.lastErr = err.Error()
	}
	f.mu.Unlock()
	for _, sink := range f.sinks {
		sink.OnChannel(connected, err)
	}
}

// Channel reports the last known command channel status.
func (f *eventFanout) Channel() (bool, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected, f.lastErr
}

// Current returns the shared snapshot.
func (f *eventFanout) Current() (schema.Snapshot, bool) {
	return f.mirror.Current()
}

type hubSink struct {
	hub *httpapi.Hub
}

func (s hubSink) OnState(_ []byte, snap schema.Snapshot) { s.hub.PublishState(snap) }
func (s hubSink) OnChannel(connected bool, err error)    { s.hub.PublishChannel(connected, err) }

type busSink struct {
	bus *eventbus.Bus
}

func (s busSink) OnState(payload []byte, _ schema.Snapshot) { s.bus.PublishState(payload) }
func (s busSink) OnChannel(connected bool, err error)       { s.bus.PublishChannel(connected, err) }

package eventbus

import (
	"errors"
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	first, cancelFirst := bus.Subscribe("s1")
	defer cancelFirst()
	second, cancelSecond := bus.Subscribe("s2")
	defer cancelSecond()

	bus.PublishState([]byte(`{"points_local":1}`))

	for _, ch := range []<-chan Event{first, second} {
		select {
		case got := <-ch:
			if got.Type != EventState {
				t.Fatalf("expected state event, got %v", got.Type)
			}
			if string(got.Payload) != `{"points_local":1}` || got.Seq != 1 {
				t.Fatalf("unexpected event: %+v", got)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timed out waiting for event")
		}
	}
}

func TestEventsKeepPublishOrder(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	defer cancel()
	bus.PublishState([]byte("a"))
	bus.PublishChannel(false, errors.New("closed"))
	bus.PublishState([]byte("b"))

	want := []EventType{EventState, EventChannel, EventState}
	for i, typ := range want {
		got := <-ch
		if got.Type != typ || got.Seq != uint64(i+1) {
			t.Fatalf("event %d: got %+v, want type %s", i, got, typ)
		}
		if typ == EventChannel && (got.Connected || got.Err != "closed") {
			t.Fatalf("unexpected channel event %+v", got)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("s1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if bus.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
	bus.PublishState([]byte("after"))
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	ch, cancel := bus.Subscribe("s1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		bus.PublishState([]byte("1"))
		bus.PublishState([]byte("2"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full channel")
	}
	if got := <-ch; string(got.Payload) != "2" || got.Seq != 2 {
		t.Fatalf("expected latest snapshot kept, got %+v", got)
	}
}

func TestFullBufferKeepsLatestStateAndStatus(t *testing.T) {
	bus := New(nil)
	bus.depth = 3
	ch, cancel := bus.Subscribe("s1")
	defer cancel()
	bus.PublishState([]byte("a"))
	bus.PublishChannel(false, errors.New("closed"))
	bus.PublishState([]byte("b"))
	bus.PublishState([]byte("c"))

	tests := []struct {
		typ     EventType
		payload string
		seq     uint64
	}{
		{EventChannel, "", 2},
		{EventState, "c", 4},
	}
	for i, tt := range tests {
		select {
		case got := <-ch:
			if got.Type != tt.typ || string(got.Payload) != tt.payload || got.Seq != tt.seq {
				t.Fatalf("event %d: got %+v, want %s %q seq %d", i, got, tt.typ, tt.payload, tt.seq)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected extra event %+v", got)
	default:
	}
}

func TestNilBusIsInert(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe("s1")
	cancel()
	if ch != nil || bus.Subscribers() != 0 {
		t.Fatalf("nil bus has no subscribers")
	}
	bus.PublishState([]byte("x"))
}

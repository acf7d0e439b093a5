package wsclient_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"pkt.systems/courtside/internal/authority"
	"pkt.systems/courtside/internal/authority/wsclient"
	"pkt.systems/courtside/internal/authoritymock"
	"pkt.systems/courtside/schema"
)

func startMock(t *testing.T) (*authoritymock.Server, string) {
	t.Helper()
	srv := authoritymock.NewServer(authoritymock.NewScoreboard(authoritymock.DefaultConfig()), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.DropPeers()
		ts.Close()
	})
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, cfg wsclient.Config) *wsclient.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := wsclient.Dial(ctx, cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func snapshots(client *wsclient.Client) (<-chan schema.Snapshot, func()) {
	ch := make(chan schema.Snapshot, 32)
	cancel := client.Subscribe(func(payload []byte) {
		snap, err := schema.DecodeSnapshot(payload)
		if err != nil {
			return
		}
		select {
		case ch <- snap:
		default:
		}
	})
	return ch, cancel
}

func waitSnapshot(t *testing.T, ch <-chan schema.Snapshot, match func(schema.Snapshot) bool) schema.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for snapshot")
		}
	}
}

func TestDialFailureIsChannelUnavailable(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ts.Close()

	_, err := wsclient.Dial(context.Background(), wsclient.Config{URL: url})
	if !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestCommandsProduceSnapshots(t *testing.T) {
	_, url := startMock(t)
	client := dial(t, wsclient.Config{URL: url})
	ch, cancel := snapshots(client)
	defer cancel()

	auth, err := authority.New(client)
	if err != nil {
		t.Fatalf("authority: %v", err)
	}
	ctx := context.Background()
	if err := auth.RequestInitialState(ctx); err != nil {
		t.Fatalf("request initial state: %v", err)
	}
	waitSnapshot(t, ch, func(s schema.Snapshot) bool { return s.Period == 1 })

	if err := auth.ScoreLocal(ctx, 2); err != nil {
		t.Fatalf("score local: %v", err)
	}
	if err := auth.SetDisplayTheme(ctx, schema.ThemeLight); err != nil {
		t.Fatalf("set display theme: %v", err)
	}
	waitSnapshot(t, ch, func(s schema.Snapshot) bool {
		return s.PointsLocal == 2 && s.DisplayTheme == schema.ThemeLight
	})
}

func TestCountdownVerdicts(t *testing.T) {
	_, url := startMock(t)
	client := dial(t, wsclient.Config{URL: url})
	auth, err := authority.New(client)
	if err != nil {
		t.Fatalf("authority: %v", err)
	}
	cases := []struct {
		text string
		want bool
	}{
		{"05:00", true},
		{"0:59", true},
		{"5:75", false},
		{"abc", false},
	}
	for _, tc := range cases {
		ok, err := auth.SetPregameCountdown(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("%q: %v", tc.text, err)
		}
		if ok != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.text, tc.want, ok)
		}
	}
}

func TestRedialReseedsState(t *testing.T) {
	srv, url := startMock(t)
	status := make(chan bool, 4)
	client := dial(t, wsclient.Config{
		URL:          url,
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
		OnStatus: func(connected bool, _ error) {
			select {
			case status <- connected:
			default:
			}
		},
	})
	ch, cancel := snapshots(client)
	defer cancel()

	deadline := time.After(2 * time.Second)
	for srv.Peers() == 0 {
		select {
		case <-deadline:
			t.Fatalf("peer never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}
	srv.DropPeers()

	for _, want := range []bool{false, true} {
		select {
		case got := <-status:
			if got != want {
				t.Fatalf("expected status %v, got %v", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for status %v", want)
		}
	}
	waitSnapshot(t, ch, func(schema.Snapshot) bool { return true })

	found := false
	for _, cmd := range srv.Commands() {
		if cmd.Name == schema.CommandRequestInitialState {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected requestInitialState after redial, got %+v", srv.Commands())
	}
}

func TestRequestFailsWhenClosed(t *testing.T) {
	_, url := startMock(t)
	client := dial(t, wsclient.Config{URL: url})
	if err := client.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	err := client.Send(context.Background(), schema.CommandRequest{Name: schema.CommandStartPause})
	if !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable after close, got %v", err)
	}
}

func TestPingsFollowClock(t *testing.T) {
	pings := make(chan struct{}, 4)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetPingHandler(func(string) error {
			pings <- struct{}{}
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)

	clock := clockwork.NewFakeClock()
	dial(t, wsclient.Config{
		URL:          "ws" + strings.TrimPrefix(ts.URL, "http"),
		PingInterval: 10 * time.Second,
		Clock:        clock,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ping ticker not started: %v", err)
	}
	select {
	case <-pings:
		t.Fatalf("ping sent before the interval elapsed")
	case <-time.After(50 * time.Millisecond):
	}
	clock.Advance(10 * time.Second)
	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected ping after advancing the clock")
	}
}

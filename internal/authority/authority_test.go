package authority

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"pkt.systems/courtside/schema"
)

type fakeTransport struct {
	sent     []schema.CommandRequest
	sendErr  error
	result   schema.CommandResult
	reqErr   error
	requests []schema.CommandRequest
}

func (f *fakeTransport) Send(_ context.Context, req schema.CommandRequest) error {
	f.sent = append(f.sent, req)
	return f.sendErr
}

func (f *fakeTransport) Request(_ context.Context, req schema.CommandRequest) (schema.CommandResult, error) {
	f.requests = append(f.requests, req)
	if f.reqErr != nil {
		return schema.CommandResult{}, f.reqErr
	}
	res := f.result
	res.ID = req.ID
	return res, nil
}

func TestNewRequiresTransport(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

func TestCommandsEncodeArguments(t *testing.T) {
	ft := &fakeTransport{}
	c, err := New(ft)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	calls := []struct {
		run  func() error
		want schema.CommandRequest
	}{
		{func() error { return c.CreateMatch(ctx, 1, 2, 3) }, schema.CommandRequest{Name: schema.CommandCreateMatch, Ints: []int{1, 2, 3}}},
		{func() error { return c.SetDisplayTheme(ctx, schema.ThemeLight) }, schema.CommandRequest{Name: schema.CommandSetDisplayTheme, Text: "light"}},
		{func() error { return c.SetOperatorTheme(ctx, schema.ThemeDark) }, schema.CommandRequest{Name: schema.CommandSetOperatorTheme, Text: "dark"}},
		{func() error { return c.StartPause(ctx) }, schema.CommandRequest{Name: schema.CommandStartPause}},
		{func() error { return c.ResetTime(ctx) }, schema.CommandRequest{Name: schema.CommandResetTime}},
		{func() error { return c.NextPeriod(ctx) }, schema.CommandRequest{Name: schema.CommandNextPeriod}},
		{func() error { return c.StartPregame(ctx) }, schema.CommandRequest{Name: schema.CommandStartPregame}},
		{func() error { return c.ScoreLocal(ctx, 3) }, schema.CommandRequest{Name: schema.CommandScoreLocal, Ints: []int{3}}},
		{func() error { return c.ScoreVisit(ctx, -1) }, schema.CommandRequest{Name: schema.CommandScoreVisit, Ints: []int{-1}}},
		{func() error { return c.FoulLocal(ctx, 1) }, schema.CommandRequest{Name: schema.CommandFoulLocal, Ints: []int{1}}},
		{func() error { return c.FoulVisit(ctx, -1) }, schema.CommandRequest{Name: schema.CommandFoulVisit, Ints: []int{-1}}},
		{func() error { return c.SetOperatorTemplate(ctx, "classic") }, schema.CommandRequest{Name: schema.CommandSetOperatorTemplate, Text: "classic"}},
		{func() error { return c.SetDisplayTemplate(ctx, "arena") }, schema.CommandRequest{Name: schema.CommandSetDisplayTemplate, Text: "arena"}},
		{func() error { return c.RequestInitialState(ctx) }, schema.CommandRequest{Name: schema.CommandRequestInitialState}},
	}
	for i, call := range calls {
		if err := call.run(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		got := ft.sent[len(ft.sent)-1]
		if !reflect.DeepEqual(got, call.want) {
			t.Fatalf("call %d: got %+v, want %+v", i, got, call.want)
		}
	}
}

func TestSendErrorsWrapCommandName(t *testing.T) {
	ft := &fakeTransport{sendErr: schema.ErrChannelUnavailable}
	c, _ := New(ft)
	err := c.StartPause(context.Background())
	if !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
	if got := err.Error(); got != "startPause: "+schema.ErrChannelUnavailable.Error() {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestSetPregameCountdownUsesRequest(t *testing.T) {
	ft := &fakeTransport{result: schema.CommandResult{OK: false, Error: "invalid clock"}}
	c, _ := New(ft)
	ok, err := c.SetPregameCountdown(context.Background(), "5:75")
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if ok {
		t.Fatalf("expected rejection")
	}
	if len(ft.sent) != 0 || len(ft.requests) != 1 {
		t.Fatalf("expected one request and no sends, got %d/%d", len(ft.requests), len(ft.sent))
	}
	req := ft.requests[0]
	if req.ID == "" || !req.Reply || req.Text != "5:75" {
		t.Fatalf("unexpected request %+v", req)
	}

	ft.reqErr = schema.ErrChannelUnavailable
	if _, err := c.SetPregameCountdown(context.Background(), "05:00"); !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestListenersOrderAndCancel(t *testing.T) {
	var l Listeners
	var got []string
	cancelA := l.Subscribe(func(p []byte) { got = append(got, "a:"+string(p)) })
	l.Subscribe(func(p []byte) { got = append(got, "b:"+string(p)) })
	l.Emit([]byte("1"))
	cancelA()
	cancelA()
	l.Emit([]byte("2"))
	want := []string{"a:1", "b:1", "b:2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one listener, got %d", l.Len())
	}
}

package core_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/schema"
)

func TestDispatchMapsIntentsToCommands(t *testing.T) {
	cases := []struct {
		in   intent.Intent
		want authorityCall
	}{
		{intent.StartPause{}, authorityCall{name: schema.CommandStartPause}},
		{intent.ResetTime{}, authorityCall{name: schema.CommandResetTime}},
		{intent.NextPeriod{}, authorityCall{name: schema.CommandNextPeriod}},
		{intent.StartCountdown{}, authorityCall{name: schema.CommandStartPregame}},
		{intent.ScoreLocal{Delta: 3}, authorityCall{name: schema.CommandScoreLocal, ints: []int{3}}},
		{intent.ScoreVisit{Delta: -1}, authorityCall{name: schema.CommandScoreVisit, ints: []int{-1}}},
		{intent.FoulLocal{Delta: 1}, authorityCall{name: schema.CommandFoulLocal, ints: []int{1}}},
		{intent.FoulVisit{Delta: -1}, authorityCall{name: schema.CommandFoulVisit, ints: []int{-1}}},
		{intent.CreateMatch{Local: 1, Visit: 2, GameType: 0}, authorityCall{name: schema.CommandCreateMatch, ints: []int{1, 2, 0}}},
		{intent.SetOperatorTheme{Theme: schema.ThemeLight}, authorityCall{name: schema.CommandSetOperatorTheme, text: "light"}},
		{intent.SetDisplayTheme{Theme: schema.ThemeDark}, authorityCall{name: schema.CommandSetDisplayTheme, text: "dark"}},
		{intent.SetOperatorTemplate{ID: "classic"}, authorityCall{name: schema.CommandSetOperatorTemplate, text: "classic"}},
		{intent.SetDisplayTemplate{ID: "arena"}, authorityCall{name: schema.CommandSetDisplayTemplate, text: "arena"}},
	}
	for _, tc := range cases {
		auth := &fakeAuthority{}
		d, err := core.NewDispatcher(core.DispatcherConfig{Authority: auth})
		if err != nil {
			t.Fatalf("new dispatcher: %v", err)
		}
		if err := d.Dispatch(context.Background(), tc.in); err != nil {
			t.Fatalf("dispatch %T: %v", tc.in, err)
		}
		calls := auth.Calls()
		if len(calls) != 1 {
			t.Fatalf("dispatch %T: expected one call, got %+v", tc.in, calls)
		}
		got := calls[0]
		if got.name != tc.want.name || got.text != tc.want.text || !slices.Equal(got.ints, tc.want.ints) {
			t.Fatalf("dispatch %T: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestDispatchScoreWithoutValueSendsZero(t *testing.T) {
	auth := &fakeAuthority{}
	d, _ := core.NewDispatcher(core.DispatcherConfig{Authority: auth})
	in, ok := intent.Parse("score-visit", "")
	if !ok {
		t.Fatalf("expected score-visit to parse")
	}
	if err := d.Dispatch(context.Background(), in); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	calls := auth.Calls()
	if len(calls) != 1 || calls[0].name != schema.CommandScoreVisit || !slices.Equal(calls[0].ints, []int{0}) {
		t.Fatalf("expected scoreVisit(0), got %+v", calls)
	}
}

func TestDispatchUnknownActionSendsNothing(t *testing.T) {
	auth := &fakeAuthority{}
	d, _ := core.NewDispatcher(core.DispatcherConfig{Authority: auth})
	in, ok := intent.Parse("launch-confetti", "1")
	if ok {
		t.Fatalf("unknown action should not parse")
	}
	if err := d.Dispatch(context.Background(), in); err != nil {
		t.Fatalf("dispatch nil intent: %v", err)
	}
	if calls := auth.Calls(); len(calls) != 0 {
		t.Fatalf("expected no calls, got %+v", calls)
	}
}

func TestDispatchCountdownRoundTrip(t *testing.T) {
	cases := []struct {
		text string
		want notice
	}{
		{"05:00", notice{kind: core.NoticeSuccess, text: "Countdown updated"}},
		{"abc", notice{kind: core.NoticeError, text: "Invalid time format. Use MM:SS"}},
	}
	for _, tc := range cases {
		auth := &fakeAuthority{}
		notices := newRecordingNotices()
		d, _ := core.NewDispatcher(core.DispatcherConfig{
			Authority:     auth,
			Notices:       notices,
			CountdownText: func() string { return tc.text },
		})
		if err := d.Dispatch(context.Background(), intent.SetCountdown{}); err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if got := notices.wait(t); got != tc.want {
			t.Fatalf("countdown %q: got notice %+v, want %+v", tc.text, got, tc.want)
		}
		calls := auth.Calls()
		if len(calls) != 1 || calls[0].text != tc.text {
			t.Fatalf("expected countdown text %q sent, got %+v", tc.text, calls)
		}
	}
}

func TestDispatchCountdownReadsLiveValue(t *testing.T) {
	auth := &fakeAuthority{}
	notices := newRecordingNotices()
	live := "01:00"
	d, _ := core.NewDispatcher(core.DispatcherConfig{
		Authority:     auth,
		Notices:       notices,
		CountdownText: func() string { return live },
	})
	live = "02:30"
	_ = d.Dispatch(context.Background(), intent.SetCountdown{})
	notices.wait(t)
	if calls := auth.Calls(); calls[0].text != "02:30" {
		t.Fatalf("expected the value at dispatch time, got %q", calls[0].text)
	}
}

func TestSubmitCountdownIsSynchronous(t *testing.T) {
	auth := &fakeAuthority{}
	notices := newRecordingNotices()
	d, _ := core.NewDispatcher(core.DispatcherConfig{Authority: auth, Notices: notices})
	ok, err := d.SubmitCountdown(context.Background(), "12:00")
	if err != nil || !ok {
		t.Fatalf("expected accepted countdown, got ok=%v err=%v", ok, err)
	}
	if got := notices.wait(t); got.kind != core.NoticeSuccess {
		t.Fatalf("expected success notice, got %+v", got)
	}
}

func TestDispatchTransportFailure(t *testing.T) {
	auth := &fakeAuthority{err: schema.ErrChannelUnavailable}
	notices := newRecordingNotices()
	d, _ := core.NewDispatcher(core.DispatcherConfig{Authority: auth, Notices: notices})
	err := d.Dispatch(context.Background(), intent.NextPeriod{})
	if !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
	if got := notices.wait(t); got.kind != core.NoticeError {
		t.Fatalf("expected error notice, got %+v", got)
	}
}

func TestDispatchFeedback(t *testing.T) {
	cases := []struct {
		in   intent.Intent
		want string
	}{
		{intent.CreateMatch{}, "Match setup applied"},
		{intent.StartCountdown{}, "Countdown started"},
		{intent.SetOperatorTheme{Theme: schema.ThemeLight}, "Operator theme: light"},
		{intent.SetDisplayTheme{Theme: schema.ThemeDark}, "Display theme: dark"},
		{intent.SetOperatorTemplate{ID: "classic"}, "Operator template: Classic"},
	}
	for _, tc := range cases {
		notices := newRecordingNotices()
		d, _ := core.NewDispatcher(core.DispatcherConfig{
			Authority: &fakeAuthority{},
			Notices:   notices,
			Label: func(controlID, value string) string {
				if controlID == core.OperatorTemplateID && value == "classic" {
					return "Classic"
				}
				return value
			},
		})
		if err := d.Dispatch(context.Background(), tc.in); err != nil {
			t.Fatalf("dispatch %T: %v", tc.in, err)
		}
		if got := notices.wait(t); got.text != tc.want || got.kind != core.NoticeSuccess {
			t.Fatalf("dispatch %T: got %+v, want success %q", tc.in, got, tc.want)
		}
	}
}

func TestNewDispatcherRequiresAuthority(t *testing.T) {
	if _, err := core.NewDispatcher(core.DispatcherConfig{}); !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
}

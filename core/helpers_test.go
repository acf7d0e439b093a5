package core_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/internal/dom"
	"pkt.systems/courtside/schema"
)

type authorityCall struct {
	name schema.CommandName
	ints []int
	text string
}

type fakeAuthority struct {
	mu        sync.Mutex
	calls     []authorityCall
	err       error
	countdown func(text string) (bool, error)
}

func (f *fakeAuthority) record(name schema.CommandName, text string, ints ...int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, authorityCall{name: name, ints: ints, text: text})
	return f.err
}

func (f *fakeAuthority) Calls() []authorityCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAuthority) CreateMatch(_ context.Context, local, visit, gameType int) error {
	return f.record(schema.CommandCreateMatch, "", local, visit, gameType)
}
func (f *fakeAuthority) SetDisplayTheme(_ context.Context, theme schema.ThemeName) error {
	return f.record(schema.CommandSetDisplayTheme, string(theme))
}
func (f *fakeAuthority) SetOperatorTheme(_ context.Context, theme schema.ThemeName) error {
	return f.record(schema.CommandSetOperatorTheme, string(theme))
}
func (f *fakeAuthority) StartPause(context.Context) error {
	return f.record(schema.CommandStartPause, "")
}
func (f *fakeAuthority) ResetTime(context.Context) error {
	return f.record(schema.CommandResetTime, "")
}
func (f *fakeAuthority) NextPeriod(context.Context) error {
	return f.record(schema.CommandNextPeriod, "")
}
func (f *fakeAuthority) StartPregame(context.Context) error {
	return f.record(schema.CommandStartPregame, "")
}
func (f *fakeAuthority) SetPregameCountdown(_ context.Context, text string) (bool, error) {
	if err := f.record(schema.CommandSetPregameCountdown, text); err != nil {
		return false, err
	}
	if f.countdown != nil {
		return f.countdown(text)
	}
	_, err := schema.ParseClock(text)
	return err == nil, nil
}
func (f *fakeAuthority) ScoreLocal(_ context.Context, delta int) error {
	return f.record(schema.CommandScoreLocal, "", delta)
}
func (f *fakeAuthority) ScoreVisit(_ context.Context, delta int) error {
	return f.record(schema.CommandScoreVisit, "", delta)
}
func (f *fakeAuthority) FoulLocal(_ context.Context, delta int) error {
	return f.record(schema.CommandFoulLocal, "", delta)
}
func (f *fakeAuthority) FoulVisit(_ context.Context, delta int) error {
	return f.record(schema.CommandFoulVisit, "", delta)
}
func (f *fakeAuthority) SetOperatorTemplate(_ context.Context, id schema.TemplateID) error {
	return f.record(schema.CommandSetOperatorTemplate, string(id))
}
func (f *fakeAuthority) SetDisplayTemplate(_ context.Context, id schema.TemplateID) error {
	return f.record(schema.CommandSetDisplayTemplate, string(id))
}
func (f *fakeAuthority) RequestInitialState(context.Context) error {
	return f.record(schema.CommandRequestInitialState, "")
}

type notice struct {
	kind core.NoticeKind
	text string
}

type recordingNotices struct {
	ch chan notice
}

func newRecordingNotices() *recordingNotices {
	return &recordingNotices{ch: make(chan notice, 16)}
}

func (r *recordingNotices) Notify(kind core.NoticeKind, text string) {
	r.ch <- notice{kind: kind, text: text}
}

func (r *recordingNotices) wait(t *testing.T) notice {
	t.Helper()
	select {
	case n := <-r.ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for notice")
		return notice{}
	}
}

func testCatalog() dom.Catalog {
	return dom.Catalog{
		Teams: []core.Option{
			{Value: "0", Label: "Halcones"},
			{Value: "1", Label: "Toros"},
			{Value: "2", Label: "Lobos"},
		},
		GameTypes:         []core.Option{{Value: "0", Label: "FIBA"}, {Value: "1", Label: "3x3"}},
		OperatorTemplates: []core.Option{{Value: "classic", Label: "Classic"}, {Value: "compact", Label: "Compact"}},
		DisplayTemplates:  []core.Option{{Value: "arena", Label: "Arena"}, {Value: "minimal", Label: "Minimal"}},
	}
}

func testSnapshot() schema.Snapshot {
	return schema.Snapshot{
		PointsLocal:      54,
		PointsVisit:      49,
		Time:             "09:41",
		TimeStyle:        schema.TimeRegular,
		Period:           2,
		Countdown:        "05:00",
		FoulsLocal:       3,
		FoulsVisit:       4,
		TeamLocal:        schema.TeamView{Name: "Halcones"},
		TeamVisit:        schema.TeamView{Name: "Toros"},
		Selected:         schema.Selection{Local: 1, Visit: 2, GameType: 1},
		OperatorTheme:    schema.ThemeDark,
		DisplayTheme:     schema.ThemeLight,
		OperatorTemplate: "compact",
		DisplayTemplate:  "minimal",
	}
}

func encode(t *testing.T, snap schema.Snapshot) []byte {
	t.Helper()
	payload, err := snap.Encode()
	if err != nil {
		t.Fatalf("encode snapshot: %v", err)
	}
	return payload
}

func focusOn(el core.Element) core.FocusFunc {
	return func(candidate core.Element) bool { return candidate == el }
}

func text(t *testing.T, doc core.Document, field string) string {
	t.Helper()
	el := doc.Query(core.FieldSelector(field))
	if el == nil {
		t.Fatalf("missing field %q", field)
	}
	return el.Text()
}

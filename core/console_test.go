package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/intent"
	"pkt.systems/courtside/internal/dom"
	"pkt.systems/courtside/schema"
)

func newTestConsole(t *testing.T, variant schema.Variant, auth core.Authority, focus core.FocusFunc) (*core.Console, *dom.Document) {
	t.Helper()
	doc, err := dom.Build(variant, testCatalog())
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	console, err := core.NewConsole(core.ConsoleConfig{Variant: variant}, core.ConsoleDeps{
		Document:  doc,
		Authority: auth,
		Focus:     focus,
		Clock:     clockwork.NewFakeClock(),
	})
	if err != nil {
		t.Fatalf("new console: %v", err)
	}
	t.Cleanup(console.Close)
	return console, doc
}

func TestNewConsoleRequiresAuthority(t *testing.T) {
	_, err := core.NewConsole(core.ConsoleConfig{Variant: schema.VariantPanel}, core.ConsoleDeps{Document: dom.New()})
	if !errors.Is(err, schema.ErrChannelUnavailable) {
		t.Fatalf("expected ErrChannelUnavailable, got %v", err)
	}
	_, err = core.NewConsole(core.ConsoleConfig{Variant: "kiosk"}, core.ConsoleDeps{Document: dom.New(), Authority: &fakeAuthority{}})
	if !errors.Is(err, schema.ErrInvalidVariant) {
		t.Fatalf("expected ErrInvalidVariant, got %v", err)
	}
}

func TestConsoleStartRequestsInitialStateOnce(t *testing.T) {
	auth := &fakeAuthority{}
	console, _ := newTestConsole(t, schema.VariantPanel, auth, nil)
	for i := 0; i < 3; i++ {
		if err := console.Start(context.Background()); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	calls := auth.Calls()
	if len(calls) != 1 || calls[0].name != schema.CommandRequestInitialState {
		t.Fatalf("expected one requestInitialState, got %+v", calls)
	}
}

func TestConsoleHandleStateAppliesSnapshot(t *testing.T) {
	console, doc := newTestConsole(t, schema.VariantDashboard, &fakeAuthority{}, nil)
	if err := console.HandleState(context.Background(), encode(t, testSnapshot())); err != nil {
		t.Fatalf("handle state: %v", err)
	}
	if got := text(t, doc, "points-local"); got != "54" {
		t.Fatalf("expected points applied, got %q", got)
	}
	if console.Tabs() == nil || console.Tabs().Active() != "match" {
		t.Fatalf("expected dashboard tabs with match active")
	}
}

func TestConsoleMalformedSnapshotKeepsDocument(t *testing.T) {
	console, doc := newTestConsole(t, schema.VariantPanel, &fakeAuthority{}, nil)
	ctx := context.Background()
	if err := console.HandleState(ctx, encode(t, testSnapshot())); err != nil {
		t.Fatalf("handle state: %v", err)
	}
	err := console.HandleState(ctx, []byte(`{"points_local": 99}`))
	if !errors.Is(err, schema.ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}
	if got := text(t, doc, "points-local"); got != "54" {
		t.Fatalf("malformed payload changed the document: %q", got)
	}
	snap, _ := console.Mirror().Current()
	if snap.PointsLocal != 54 {
		t.Fatalf("malformed payload changed the mirror: %+v", snap)
	}
}

func TestConsoleSnapshotsApplyInArrivalOrder(t *testing.T) {
	console, doc := newTestConsole(t, schema.VariantPanel, &fakeAuthority{}, nil)
	ctx := context.Background()
	first := testSnapshot()
	second := testSnapshot()
	second.PointsVisit = 50
	second.Selected.Visit = 0
	_ = console.HandleState(ctx, encode(t, first))
	_ = console.HandleState(ctx, encode(t, second))
	if got := text(t, doc, "points-visit"); got != "50" {
		t.Fatalf("expected later snapshot to win, got %q", got)
	}
	if got := doc.ByID(core.VisitTeamID).Value(); got != "0" {
		t.Fatalf("expected later selection to win, got %q", got)
	}
	if console.Mirror().Version() != 2 {
		t.Fatalf("expected both snapshots applied")
	}
}

func TestConsoleThemeChoiceAppliesLocally(t *testing.T) {
	auth := &fakeAuthority{}
	console, doc := newTestConsole(t, schema.VariantPanel, auth, nil)
	ctx := context.Background()
	_ = console.HandleState(ctx, encode(t, testSnapshot()))
	if err := console.Dispatch(ctx, intent.SetOperatorTheme{Theme: schema.ThemeLight}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := themeClasses(doc.Root()); len(got) != 1 || got[0] != "theme-light" {
		t.Fatalf("expected optimistic theme-light, got %v", got)
	}
	if got := highlighted(doc, "set-operator-theme"); len(got) != 1 || got[0] != "light" {
		t.Fatalf("expected light button highlighted, got %v", got)
	}
	calls := auth.Calls()
	if len(calls) != 1 || calls[0].name != schema.CommandSetOperatorTheme {
		t.Fatalf("expected setOperatorTheme call, got %+v", calls)
	}
}

func TestConsoleCountdownRejectionLeavesSnapshot(t *testing.T) {
	auth := &fakeAuthority{}
	console, doc := newTestConsole(t, schema.VariantPanel, auth, nil)
	ctx := context.Background()
	_ = console.HandleState(ctx, encode(t, testSnapshot()))
	before, _ := console.Mirror().Current()

	doc.ByID(core.CountdownInputID).SetValue("abc")
	ok, err := console.SubmitCountdown(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("expected rejection, got ok=%v err=%v", ok, err)
	}
	after, _ := console.Mirror().Current()
	if after != before || console.Mirror().Version() != 1 {
		t.Fatalf("rejected countdown changed the mirror")
	}
	toasts := console.Notifier().Container().Children()
	if len(toasts) != 1 || !toasts[0].HasClass("toast--error") {
		t.Fatalf("expected one error toast, got %d", len(toasts))
	}
}

func TestConsoleTemplateFeedbackUsesOptionLabel(t *testing.T) {
	console, _ := newTestConsole(t, schema.VariantDashboard, &fakeAuthority{}, nil)
	if err := console.Dispatch(context.Background(), intent.SetDisplayTemplate{ID: "minimal"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	toasts := console.Notifier().Container().Children()
	if len(toasts) != 1 || toasts[0].Text() != "Display template: Minimal" {
		t.Fatalf("unexpected feedback toasts")
	}
}

package intent

import (
	"testing"

	"pkt.systems/courtside/schema"
)

func TestParseKnownActions(t *testing.T) {
	cases := []struct {
		action string
		value  string
		want   Intent
	}{
		{"start-pause", "", StartPause{}},
		{"reset-time", "", ResetTime{}},
		{"next-period", "", NextPeriod{}},
		{"start-countdown", "", StartCountdown{}},
		{"set-countdown", "ignored", SetCountdown{}},
		{"score-local", "2", ScoreLocal{Delta: 2}},
		{"score-visit", "-1", ScoreVisit{Delta: -1}},
		{"foul-local", "+1", FoulLocal{Delta: 1}},
		{"foul-visit", "1", FoulVisit{Delta: 1}},
		{"set-operator-theme", "light", SetOperatorTheme{Theme: schema.ThemeLight}},
		{"set-display-theme", "DARK", SetDisplayTheme{Theme: schema.ThemeDark}},
		{"set-operator-template", " classic ", SetOperatorTemplate{ID: "classic"}},
		{"set-display-template", "", SetDisplayTemplate{ID: ""}},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.action, tc.value)
		if !ok {
			t.Fatalf("Parse(%q, %q) not ok", tc.action, tc.value)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q, %q) = %#v, want %#v", tc.action, tc.value, got, tc.want)
		}
		if string(got.Action()) != tc.action {
			t.Fatalf("Action() = %q, want %q", got.Action(), tc.action)
		}
	}
}

func TestParseScoreWithoutValueIsZeroDelta(t *testing.T) {
	got, ok := Parse("score-local", "")
	if !ok {
		t.Fatalf("expected score-local to parse")
	}
	if got != (ScoreLocal{Delta: 0}) {
		t.Fatalf("expected zero delta, got %#v", got)
	}
	got, _ = Parse("foul-visit", "many")
	if got != (FoulVisit{Delta: 0}) {
		t.Fatalf("expected zero delta for unparsable value, got %#v", got)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		action string
		value  string
	}{
		{"launch-confetti", ""},
		{"", ""},
		{"create-match", "1"},
		{"set-operator-theme", "neon"},
		{"set-display-theme", ""},
		{"set-display-template", "a\nb"},
	}
	for _, tc := range cases {
		if got, ok := Parse(tc.action, tc.value); ok || got != nil {
			t.Fatalf("Parse(%q, %q) expected rejection, got %#v", tc.action, tc.value, got)
		}
	}
}

func TestParseInt(t *testing.T) {
	cases := map[string]int{
		"3":                       3,
		" -2 ":                    -2,
		"+1":                      1,
		"2.5":                     2,
		"7abc":                    7,
		"abc":                     0,
		"":                        0,
		"-":                       0,
		"99999999999999999999999": 0,
	}
	for input, want := range cases {
		if got := ParseInt(input); got != want {
			t.Fatalf("ParseInt(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestNewCreateMatch(t *testing.T) {
	got := NewCreateMatch("3", "x", " 1")
	if got != (CreateMatch{Local: 3, Visit: 0, GameType: 1}) {
		t.Fatalf("unexpected match setup: %#v", got)
	}
}

func TestValueAttr(t *testing.T) {
	if ValueAttr(ActionSetDisplayTheme) != "data-theme" {
		t.Fatalf("theme actions read data-theme")
	}
	if ValueAttr(ActionScoreLocal) != "data-value" {
		t.Fatalf("delta actions read data-value")
	}
}

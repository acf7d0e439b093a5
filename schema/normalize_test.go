package schema

import (
	"errors"
	"testing"
)

func TestValidateOperatorID(t *testing.T) {
	cases := []struct {
		name     string
		operator OperatorID
		valid    bool
	}{
		{"simple", "alice", true},
		{"with-dots", "alice.dev", true},
		{"with-underscore", "alice_dev", true},
		{"with-dash", "alice-dev", true},
		{"with-digits", "alice123", true},
		{"empty", "", false},
		{"uppercase", "Alice", false},
		{"space", "alice dev", false},
		{"leading-space", " alice", false},
		{"symbol", "alice@", false},
	}

	for _, tc := range cases {
		err := ValidateOperatorID(tc.operator)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

func TestNormalizeVariant(t *testing.T) {
	cases := map[string]Variant{
		"":           VariantPanel,
		"panel":      VariantPanel,
		" Operator ": VariantPanel,
		"dashboard":  VariantDashboard,
		"TOUCH":      VariantDashboard,
	}
	for input, want := range cases {
		got, err := NormalizeVariant(input)
		if err != nil {
			t.Fatalf("NormalizeVariant(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("NormalizeVariant(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := NormalizeVariant("kiosk"); !errors.Is(err, ErrInvalidVariant) {
		t.Fatalf("expected ErrInvalidVariant, got %v", err)
	}
}

func TestNormalizeThemeName(t *testing.T) {
	if got, ok := NormalizeThemeName(" Light "); !ok || got != ThemeLight {
		t.Fatalf("expected light, got %q ok=%v", got, ok)
	}
	if _, ok := NormalizeThemeName("outrun"); ok {
		t.Fatalf("expected unsupported theme to be rejected")
	}
	classes := ThemeClasses()
	if len(classes) != 2 || classes[0] != "theme-dark" || classes[1] != "theme-light" {
		t.Fatalf("unexpected theme classes: %v", classes)
	}
}

func TestNormalizeTemplateID(t *testing.T) {
	if got, ok := NormalizeTemplateID("  classic "); !ok || got != "classic" {
		t.Fatalf("expected trimmed id, got %q ok=%v", got, ok)
	}
	if _, ok := NormalizeTemplateID("bad\x00id"); ok {
		t.Fatalf("expected control characters to be rejected")
	}
}

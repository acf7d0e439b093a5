package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version, got %q", got)
	}
}

func TestPseudoFromBuildInfo(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	info := &debug.BuildInfo{
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	got := pseudoFromBuildInfo(info, true)
	if got == "" {
		t.Fatalf("expected pseudo version")
	}
	if wantPrefix := "v0.0.0-20250102030405-1234567890ab"; got[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("unexpected version prefix: %q", got)
	}
	if got[len(got)-6:] != "+dirty" {
		t.Fatalf("expected dirty suffix, got %q", got)
	}
	if clean := pseudoFromBuildInfo(info, false); clean[len(clean)-6:] == "+dirty" {
		t.Fatalf("expected no dirty suffix, got %q", clean)
	}
	if pseudoFromBuildInfo(nil, true) != "" {
		t.Fatalf("expected empty version for nil build info")
	}
}

func TestDescribe(t *testing.T) {
	old := buildVersion
	buildVersion = "v2.0.0+dirty"
	t.Cleanup(func() { buildVersion = old })

	info := Describe()
	if info.Version != "v2.0.0+dirty" {
		t.Fatalf("expected dirty build version, got %q", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Fatalf("unexpected go version %q", info.GoVersion)
	}
	if s := info.String(); !strings.Contains(s, "v2.0.0+dirty") || !strings.HasPrefix(s, info.Module+" ") {
		t.Fatalf("unexpected summary %q", s)
	}
	if got := Current(); got != "v2.0.0" {
		t.Fatalf("expected clean version, got %q", got)
	}
}

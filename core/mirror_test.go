package core_test

import (
	"errors"
	"testing"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/schema"
)

func TestMirrorReplaceAndCurrent(t *testing.T) {
	m := core.NewMirror()
	if _, ok := m.Current(); ok {
		t.Fatalf("expected empty mirror")
	}
	first := testSnapshot()
	m.Replace(first)
	second := testSnapshot()
	second.PointsLocal = 0
	m.Replace(second)
	got, ok := m.Current()
	if !ok || got != second {
		t.Fatalf("expected latest snapshot, got %+v ok=%v", got, ok)
	}
	if m.Version() != 2 {
		t.Fatalf("expected version 2, got %d", m.Version())
	}
}

func TestMirrorRetainsSnapshotOnMalformedPayload(t *testing.T) {
	m := core.NewMirror()
	want := testSnapshot()
	if _, err := m.Accept(encode(t, want)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := m.Accept([]byte(`{"points_local": "lots"`)); !errors.Is(err, schema.ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}
	got, _ := m.Current()
	if got != want || m.Version() != 1 {
		t.Fatalf("expected previous snapshot retained, got %+v (version %d)", got, m.Version())
	}
}

package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/courtside/schema"
	"pkt.systems/pslog"
)

func newCaptureLogger(capture *logCapture) pslog.Logger {
	return pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
}

func TestWithVariantAndCommandAddFields(t *testing.T) {
	capture := &logCapture{}
	log := WithCommand(WithVariant(newCaptureLogger(capture), schema.VariantDashboard), schema.CommandScoreLocal)
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["variant"] != "dashboard" {
		t.Fatalf("expected variant field, got %+v", entry)
	}
	if entry["command"] != "scoreLocal" {
		t.Fatalf("expected command field, got %+v", entry)
	}
}

func TestWithOperatorSessionAddsFields(t *testing.T) {
	capture := &logCapture{}
	ctx := pslog.ContextWithLogger(context.Background(), newCaptureLogger(capture))
	log := WithOperatorSession(ctx, "alice", "s1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["operator"] != "alice" {
		t.Fatalf("expected operator field, got %+v", entry)
	}
	if entry["session"] != "s1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

func TestContextMarkersSkipDuplicateFields(t *testing.T) {
	capture := &logCapture{}
	base := newCaptureLogger(capture).With("operator", "alice", "session", "s1")
	ctx := ContextWithSessionLogger(context.Background(), base, "alice", "s1")
	WithOperatorSession(ctx, "alice", "s1").Info("hello")

	line := capture.buf.String()
	if bytes.Count([]byte(line), []byte(`"operator"`)) != 1 {
		t.Fatalf("expected a single operator field, got %s", line)
	}
	if bytes.Count([]byte(line), []byte(`"session"`)) != 1 {
		t.Fatalf("expected a single session field, got %s", line)
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	line := bytes.TrimSpace(data[:idx])
	entry := map[string]any{}
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}

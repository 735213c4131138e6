package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogSinkWarningLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	sink := NewSlogSink(logger)

	sink.Emit(Event{
		Severity: SeverityWarning,
		Code:     CodeUnknownToken,
		Message:  "token outside configured set",
		Attrs:    map[string]any{"token": "bf_play", "mode": "neutral"},
	})
	sink.Emit(Event{Severity: SeverityInfo, Code: CodeClamped, Message: "clamped"})

	out := buf.String()
	if !strings.Contains(out, "code=unknown_token") {
		t.Fatalf("expected code attr, got %q", out)
	}
	if !strings.Contains(out, "token=bf_play") {
		t.Fatalf("expected token attr, got %q", out)
	}
	// Info events log at debug and are filtered out at warn level.
	if strings.Contains(out, "clamped") {
		t.Fatalf("info event should be below warn level: %q", out)
	}
	// Attrs are emitted in key order.
	if strings.Index(out, "mode=") > strings.Index(out, "token=") {
		t.Fatalf("expected sorted attrs, got %q", out)
	}
}

func TestNewSlogSinkNilLogger(t *testing.T) {
	if NewSlogSink(nil).logger == nil {
		t.Fatal("expected default logger")
	}
}

func TestCollectorCountAndReset(t *testing.T) {
	var c Collector
	c.Emit(Event{Code: CodeUnweightedToken})
	c.Emit(Event{Code: CodeUnweightedToken})
	c.Emit(Event{Code: CodeClamped})

	if got := c.Count(CodeUnweightedToken); got != 2 {
		t.Fatalf("expected 2 unweighted events, got %d", got)
	}
	if got := len(c.Events()); got != 3 {
		t.Fatalf("expected 3 events, got %d", got)
	}
	c.Reset()
	if got := len(c.Events()); got != 0 {
		t.Fatalf("expected empty collector after reset, got %d", got)
	}
}

func TestFanoutSkipsNil(t *testing.T) {
	var a, b Collector
	sink := Fanout(&a, nil, &b)
	sink.Emit(Event{Code: CodeUnknownToken})

	if a.Count(CodeUnknownToken) != 1 || b.Count(CodeUnknownToken) != 1 {
		t.Fatal("expected event delivered to both collectors")
	}
}

func TestNopDiscards(t *testing.T) {
	Nop.Emit(Event{Code: CodeClamped})
}

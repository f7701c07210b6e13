package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
)

func TestInitWriter_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := InitWriter(&buf, "monitor", slog.LevelInfo)
	log.Debug("hidden")
	log.Info("cycle done", "symbols", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["service"] != "monitor" || line["msg"] != "cycle done" || line["symbols"] != float64(3) {
		t.Errorf("unexpected line %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestCycleID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	if id := CycleID(ctx); id != "" {
		t.Errorf("expected empty cycle id, got %q", id)
	}
	if Attrs(ctx) != nil {
		t.Error("expected nil attrs without a cycle id")
	}

	id := NewCycleID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("cycle id %q is not a uuid: %v", id, err)
	}
	ctx = WithCycleID(ctx, id)
	if got := CycleID(ctx); got != id {
		t.Errorf("got %q, want %q", got, id)
	}
	if attrs := Attrs(ctx); len(attrs) != 1 {
		t.Errorf("attrs = %v", attrs)
	}
}

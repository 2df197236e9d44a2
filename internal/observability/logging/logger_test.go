package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewJSONLoggerTagsServiceAndFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, "api", "warn")

	logger.Info("index_warmed", "chunks", 3)
	if buf.Len() != 0 {
		t.Fatalf("info event should be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("nats_disconnected", "error", "eof")
	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event["service"] != "api" || event["msg"] != "nats_disconnected" {
		t.Fatalf("unexpected event %+v", event)
	}
	if _, ok := event["source"]; ok {
		t.Fatalf("source should only be recorded at debug level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

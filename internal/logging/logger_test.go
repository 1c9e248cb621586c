package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger = NewComponentLogger(logger, "engine")
	logger.Info("unit moved", Stage("service"), StockNumber("T1287"))

	line := buf.String()
	if !strings.Contains(line, "INFO engine: unit moved") {
		t.Errorf("line missing component prefix: %q", line)
	}
	if !strings.Contains(line, "stage=service") {
		t.Errorf("line missing stage attr: %q", line)
	}
	if !strings.Contains(line, "stock_number=T1287") {
		t.Errorf("line missing stock number attr: %q", line)
	}
}

func TestPrettyHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Warn("note added", String("text", "waiting on parts"))

	if !strings.Contains(buf.String(), `text="waiting on parts"`) {
		t.Errorf("value not quoted: %q", buf.String())
	}
}

func TestPrettyHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false))

	logger.Info("transition", Group("from", String("stage", "service")), Group("to", String("stage", "detail")))

	line := buf.String()
	if !strings.Contains(line, "from.stage=service") || !strings.Contains(line, "to.stage=detail") {
		t.Errorf("groups not flattened: %q", line)
	}
}

func TestJSONHandlerUsesCompactKeys(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	logger.Error("commit failed", UnitID("abc"))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if decoded["level"] != "error" {
		t.Errorf("level = %v, want error", decoded["level"])
	}
	if decoded["msg"] != "commit failed" {
		t.Errorf("msg = %v", decoded["msg"])
	}
	if _, ok := decoded["ts"]; !ok {
		t.Error("missing ts key")
	}
	if decoded["unit_id"] != "abc" {
		t.Errorf("unit_id = %v", decoded["unit_id"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		" ERROR ": slog.LevelError,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must report disabled at every level.
	logger.Info("ignored")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("nop logger reports enabled")
	}
}

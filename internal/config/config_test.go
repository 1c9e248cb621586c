package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for missing file")
	}
	if resolved != missing {
		t.Errorf("resolved path = %q, want %q", resolved, missing)
	}
	if cfg.Pipeline.DailyHoldingCost != 32 {
		t.Errorf("daily holding cost = %v, want 32", cfg.Pipeline.DailyHoldingCost)
	}
	if cfg.Pipeline.AgingThresholdDays != 5 {
		t.Errorf("aging threshold = %v, want 5", cfg.Pipeline.AgingThresholdDays)
	}
	if cfg.Pipeline.TransitionRetries != 3 {
		t.Errorf("transition retries = %d, want 3", cfg.Pipeline.TransitionRetries)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"

[pipeline]
daily_holding_cost = 48.5
transition_retries = 5

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists=true")
	}
	if cfg.Pipeline.DailyHoldingCost != 48.5 {
		t.Errorf("daily holding cost = %v, want 48.5", cfg.Pipeline.DailyHoldingCost)
	}
	if cfg.Pipeline.TransitionRetries != 5 {
		t.Errorf("transition retries = %d, want 5", cfg.Pipeline.TransitionRetries)
	}
	if cfg.Pipeline.AgingThresholdDays != 5 {
		t.Errorf("aging threshold overridden unexpectedly: %v", cfg.Pipeline.AgingThresholdDays)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v, want json/debug", cfg.Logging)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "data") {
		t.Errorf("data dir = %q", cfg.Paths.DataDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[pipeline]
transition_retries = 0
aging_threshold_days = -1.0

[logging]
format = "xml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, _, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"transition_retries", "aging_threshold_days", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing mention of %s", err, want)
		}
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got, err := ExpandPath("~/vinflow/data")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, "vinflow", "data")
	if got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Paths.SocketPath = filepath.Join(dir, "run", "vinflow.sock")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, filepath.Join(dir, "run")} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Errorf("directory %q not created: %v", p, err)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected error writing over existing config")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[pipeline]") {
		t.Error("sample config missing [pipeline] section")
	}
}

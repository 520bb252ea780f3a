package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf}), "dispatcher")

	logger.Info("dispatch completed", "messages", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["component"] != "dispatcher" || entry["msg"] != "dispatch completed" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestDefaultConfig_LevelFromEnv(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	cfg := DefaultConfig()
	if cfg.Level != slog.LevelWarn {
		t.Errorf("expected warn, got %s", cfg.Level)
	}
	if cfg.Format != "text" {
		t.Errorf("expected text format locally, got %s", cfg.Format)
	}

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "1")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "tasknotify-api")

	cfg = DefaultConfig()
	if cfg.Level != slog.LevelDebug || cfg.Format != "json" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"packline/internal/config"
	"packline/internal/logging"
)

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("station started")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "packlined.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "station started") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestConsoleLoggerHeaderAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "verify")
	component.Info("item verified",
		logging.String(logging.FieldJobID, "0123456789abcdef"),
		logging.Int(logging.FieldDisplayID, 42),
		logging.Int("box", 3),
		logging.String("code", "01\x1d21"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	for _, want := range []string{"INFO [verify] Job 01234567 · Item #42 – item verified", "- Box: 3", `- Code: "01\x1d21"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", out)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller", logging.String("detail", "x"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", data)
	}
	if !strings.Contains(string(data), "    detail: x") {
		t.Fatalf("expected raw debug field, got %q", data)
	}
}

func TestJSONLoggerShape(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithJobID(context.Background(), "job-1")
	logging.WarnWithContext(logging.WithContext(ctx, logger), "printer unreachable", "printer_send_failed",
		logging.Error(errors.New("connection refused")),
		logging.String(logging.FieldImpact, "box label not printed"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, data)
	}
	checks := map[string]string{
		"level":                  "warn",
		"msg":                    "printer unreachable",
		logging.FieldJobID:       "job-1",
		logging.FieldEventType:   "printer_send_failed",
		logging.FieldImpact:      "box label not printed",
		logging.FieldErrorHint:   "check logs for details",
		"error":                  "connection refused",
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Fatalf("%s = %q, want %q (entry %v)", key, got, want, entry)
		}
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 8) {
		t.Fatal("nop logger should be disabled at every level")
	}
	logging.WarnWithContext(nil, "ignored", "none")
}

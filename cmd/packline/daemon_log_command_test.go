package main

import (
	"os"
	"path/filepath"
	"testing"

	"packline/internal/config"
	"packline/internal/testsupport"
)

func TestDaemonLogShowsFilteredTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	configPath := filepath.Join(base, "station.toml")
	if err := config.WriteFile(configPath, cfg); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, _, err := runCLI(t, []string{"daemon-log"}, "", configPath)
	if err != nil {
		t.Fatalf("daemon-log: %v", err)
	}
	requireContains(t, out, "No log lines")

	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	runLog := filepath.Join(cfg.Paths.LogDir, "packlined-run.log")
	content := "INFO daemon_ready\nWARN preflight_failed check=Scanner\nINFO scan_verified\n"
	if err := os.WriteFile(runLog, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	if err := os.Symlink(runLog, filepath.Join(cfg.Paths.LogDir, "packlined.log")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	out, _, err = runCLI(t, []string{"daemon-log", "-n", "2", "--grep", "preflight"}, "", configPath)
	if err != nil {
		t.Fatalf("daemon-log: %v", err)
	}
	requireContains(t, out, "preflight_failed check=Scanner")
	requireNotContains(t, out, "daemon_ready")
	requireNotContains(t, out, "scan_verified")
}

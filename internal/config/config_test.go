package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"packline/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "packline")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SocketPath != filepath.Join(wantData, "packline.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "packline.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Scanner.Address != "192.168.1.12:23" {
		t.Fatalf("unexpected scanner address: %q", cfg.Scanner.Address)
	}
	if cfg.Scanner.ReconnectBackoff() != 3*time.Second || cfg.Scanner.ReadTimeout() != 10*time.Second {
		t.Fatalf("unexpected scanner timing: %v / %v", cfg.Scanner.ReconnectBackoff(), cfg.Scanner.ReadTimeout())
	}
	if cfg.Health.DialTimeout() != 600*time.Millisecond || cfg.Health.Interval() != 5*time.Second {
		t.Fatalf("unexpected health timing: %v / %v", cfg.Health.DialTimeout(), cfg.Health.Interval())
	}
	if cfg.Reject.Duration() != 500*time.Millisecond {
		t.Fatalf("unexpected reject duration: %v", cfg.Reject.Duration())
	}
	if cfg.Printers.Box.Port != 9100 || cfg.Printers.DPI != 203 || cfg.Printers.BoxCopies != 1 {
		t.Fatalf("unexpected printer defaults: %+v", cfg.Printers)
	}
	if cfg.Labels.Product.Darkness != 20 || cfg.Labels.Product.ModuleSize != 6 {
		t.Fatalf("unexpected label defaults: %+v", cfg.Labels.Product)
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/station",
		},
		"line": map[string]any{
			"items_per_box":    12,
			"date_required":    true,
			"production_date":  "15.03.2026",
			"force_short_code": true,
		},
		"scanner": map[string]any{
			"address": "10.0.0.5:2001",
		},
		"labels": map[string]any{
			"box": map[string]any{
				"width_mm":    100.0,
				"height_mm":   70.0,
				"module_size": 40,
			},
		},
		"reject": map[string]any{
			"duration_seconds": 0.01,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "station") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.LogDir != filepath.Join(tempHome, ".local", "share", "packline", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Line.ItemsPerBox != 12 || !cfg.Line.DateRequired || !cfg.Line.ForceShortCode {
		t.Fatalf("unexpected line settings: %+v", cfg.Line)
	}
	if cfg.Labels.Box.ModuleSize != 12 {
		t.Fatalf("expected module size clamped to 12, got %d", cfg.Labels.Box.ModuleSize)
	}
	if cfg.Reject.DurationSeconds != 0.05 {
		t.Fatalf("expected reject duration floored to 0.05, got %v", cfg.Reject.DurationSeconds)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"production date", func(c *config.Config) { c.Line.ProductionDate = "2026-03-15" }, "line.production_date"},
		{"impossible date", func(c *config.Config) { c.Line.ProductionDate = "31.02.2026" }, "line.production_date"},
		{"scanner address", func(c *config.Config) { c.Scanner.Address = "no-port" }, "scanner.address"},
		{"printer port", func(c *config.Config) { c.Printers.Box.Port = 70000 }, "printers.box.port"},
		{"label size", func(c *config.Config) { c.Labels.Product.WidthMM = 0 }, "labels.product"},
		{"reject port", func(c *config.Config) { c.Reject.Port = "" }, "reject.port"},
		{"ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "packline-line2" }, "notifications.ntfy_topic"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidProductionDate(t *testing.T) {
	if !config.ValidProductionDate("01.12.2026") {
		t.Fatal("expected valid date")
	}
	for _, bad := range []string{"", "1.12.2026", "01/12/2026", "32.01.2026", "01.13.2026"} {
		if config.ValidProductionDate(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestCreateSampleLoads(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Printers.Product2.Enabled {
		t.Fatal("expected second product printer disabled in sample")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Paths.BackupDir = filepath.Join(base, "backups")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.ExportDir, cfg.Paths.BackupDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

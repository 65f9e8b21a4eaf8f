package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"packline/internal/config"
)

const legacySettingsFixture = `{
	// exported by the previous station
	"prod_width_mm": 60,
	"prod_h": "40,5",
	"box_printer_ip": "10.1.1.20",
	"box_printer_port": 6101,
	"box_ip": "10.1.1.21",
	"prod2_printer_ip": "10.1.1.30",
	"reject_com": "COM3",
	"reject_duration_s": 0.2,
	"scanner_ip": "10.1.1.5",
	"scanner_port": 2000,
	"short_code": 1,
	"date_required": "1",
	"production_date": "01.02.2026",
	"koli_adet": 24,
	"printer_enabled": 0,
	"box_copies": 2,
}`

func TestImportLegacy(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "ayarlar.json")
	if err := os.WriteFile(path, []byte(legacySettingsFixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := config.ImportLegacy(path)
	if err != nil {
		t.Fatalf("ImportLegacy returned error: %v", err)
	}
	if cfg.Labels.Product.WidthMM != 60 || cfg.Labels.Product.HeightMM != 40.5 {
		t.Fatalf("unexpected product label: %+v", cfg.Labels.Product)
	}
	if cfg.Labels.Product2.WidthMM != 60 {
		t.Fatalf("expected product2 to inherit product layout, got %+v", cfg.Labels.Product2)
	}
	// The current key wins over its legacy alias.
	if cfg.Printers.Box.Host != "10.1.1.21" || cfg.Printers.Box.Port != 6101 {
		t.Fatalf("unexpected box printer: %+v", cfg.Printers.Box)
	}
	if !cfg.Printers.Product2.Enabled || cfg.Printers.Product2.Host != "10.1.1.30" {
		t.Fatalf("unexpected product2 printer: %+v", cfg.Printers.Product2)
	}
	if cfg.Printers.Enabled {
		t.Fatal("expected printing disabled")
	}
	if cfg.Printers.BoxCopies != 2 {
		t.Fatalf("unexpected box copies: %d", cfg.Printers.BoxCopies)
	}
	if cfg.Reject.Port != "/dev/ttyS2" || cfg.Reject.DurationSeconds != 0.2 {
		t.Fatalf("unexpected reject settings: %+v", cfg.Reject)
	}
	if cfg.Scanner.Address != "10.1.1.5:2000" {
		t.Fatalf("unexpected scanner address: %q", cfg.Scanner.Address)
	}
	if !cfg.Line.ForceShortCode || !cfg.Line.DateRequired || cfg.Line.ProductionDate != "01.02.2026" {
		t.Fatalf("unexpected line settings: %+v", cfg.Line)
	}
	if cfg.Line.ItemsPerBox != 24 {
		t.Fatalf("unexpected items per box: %d", cfg.Line.ItemsPerBox)
	}
}

func TestImportLegacyWritesLoadableTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	src := filepath.Join(dir, "ayarlar.json")
	if err := os.WriteFile(src, []byte(`{"box_w": 80, "box_h": 60}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := config.ImportLegacy(src)
	if err != nil {
		t.Fatalf("ImportLegacy returned error: %v", err)
	}
	out := filepath.Join(dir, "out", "config.toml")
	if err := config.WriteFile(out, cfg); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	loaded, _, exists, err := config.Load(out)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected written config to exist")
	}
	if loaded.Labels.Box.WidthMM != 80 || loaded.Labels.Box.HeightMM != 60 {
		t.Fatalf("unexpected box label after round trip: %+v", loaded.Labels.Box)
	}
}

func TestReadLegacySettingsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := config.ReadLegacySettings(path); err == nil {
		t.Fatal("expected parse error")
	}
}

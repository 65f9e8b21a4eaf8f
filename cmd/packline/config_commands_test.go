package main

import (
	"os"
	"path/filepath"
	"testing"

	"packline/internal/config"
)

const legacyStationSettings = `{
	// station 2
	"box_ip": "192.168.1.40",
	"box_port": 9100,
	"reject_port": "COM3",
	"koli_adet": 12,
}`

func TestConfigInitRefusesOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "packline", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected second init to fail without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "", ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, "", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")
}

func TestConfigImportLegacy(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	legacy := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(legacy, []byte(legacyStationSettings), 0o644); err != nil {
		t.Fatalf("write legacy settings: %v", err)
	}
	target := filepath.Join(dir, "config.toml")

	out, _, err := runCLI(t, []string{"config", "import-legacy", legacy, "--path", target}, "", "")
	if err != nil {
		t.Fatalf("import-legacy: %v", err)
	}
	requireContains(t, out, "Imported "+legacy)
	requireContains(t, out, "192.168.1.40:9100")
	requireContains(t, out, "/dev/ttyS2")

	cfg, _, exists, err := config.Load(target)
	if err != nil || !exists {
		t.Fatalf("load imported config: exists=%v err=%v", exists, err)
	}
	if cfg.Line.ItemsPerBox != 12 || cfg.Reject.Port != "/dev/ttyS2" {
		t.Fatalf("unexpected imported config: line=%+v reject=%+v", cfg.Line, cfg.Reject)
	}
}

func TestStatusLineFormatting(t *testing.T) {
	got := renderStatusLine("Label", statusOK, "msg", false)
	if want := "  Label:             [OK] msg"; got != want {
		t.Fatalf("renderStatusLine = %q, want %q", got, want)
	}
	cases := map[string]statusKind{
		"verified":  statusOK,
		"duplicate": statusWarn,
		"not_found": statusError,
		"rejected":  statusError,
		"other":     statusInfo,
	}
	for outcome, want := range cases {
		if got := outcomeKind(outcome); got != want {
			t.Fatalf("outcomeKind(%q) = %v, want %v", outcome, got, want)
		}
	}
}

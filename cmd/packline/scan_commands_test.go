package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"packline/internal/api"
	"packline/internal/ipc"
)

func TestScanOutcomes(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA, codeB)
	env.run(t, "job", "load", list)

	out := env.run(t, "scan", codeA)
	requireContains(t, out, "VERIFIED")
	requireContains(t, out, "#1")

	out = env.run(t, "scan", codeA)
	requireContains(t, out, "DUPLICATE")

	out = env.run(t, "scan", "0104012345678901210NOPE")
	requireContains(t, out, "NOT FOUND")

	out = env.run(t, "scan", codeB, "--json")
	var res api.ScanResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode scan json: %v", err)
	}
	if res.Outcome != "verified" || res.Item == nil || res.Item.DisplayID != 2 {
		t.Fatalf("unexpected scan result: %+v", res)
	}

	out = env.run(t, "log", "-n", "10")
	requireContains(t, out, codeA)
	requireContains(t, out, "0104012345678901210NOPE")
}

func TestScanWithoutJobFails(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"scan", codeA}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected scan without a job to fail")
	}
}

func TestVerifyRejectsUnknownItem(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA)
	env.run(t, "job", "load", list)

	out := env.run(t, "verify", "1")
	requireContains(t, out, "VERIFIED")
	if _, _, err := runCLI(t, []string{"verify", "1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected second manual verify to fail")
	}
	if _, _, err := runCLI(t, []string{"verify", "9"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown item to fail")
	}
}

func TestSettingsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA)
	env.run(t, "job", "load", list, "--items-per-box", "4")

	out := env.run(t, "settings", "--json")
	var opts ipc.Options
	if err := json.Unmarshal([]byte(out), &opts); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if opts.ItemsPerBox != 4 || opts.DateRequired {
		t.Fatalf("unexpected options: %+v", opts)
	}

	out = env.run(t, "settings", "--date-required", "--production-date", "01.02.2026", "--short-code")
	requireContains(t, out, "01.02.2026")

	out = env.run(t, "settings", "--json")
	opts = ipc.Options{}
	if err := json.Unmarshal([]byte(out), &opts); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if !opts.DateRequired || !opts.ForceShortCode || opts.ItemsPerBox != 4 {
		t.Fatalf("settings not applied: %+v", opts)
	}

	if _, _, err := runCLI(t, []string{"settings", "--production-date", "2026-02-01"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected malformed production date to fail")
	}
}

func TestExportCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA, codeB)
	env.run(t, "job", "load", list)
	env.run(t, "scan", codeA)

	out := env.run(t, "export")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected three exports, got %q", out)
	}
	for _, line := range lines {
		path := strings.TrimPrefix(line, "Wrote ")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("export %s missing: %v", path, err)
		}
	}

	out = env.run(t, "export", "xlsx")
	requireContains(t, out, ".xlsx")

	if _, _, err := runCLI(t, []string{"export", "pdf"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown export kind to fail")
	}
}

func TestPrintCommandValidatesTarget(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA)
	env.run(t, "job", "load", list)

	if _, _, err := runCLI(t, []string{"print", "1", "--target", "label9"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown printer target to fail")
	}
	if _, _, err := runCLI(t, []string{"print", "abc"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected invalid item id to fail")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA, codeB)
	env.run(t, "job", "load", list, "--name", "Morning run")
	env.run(t, "scan", codeA)

	out := env.run(t, "status")
	requireContains(t, out, "running")
	requireContains(t, out, "Morning run")
	requireContains(t, out, "1 / 2 verified")
	requireContains(t, out, "Scanner")

	out = env.run(t, "status", "--json")
	var resp ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !resp.Running || resp.Station.Verified != 1 || resp.Station.Remaining != 1 {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestStatusWithoutDaemonReadsDatabase(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA, codeB)
	env.run(t, "job", "load", list, "--name", "Offline")
	env.run(t, "scan", codeB)

	env.server.Close()
	env.daemon.Stop()

	out := env.run(t, "status")
	requireContains(t, out, "not running")
	requireContains(t, out, "Offline")
	requireContains(t, out, "1 / 2 verified")

	out = env.run(t, "stop")
	requireContains(t, out, "Daemon is not running")
}

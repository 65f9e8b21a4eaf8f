package main

import (
	"encoding/json"
	"testing"

	"packline/internal/api"
)

func TestJobLoadListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", "barcode", codeA, codeB, codeC)

	out := env.run(t, "job", "load", list, "--name", "Order 7", "--items-per-box", "2")
	requireContains(t, out, "Order 7")
	requireContains(t, out, "3 items")

	out = env.run(t, "job", "list")
	requireContains(t, out, "Order 7")
	requireContains(t, out, "ACTIVE")
	requireContains(t, out, "order.csv")

	out = env.run(t, "job", "show")
	requireContains(t, out, "Verified: 0 / 3")
	requireContains(t, out, "PENDING")

	out = env.run(t, "job", "show", "--json")
	var job api.Job
	if err := json.Unmarshal([]byte(out), &job); err != nil {
		t.Fatalf("decode job json: %v\n%s", err, out)
	}
	if job.Header.Name != "Order 7" || job.Total != 3 || job.Header.Settings.ItemsPerBox != 2 {
		t.Fatalf("unexpected job: %+v", job.Header)
	}
}

func TestJobItemMaintenance(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA, codeB, codeC)
	env.run(t, "job", "load", list)

	env.run(t, "verify", "1")
	env.run(t, "verify", "2")

	out := env.run(t, "job", "show", "--pending")
	requireContains(t, out, "Verified: 2 / 3")
	requireNotContains(t, out, "VERIFIED")

	out = env.run(t, "job", "reset", "1")
	requireContains(t, out, "Reset 1 items")

	out = env.run(t, "job", "delete-items", "3")
	requireContains(t, out, "Deleted 1 items")

	out = env.run(t, "job", "show")
	requireContains(t, out, "Verified: 1 / 2")

	if _, _, err := runCLI(t, []string{"job", "reset"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected reset without ids to fail")
	}
	if _, _, err := runCLI(t, []string{"job", "delete-items", "x"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected invalid id to fail")
	}
}

func TestJobCopyActivateDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	first := env.writeProductList(t, "first.csv", codeA, codeB)
	second := env.writeProductList(t, "second.csv", codeC)

	env.run(t, "job", "load", first, "--name", "First")
	env.run(t, "scan", codeA)
	env.run(t, "job", "load", second, "--name", "Second")

	out := env.run(t, "job", "list", "--json")
	var headers []api.JobHeader
	if err := json.Unmarshal([]byte(out), &headers); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	var firstID string
	for _, h := range headers {
		if h.Name == "First" {
			firstID = h.ID
			if h.Status != "PAUSED" {
				t.Fatalf("expected first job paused, got %s", h.Status)
			}
		}
	}
	if firstID == "" {
		t.Fatalf("first job missing from %+v", headers)
	}

	out = env.run(t, "job", "activate", firstID)
	requireContains(t, out, "1 / 2 verified")

	out = env.run(t, "job", "copy", firstID, "--name", "First again")
	requireContains(t, out, "Copied job "+firstID)

	out = env.run(t, "job", "list", "--status", "PAUSED")
	requireContains(t, out, "First again")
	requireContains(t, out, "Second")
	requireNotContains(t, out, "ACTIVE")

	out = env.run(t, "job", "delete", firstID)
	requireContains(t, out, "Deleted job "+firstID)
	if _, _, err := runCLI(t, []string{"job", "show", firstID}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected deleted job to be gone")
	}
}

func TestJobLabelsAssignsBoxLabels(t *testing.T) {
	env := setupCLITestEnv(t)
	list := env.writeProductList(t, "order.csv", codeA, codeB)
	labels := env.writeProductList(t, "boxes.txt", "KOLI-001", "KOLI-002")

	env.run(t, "job", "load", list, "--items-per-box", "1")
	out := env.run(t, "job", "labels", labels)
	requireContains(t, out, "Loaded 2 box labels")

	out = env.run(t, "scan", codeB)
	requireContains(t, out, "KOLI-001")
}

func TestCommandsNeedDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	socket := t.TempDir() + "/missing.sock"
	_, _, err := runCLI(t, []string{"job", "list"}, socket, "")
	if err == nil {
		t.Fatal("expected error without daemon")
	}
	requireContains(t, err.Error(), "packline start")
}

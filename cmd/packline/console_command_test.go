package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"packline/internal/api"
	"packline/internal/ipc"
)

type fakeConsoleClient struct {
	scans    []string
	verify   []int
	resets   [][]int
	resetAll bool
	exports  []string
	scanErr  error
}

func (f *fakeConsoleClient) Scan(code string) (*ipc.ScanResponse, error) {
	f.scans = append(f.scans, code)
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return &ipc.ScanResponse{Result: api.ScanResult{
		Outcome: "verified",
		Item:    &api.Item{DisplayID: len(f.scans), Display: code},
	}}, nil
}

func (f *fakeConsoleClient) Verify(id int) (*ipc.ScanResponse, error) {
	f.verify = append(f.verify, id)
	return &ipc.ScanResponse{Result: api.ScanResult{Outcome: "verified", Item: &api.Item{DisplayID: id}}}, nil
}

func (f *fakeConsoleClient) Reset(ids []int, all bool) (*ipc.CountResponse, error) {
	f.resets = append(f.resets, ids)
	f.resetAll = f.resetAll || all
	return &ipc.CountResponse{Count: len(ids)}, nil
}

func (f *fakeConsoleClient) Status() (*ipc.StatusResponse, error) {
	return &ipc.StatusResponse{Running: true, Station: api.StationStatus{
		JobID: "j1", JobName: "Night", Verified: 3, Total: 5, Remaining: 2,
	}}, nil
}

func (f *fakeConsoleClient) ScanLog(limit int) (*ipc.ScanLogResponse, error) {
	return &ipc.ScanLogResponse{Entries: []api.LogEntry{{At: "10:00:00", Kind: "OK", Code: "ABC"}}}, nil
}

func (f *fakeConsoleClient) Export(kind string) (*ipc.ExportResponse, error) {
	f.exports = append(f.exports, kind)
	return &ipc.ExportResponse{Files: []string{"/tmp/" + kind + ".csv"}}, nil
}

func TestConsoleHandleRoutesLines(t *testing.T) {
	client := &fakeConsoleClient{}
	var out bytes.Buffer
	session := &consoleSession{client: client, out: &out}

	lines := []string{codeA, "  ", ":verify 4", ":reset 1,2", ":reset all", ":status", ":log", ":export remaining", ":bogus"}
	for _, line := range lines {
		if session.handle(line) {
			t.Fatalf("line %q ended the session", line)
		}
	}
	if !session.handle(":quit") {
		t.Fatal("expected :quit to end the session")
	}

	if diff := cmp.Diff([]string{codeA}, client.scans); diff != "" {
		t.Fatalf("scans mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4}, client.verify); diff != "" {
		t.Fatalf("verify mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]int{{1, 2}, nil}, client.resets); diff != "" {
		t.Fatalf("reset mismatch (-want +got):\n%s", diff)
	}
	if !client.resetAll {
		t.Fatal("expected :reset all to reset everything")
	}
	if diff := cmp.Diff([]string{"remaining"}, client.exports); diff != "" {
		t.Fatalf("export mismatch (-want +got):\n%s", diff)
	}

	text := out.String()
	for _, want := range []string{"VERIFIED", "Reset 2 items", "3 / 5 verified", "ABC", "remaining.csv", "unknown command :bogus"} {
		if !strings.Contains(text, want) {
			t.Fatalf("console output missing %q:\n%s", want, text)
		}
	}
}

func TestConsoleScanErrorKeepsSession(t *testing.T) {
	client := &fakeConsoleClient{scanErr: errors.New("no active job")}
	var out bytes.Buffer
	session := &consoleSession{client: client, out: &out}

	if session.handle(codeB) {
		t.Fatal("scan error should not end the session")
	}
	requireContains(t, out.String(), "no active job")
	if session.handle(":verify x") {
		t.Fatal("usage error should not end the session")
	}
	requireContains(t, out.String(), "invalid item id")
}

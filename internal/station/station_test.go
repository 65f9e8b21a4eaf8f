package station_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"packline/internal/config"
	"packline/internal/devices"
	"packline/internal/jobs"
	"packline/internal/logging"
	"packline/internal/report"
	"packline/internal/station"
	"packline/internal/testsupport"
	"packline/internal/verify"
)

const (
	codeA = "0104012345678901217A1B2"
	codeB = "0104012345678901219X9Y8"
	codeC = "0104012345678901215QWERT"
)

type fakePrinter struct {
	mu    sync.Mutex
	sends []string
	err   error
}

func (p *fakePrinter) Send(_ context.Context, endpoint devices.Endpoint, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, endpoint.Name+":"+string(payload))
	return p.err
}

func (p *fakePrinter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sends)
}

type fakeRejector struct {
	mu     sync.Mutex
	pulses []time.Duration
}

func (r *fakeRejector) Pulse(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pulses = append(r.pulses, d)
	return nil
}

func (r *fakeRejector) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pulses)
}

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	faults    []string
}

func (n *fakeNotifier) NotifyJobCompleted(_ context.Context, jobName string, total int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, fmt.Sprintf("%s:%d", jobName, total))
	return nil
}

func (n *fakeNotifier) NotifyDeviceFault(_ context.Context, device string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults = append(n.faults, device)
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error { return nil }

func (n *fakeNotifier) snapshot() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.completed), slices.Clone(n.faults)
}

type harness struct {
	cfg        *config.Config
	store      *jobs.Store
	station    *station.Station
	dispatcher *station.Dispatcher
	printer    *fakePrinter
	rejector   *fakeRejector
	notifier   *fakeNotifier
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	h := &harness{cfg: cfg, store: store, printer: &fakePrinter{}, rejector: &fakeRejector{}, notifier: &fakeNotifier{}}
	status := devices.NewStatusCache()
	h.dispatcher = station.NewDispatcher(cfg, h.printer, h.rejector, status, logging.NewNop(), station.WithNotifier(h.notifier))
	h.station = station.New(cfg, store, h.dispatcher, status, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go h.station.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.station.Done()
		h.dispatcher.Close()
	})
	return h
}

func (h *harness) writeList(t *testing.T, name string, lines ...string) string {
	t.Helper()
	return testsupport.WriteLines(t, filepath.Join(testsupport.BaseDir(h.cfg), "lists", name), "\r\n", lines...)
}

func intPtr(v int) *int { return &v }

func TestScanWithoutJob(t *testing.T) {
	h := newHarness(t)
	if _, err := h.station.Scan(context.Background(), codeA); !errors.Is(err, station.ErrNoActiveJob) {
		t.Fatalf("expected ErrNoActiveJob, got %v", err)
	}
	st, err := h.station.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.JobID != "" {
		t.Fatalf("expected no job in status, got %q", st.JobID)
	}
}

func TestLoadScanAndExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeList(t, "order.csv", "barcode", codeA, codeB, codeC)

	snap, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: path, ItemsPerBox: intPtr(2)})
	if err != nil {
		t.Fatalf("LoadProductList: %v", err)
	}
	if snap.Total != 3 || snap.Verified != 0 {
		t.Fatalf("unexpected counters after load: %+v", snap)
	}
	if snap.Header.Settings.CodeType == "" || snap.Header.Status != jobs.StatusActive {
		t.Fatalf("unexpected header: %+v", snap.Header)
	}

	var outcomes []verify.Outcome
	for _, raw := range []string{codeB, codeB, "0104012345678901210NOPE1", codeA} {
		res, err := h.station.Scan(ctx, raw)
		if err != nil {
			t.Fatalf("Scan(%q): %v", raw, err)
		}
		outcomes = append(outcomes, res.Outcome)
	}
	want := []verify.Outcome{verify.OutcomeVerified, verify.OutcomeDuplicate, verify.OutcomeNotFound, verify.OutcomeVerified}
	if diff := cmp.Diff(want, outcomes); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}

	stored, err := h.store.LoadJob(ctx, snap.Header.ID)
	if err != nil {
		t.Fatalf("LoadJob: %v", err)
	}
	if got := stored.VerifiedCount(); got != 2 {
		t.Fatalf("stored verified = %d, want 2", got)
	}

	files, err := h.station.Export(ctx, report.KindAll)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 export files, got %v", files)
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("export %s missing: %v", f, err)
		}
	}

	log := h.station.ScanLog(10)
	if len(log) != 4 {
		t.Fatalf("scan log entries = %d, want 4", len(log))
	}
}

func TestCompletionNotifiedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeList(t, "short.csv", codeA, codeB)

	if _, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: path, Name: "Short run"}); err != nil {
		t.Fatalf("LoadProductList: %v", err)
	}
	if _, err := h.station.Scan(ctx, codeA); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	h.dispatcher.Wait()
	if completed, _ := h.notifier.snapshot(); len(completed) != 0 {
		t.Fatalf("completion announced early: %v", completed)
	}

	current, err := h.station.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	pending := 0
	for _, item := range current.Items {
		if item.Status == jobs.ItemPending {
			pending = item.DisplayID
		}
	}
	if pending == 0 {
		t.Fatalf("no pending item left: %+v", current.Items)
	}
	if _, err := h.station.ManualVerify(ctx, pending); err != nil {
		t.Fatalf("ManualVerify: %v", err)
	}
	if _, err := h.station.Scan(ctx, codeA); err != nil {
		t.Fatalf("duplicate Scan: %v", err)
	}
	h.dispatcher.Wait()

	completed, _ := h.notifier.snapshot()
	if diff := cmp.Diff([]string{"Short run:2"}, completed); diff != "" {
		t.Fatalf("completion notices mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBacksUpPreviousJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.writeList(t, "first.csv", codeA, codeB)
	second := h.writeList(t, "second.csv", codeC)

	snap1, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: first})
	if err != nil {
		t.Fatalf("load first: %v", err)
	}
	if _, err := h.station.Scan(ctx, codeA); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	snap2, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: second})
	if err != nil {
		t.Fatalf("load second: %v", err)
	}

	entries, err := os.ReadDir(h.cfg.Paths.BackupDir)
	if err != nil {
		t.Fatalf("read backup dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected detail and remaining backups, got %d files", len(entries))
	}

	headers, err := h.station.ListJobs(ctx, jobs.ListFilter{})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	statuses := map[string]jobs.HeaderStatus{}
	for _, hdr := range headers {
		statuses[hdr.ID] = hdr.Status
	}
	if statuses[snap1.Header.ID] != jobs.StatusPaused || statuses[snap2.Header.ID] != jobs.StatusActive {
		t.Fatalf("unexpected statuses: %v", statuses)
	}

	// The paused job resumes with its progress.
	resumed, err := h.station.Activate(ctx, snap1.Header.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if resumed.Verified != 1 || resumed.Total != 2 {
		t.Fatalf("unexpected resumed counters: verified=%d total=%d", resumed.Verified, resumed.Total)
	}
}

func TestFailedLoadKeepsCurrentJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeList(t, "order.csv", codeA)
	snap, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: path})
	if err != nil {
		t.Fatalf("LoadProductList: %v", err)
	}

	if _, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: filepath.Join(t.TempDir(), "missing.csv")}); err == nil {
		t.Fatal("expected error for a missing file")
	}
	empty := h.writeList(t, "empty.csv", "barcode")
	if _, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: empty}); err == nil {
		t.Fatal("expected error for an empty list")
	}
	if _, err := h.station.Activate(ctx, "no-such-job"); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	current, err := h.station.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if current.Header.ID != snap.Header.ID {
		t.Fatalf("active job changed to %s", current.Header.ID)
	}
}

func TestConcurrentScansVerifyOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeList(t, "order.csv", codeA, codeB)
	if _, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: path}); err != nil {
		t.Fatalf("LoadProductList: %v", err)
	}

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		verified int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.station.Scan(ctx, codeA)
			if err != nil {
				t.Errorf("Scan: %v", err)
				return
			}
			if res.Outcome == verify.OutcomeVerified {
				mu.Lock()
				verified++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if verified != 1 {
		t.Fatalf("verified outcomes = %d, want 1", verified)
	}
	snap, err := h.station.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Verified != 1 {
		t.Fatalf("snapshot verified = %d, want 1", snap.Verified)
	}
}

func TestResumeLoadsActiveJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := testsupport.SeedJob(t, h.store, jobs.Settings{ItemsPerBox: 5}, codeA, codeB)

	if err := h.station.Resume(ctx); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	st, err := h.station.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.JobID != id || st.Total != 2 || st.Options.ItemsPerBox != 5 {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestAdministrativeOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	path := h.writeList(t, "order.csv", codeA, codeB, codeC)
	snap, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: path})
	if err != nil {
		t.Fatalf("LoadProductList: %v", err)
	}

	if _, err := h.station.ManualVerify(ctx, 2); err != nil {
		t.Fatalf("ManualVerify: %v", err)
	}
	if _, err := h.station.ManualVerify(ctx, 2); !errors.Is(err, verify.ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
	if n, err := h.station.Reset(ctx, nil, true); err != nil || n != 1 {
		t.Fatalf("Reset = %d, %v; want 1", n, err)
	}
	if n, err := h.station.DeleteItems(ctx, []int{3}); err != nil || n != 1 {
		t.Fatalf("DeleteItems = %d, %v; want 1", n, err)
	}

	date := "04.05.2026"
	opts, err := h.station.UpdateSettings(ctx, station.SettingsUpdate{ItemsPerBox: intPtr(4), ProductionDate: &date})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if opts.ItemsPerBox != 4 || opts.ProductionDate != date {
		t.Fatalf("unexpected options: %+v", opts)
	}
	bad := "2026-05-04"
	if _, err := h.station.UpdateSettings(ctx, station.SettingsUpdate{ProductionDate: &bad}); err == nil {
		t.Fatal("expected error for a malformed production date")
	}

	labels := h.writeList(t, "labels.txt", "K1", "K2")
	if n, err := h.station.LoadBoxLabels(ctx, labels); err != nil || n != 2 {
		t.Fatalf("LoadBoxLabels = %d, %v; want 2", n, err)
	}

	stored, err := h.store.LoadJob(ctx, snap.Header.ID)
	if err != nil {
		t.Fatalf("LoadJob: %v", err)
	}
	if len(stored.Items) != 2 || stored.Settings.ItemsPerBox != 4 {
		t.Fatalf("unexpected stored job: items=%d settings=%+v", len(stored.Items), stored.Settings)
	}
	if diff := cmp.Diff([]string{"K1", "K2"}, stored.BoxLabels); diff != "" {
		t.Fatalf("box labels mismatch (-want +got):\n%s", diff)
	}

	copyID, err := h.station.Copy(ctx, snap.Header.ID, "")
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if err := h.station.Delete(ctx, snap.Header.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.station.Snapshot(ctx); !errors.Is(err, station.ErrNoActiveJob) {
		t.Fatalf("expected ErrNoActiveJob after deleting the active job, got %v", err)
	}
	if _, err := h.station.LoadJob(ctx, copyID); err != nil {
		t.Fatalf("LoadJob copy: %v", err)
	}
}

func TestFullBoxPrintsLabel(t *testing.T) {
	h := newHarness(t, testsupport.WithBoxPrinter("127.0.0.1", 9100))
	ctx := context.Background()
	path := h.writeList(t, "order.csv", codeA, codeB)
	labels := h.writeList(t, "labels.txt", "K1")
	if _, err := h.station.LoadProductList(ctx, station.LoadRequest{Path: path, BoxFile: labels, ItemsPerBox: intPtr(2)}); err != nil {
		t.Fatalf("LoadProductList: %v", err)
	}

	for _, raw := range []string{codeA, codeB} {
		if _, err := h.station.Scan(ctx, raw); err != nil {
			t.Fatalf("Scan: %v", err)
		}
	}
	h.dispatcher.Wait()
	if got := h.printer.count(); got != 1 {
		t.Fatalf("printer sends = %d, want 1", got)
	}
}

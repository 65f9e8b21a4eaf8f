package daemon_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"packline/internal/daemon"
	"packline/internal/jobs"
	"packline/internal/logging"
	"packline/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := d.Station(); !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning before start, got %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() || status.DatabasePath != cfg.DatabasePath() {
		t.Fatalf("unexpected paths: %+v", status)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := d.Station(); !errors.Is(err, daemon.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning after stop, got %v", err)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	first, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	second, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(first.Stop)

	err = second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestDaemonResumesActiveJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Line.ResumeActiveJob = true
	store := testsupport.MustOpenStore(t, cfg)
	id := testsupport.SeedJob(t, store, jobs.Settings{ItemsPerBox: 3}, "0104012345678901217A1B2")

	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	status := d.Status(ctx)
	if status.Station.JobID != id || status.Station.Total != 1 {
		t.Fatalf("unexpected station status: %+v", status.Station)
	}
	st, err := d.Station()
	if err != nil {
		t.Fatalf("Station: %v", err)
	}
	res, err := st.Scan(ctx, "0104012345678901217A1B2")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Item == nil || res.Item.BoxNumber != 1 {
		t.Fatalf("unexpected scan result: %+v", res)
	}
}

package devices_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"packline/internal/config"
	"packline/internal/devices"
	"packline/internal/logging"
	"packline/internal/testsupport"
)

func TestHealthPollCoalesces(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBoxPrinter("10.0.0.9", 9100))
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		entered <- struct{}{}
		<-release
		return nil, errors.New("refused")
	}
	status := devices.NewStatusCache()
	poller := devices.NewHealthPoller(cfg, status, logging.NewNop(), devices.WithDialFunc(dial))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Poll(context.Background())
	}()
	<-entered
	if poller.Poll(context.Background()) {
		t.Fatalf("overlapping poll should be skipped")
	}
	close(release)
	wg.Wait()

	snap := status.Snapshot()
	if len(snap.Printers) != 1 || snap.Printers[0].Reachable || snap.Printers[0].LastError == "" {
		t.Fatalf("unexpected printer status: %+v", snap.Printers)
	}
}

func TestHealthPollReportsRejectPort(t *testing.T) {
	port := filepath.Join(t.TempDir(), "ttyFAKE0")
	if err := os.WriteFile(port, nil, 0o644); err != nil {
		t.Fatalf("create fake port: %v", err)
	}
	cfg := testsupport.NewConfig(t)
	cfg.Reject = config.Reject{Enabled: true, Port: port, DurationSeconds: 0.5}
	status := devices.NewStatusCache()
	poller := devices.NewHealthPoller(cfg, status, logging.NewNop())

	if !poller.Poll(context.Background()) {
		t.Fatalf("poll should run")
	}
	if !status.Snapshot().Reject.Present {
		t.Fatalf("reject port should be reported present")
	}
	_ = os.Remove(port)
	poller.Poll(context.Background())
	if status.Snapshot().Reject.Present {
		t.Fatalf("reject port should be reported missing")
	}
}

func TestSerialRejectorRejectsNonTTY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-tty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := devices.NewSerialRejector(path).Pulse(ctx, 10*time.Millisecond); err == nil {
		t.Fatalf("expected ioctl error on a regular file")
	}
	if err := devices.NewSerialRejector(filepath.Join(t.TempDir(), "missing")).Pulse(ctx, 0); err == nil {
		t.Fatalf("expected open error for a missing port")
	}
}

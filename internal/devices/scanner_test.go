package devices_test

import (
	"context"
	"net"
	"testing"
	"time"

	"packline/internal/config"
	"packline/internal/devices"
	"packline/internal/logging"
)

func TestDecodeFrame(t *testing.T) {
	cases := map[string]string{
		"  0104012345678901\x1d21ABC\t ": "010401234567890121ABC",
		"\x00\x01":                        "",
		"CAF\xc9":                         "CAFÉ",
	}
	for in, want := range cases {
		if got := devices.DecodeFrame([]byte(in)); got != want {
			t.Fatalf("DecodeFrame(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestScannerListenerSplitsFrames(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("FIRST-001\r\nSECOND-002\nTHI"))
		time.Sleep(20 * time.Millisecond)
		_, _ = conn.Write([]byte("RD-003"))
		time.Sleep(2 * time.Second)
	}()

	codes := make(chan string, 8)
	status := devices.NewStatusCache()
	listener := devices.NewScannerListener(
		config.Scanner{Enabled: true, Address: ln.Addr().String(), ReconnectSeconds: 1, ReadTimeoutSeconds: 1},
		func(code string) { codes <- code },
		status,
		logging.NewNop(),
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()

	want := []string{"FIRST-001", "SECOND-002", "THIRD-003"}
	for _, w := range want {
		select {
		case got := <-codes:
			if got != w {
				t.Fatalf("scan = %q, want %q", got, w)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
	if state := status.ScannerState(); state != devices.ScannerConnected {
		t.Fatalf("scanner state = %s, want connected", state)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("listener did not stop on cancel")
	}
	if state := status.ScannerState(); state != devices.ScannerDisconnected {
		t.Fatalf("scanner state after stop = %s, want disconnected", state)
	}
}

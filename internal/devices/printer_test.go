package devices_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"packline/internal/config"
	"packline/internal/devices"
)

func TestTCPPrinterSend(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- string(data)
	}()

	printer := devices.NewTCPPrinter(time.Second)
	endpoint := devices.Endpoint{Name: devices.TargetBox, Address: ln.Addr().String()}
	if err := printer.Send(context.Background(), endpoint, []byte("^XA^XZ")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-received:
		if got != "^XA^XZ" {
			t.Fatalf("printer received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("payload not received")
	}
}

func TestTCPPrinterUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	err = devices.NewTCPPrinter(200*time.Millisecond).Send(context.Background(), devices.Endpoint{Name: "box", Address: addr}, []byte("x"))
	if err == nil {
		t.Fatalf("expected error for closed port")
	}
}

func TestEndpoints(t *testing.T) {
	cfg := config.Printers{
		Enabled:  true,
		Box:      config.Printer{Enabled: true, Host: "10.0.0.5", Port: 9100},
		Product:  config.Printer{Enabled: false, Host: "10.0.0.6", Port: 9100},
		Product2: config.Printer{Enabled: true, Host: "", Port: 9100},
	}
	got := devices.Endpoints(cfg)
	if len(got) != 1 || got[devices.TargetBox].Address != "10.0.0.5:9100" {
		t.Fatalf("unexpected endpoints: %+v", got)
	}
	cfg.Enabled = false
	if len(devices.Endpoints(cfg)) != 0 {
		t.Fatalf("disabled printers section should yield no endpoints")
	}
}

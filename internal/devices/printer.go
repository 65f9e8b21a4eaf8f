package devices

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"packline/internal/config"
)

// Printer targets.
const (
	TargetBox      = "box"
	TargetProduct  = "product"
	TargetProduct2 = "product2"
)

// ErrUnknownTarget reports a print target with no configured printer.
var ErrUnknownTarget = errors.New("printer target not configured")

const defaultSendTimeout = 2 * time.Second

// Endpoint is a printer reachable over raw TCP.
type Endpoint struct {
	Name    string
	Address string
}

// Endpoints returns the enabled printers keyed by target. A disabled
// printers section yields none.
func Endpoints(cfg config.Printers) map[string]Endpoint {
	out := make(map[string]Endpoint, 3)
	if !cfg.Enabled {
		return out
	}
	for name, p := range map[string]config.Printer{
		TargetBox:      cfg.Box,
		TargetProduct:  cfg.Product,
		TargetProduct2: cfg.Product2,
	} {
		if !p.Enabled || p.Address() == "" {
			continue
		}
		out[name] = Endpoint{Name: name, Address: p.Address()}
	}
	return out
}

// Printer delivers a rendered label payload.
type Printer interface {
	Send(ctx context.Context, endpoint Endpoint, payload []byte) error
}

// TCPPrinter writes payloads to port 9100 style raw sockets.
type TCPPrinter struct {
	timeout time.Duration
}

// NewTCPPrinter bounds connect and write by timeout.
func NewTCPPrinter(timeout time.Duration) *TCPPrinter {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &TCPPrinter{timeout: timeout}
}

// Send opens a fresh connection, writes payload and closes.
func (p *TCPPrinter) Send(ctx context.Context, endpoint Endpoint, payload []byte) error {
	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint.Address)
	if err != nil {
		return fmt.Errorf("dial printer %s (%s): %w", endpoint.Name, endpoint.Address, err)
	}
	defer conn.Close()
	if err := conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return fmt.Errorf("set printer deadline: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("write printer %s: %w", endpoint.Name, err)
	}
	return nil
}

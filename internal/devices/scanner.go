package devices

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"packline/internal/config"
	"packline/internal/logging"
)

const (
	defaultReconnect   = 3 * time.Second
	defaultReadTimeout = 10 * time.Second
	// A frame with no terminator is flushed after this much silence.
	frameFlushDelay = 150 * time.Millisecond
	readBufferSize  = 4096
)

// ScanHandler receives each decoded scan. It must not block for long.
type ScanHandler func(code string)

// ScannerListener keeps a TCP connection to the scanner open and hands each
// frame to a handler. It reconnects forever until its context ends.
type ScannerListener struct {
	address     string
	backoff     time.Duration
	readTimeout time.Duration
	handler     ScanHandler
	status      *StatusCache
	logger      *slog.Logger
	dial        func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewScannerListener builds a listener for cfg.
func NewScannerListener(cfg config.Scanner, handler ScanHandler, status *StatusCache, logger *slog.Logger) *ScannerListener {
	backoff := cfg.ReconnectBackoff()
	if backoff <= 0 {
		backoff = defaultReconnect
	}
	readTimeout := cfg.ReadTimeout()
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if status == nil {
		status = NewStatusCache()
	}
	dialer := &net.Dialer{Timeout: backoff}
	return &ScannerListener{
		address:     cfg.Address,
		backoff:     backoff,
		readTimeout: readTimeout,
		handler:     handler,
		status:      status,
		logger:      logging.NewComponentLogger(logger, "scanner"),
		dial:        dialer.DialContext,
	}
}

// Run blocks until ctx is cancelled.
func (l *ScannerListener) Run(ctx context.Context) {
	defer l.status.SetScanner(ScannerDisconnected, l.address)
	warned := false
	for ctx.Err() == nil {
		l.status.SetScanner(ScannerSearching, l.address)
		conn, err := l.dial(ctx, "tcp", l.address)
		if err != nil {
			l.status.SetScanner(ScannerDisconnected, l.address)
			if !warned && ctx.Err() == nil {
				logging.WarnWithContext(l.logger, "scanner unreachable", "scanner_connect_failed",
					logging.String("address", l.address),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check scanner power, cabling and address"),
					logging.String(logging.FieldImpact, "scans are not received until the scanner reconnects"),
				)
				warned = true
			}
			if !sleepCtx(ctx, l.backoff) {
				return
			}
			continue
		}
		warned = false
		l.status.SetScanner(ScannerConnected, l.address)
		l.logger.Info("scanner connected",
			logging.String(logging.FieldEventType, "scanner_connected"),
			logging.String("address", l.address),
		)
		err = l.read(ctx, conn)
		l.status.SetScanner(ScannerDisconnected, l.address)
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(l.logger, "scanner connection lost", "scanner_disconnected",
			logging.String("address", l.address),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the listener reconnects automatically"),
			logging.String(logging.FieldImpact, "scans during the outage are lost"),
		)
		if !sleepCtx(ctx, l.backoff) {
			return
		}
	}
}

func (l *ScannerListener) read(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	buf := make([]byte, readBufferSize)
	var pending []byte
	for {
		wait := l.readTimeout
		if len(pending) > 0 {
			wait = frameFlushDelay
		}
		if err := conn.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return err
		}
		n, err := conn.Read(buf)
		if n > 0 {
			pending = l.emitFrames(append(pending, buf[:n]...))
		}
		if err == nil {
			continue
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			if len(pending) > 0 {
				l.emit(pending)
				pending = pending[:0]
			}
			continue
		}
		if len(pending) > 0 {
			l.emit(pending)
		}
		return err
	}
}

// emitFrames hands every CR/LF terminated frame to the handler and returns
// the unterminated tail.
func (l *ScannerListener) emitFrames(data []byte) []byte {
	for {
		idx := bytes.IndexAny(data, "\r\n")
		if idx < 0 {
			return data
		}
		l.emit(data[:idx])
		data = data[idx+1:]
	}
}

func (l *ScannerListener) emit(frame []byte) {
	code := DecodeFrame(frame)
	if code == "" || l.handler == nil {
		return
	}
	l.handler(code)
}

// DecodeFrame turns raw scanner bytes into a scan string. GS and every other
// byte below 0x20 are dropped and the rest is read as ISO-8859-1.
func DecodeFrame(frame []byte) string {
	clean := make([]byte, 0, len(frame))
	for _, b := range frame {
		if b >= 0x20 {
			clean = append(clean, b)
		}
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(clean)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(decoded))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

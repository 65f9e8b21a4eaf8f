package devices

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"packline/internal/config"
	"packline/internal/logging"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultDialTimeout  = 600 * time.Millisecond
)

// HealthPoller probes printer reachability and reject port presence on a
// fixed interval. A poll that is still running when the next tick fires
// causes that tick to be skipped.
type HealthPoller struct {
	interval    time.Duration
	dialTimeout time.Duration
	printers    map[string]Endpoint
	rejectPort  string
	status      *StatusCache
	logger      *slog.Logger
	dial        func(ctx context.Context, network, address string) (net.Conn, error)

	inFlight atomic.Bool
}

// HealthOption customizes a HealthPoller.
type HealthOption func(*HealthPoller)

// WithDialFunc replaces the TCP dialer used for probes.
func WithDialFunc(dial func(ctx context.Context, network, address string) (net.Conn, error)) HealthOption {
	return func(p *HealthPoller) {
		if dial != nil {
			p.dial = dial
		}
	}
}

// NewHealthPoller probes the devices configured in cfg.
func NewHealthPoller(cfg *config.Config, status *StatusCache, logger *slog.Logger, opts ...HealthOption) *HealthPoller {
	interval := cfg.Health.Interval()
	if interval <= 0 {
		interval = defaultPollInterval
	}
	dialTimeout := cfg.Health.DialTimeout()
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	rejectPort := ""
	if cfg.Reject.Enabled {
		rejectPort = cfg.Reject.Port
	}
	p := &HealthPoller{
		interval:    interval,
		dialTimeout: dialTimeout,
		printers:    Endpoints(cfg.Printers),
		rejectPort:  rejectPort,
		status:      status,
		logger:      logging.NewComponentLogger(logger, "health"),
	}
	p.dial = (&net.Dialer{}).DialContext
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled.
func (p *HealthPoller) Run(ctx context.Context) {
	go p.Poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.Poll(ctx)
		}
	}
}

// Poll runs one probe round. It returns false without probing when another
// round is in progress.
func (p *HealthPoller) Poll(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("health poll skipped; previous poll still running")
		return false
	}
	defer p.inFlight.Store(false)

	for name, endpoint := range p.printers {
		err := p.probe(ctx, endpoint.Address)
		p.status.SetPrinter(name, endpoint.Address, err)
	}
	if p.rejectPort != "" {
		p.status.SetRejectPresent(PortPresent(p.rejectPort))
	}
	return true
}

func (p *HealthPoller) probe(ctx context.Context, address string) error {
	ctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", address)
	if err != nil {
		return err
	}
	return conn.Close()
}

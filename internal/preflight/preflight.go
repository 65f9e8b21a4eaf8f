package preflight

import (
	"context"
	"net"
	"time"

	"packline/internal/config"
	"packline/internal/devices"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// DialFunc opens a connection; tests substitute it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

const dialTimeout = 3 * time.Second

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	return runAll(ctx, cfg, (&net.Dialer{Timeout: dialTimeout}).DialContext)
}

func runAll(ctx context.Context, cfg *config.Config, dial DialFunc) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
		CheckDirectoryAccess("Backup directory", cfg.Paths.BackupDir),
	}

	if cfg.Scanner.Enabled {
		results = append(results, CheckEndpoint(ctx, "Scanner", cfg.Scanner.Address, dial))
	}

	endpoints := devices.Endpoints(cfg.Printers)
	for _, target := range []string{devices.TargetBox, devices.TargetProduct, devices.TargetProduct2} {
		ep, ok := endpoints[target]
		if !ok {
			continue
		}
		results = append(results, CheckEndpoint(ctx, "Printer "+target, ep.Address, dial))
	}

	if cfg.Reject.Enabled {
		results = append(results, CheckRejectPort(cfg.Reject.Port))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

package devices

import (
	"sort"
	"sync"
	"time"
)

// ScannerState is the connection state of the scanner feed.
type ScannerState string

const (
	ScannerDisabled     ScannerState = "disabled"
	ScannerSearching    ScannerState = "searching"
	ScannerConnected    ScannerState = "connected"
	ScannerDisconnected ScannerState = "disconnected"
)

// PrinterStatus is the last known state of one printer target.
type PrinterStatus struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Reachable bool      `json:"reachable"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// RejectStatus is the last known state of the reject actuator.
type RejectStatus struct {
	Enabled   bool      `json:"enabled"`
	Port      string    `json:"port"`
	Present   bool      `json:"present"`
	LastError string    `json:"last_error,omitempty"`
	LastPulse time.Time `json:"last_pulse,omitempty"`
}

// Status is a copy of the cache contents.
type Status struct {
	Scanner        ScannerState    `json:"scanner"`
	ScannerAddress string          `json:"scanner_address"`
	Printers       []PrinterStatus `json:"printers"`
	Reject         RejectStatus    `json:"reject"`
}

// StatusCache holds device health for status queries. Safe for concurrent
// use.
type StatusCache struct {
	mu             sync.Mutex
	scanner        ScannerState
	scannerAddress string
	printers       map[string]PrinterStatus
	reject         RejectStatus
	now            func() time.Time
}

// NewStatusCache returns a cache with the scanner disabled and no printers.
func NewStatusCache() *StatusCache {
	return &StatusCache{
		scanner:  ScannerDisabled,
		printers: make(map[string]PrinterStatus),
		now:      time.Now,
	}
}

// SetScanner records the scanner connection state.
func (c *StatusCache) SetScanner(state ScannerState, address string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanner = state
	c.scannerAddress = address
}

// ScannerState returns the current scanner state.
func (c *StatusCache) ScannerState() ScannerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scanner
}

// SetPrinter records a probe or send result for the named printer.
func (c *StatusCache) SetPrinter(name, address string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := PrinterStatus{Name: name, Address: address, Reachable: err == nil, CheckedAt: c.now()}
	if err != nil {
		status.LastError = err.Error()
	}
	c.printers[name] = status
}

// ConfigureReject sets the reject port the cache reports on.
func (c *StatusCache) ConfigureReject(enabled bool, port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reject.Enabled = enabled
	c.reject.Port = port
}

// SetRejectPresent records whether the reject port device node exists.
func (c *StatusCache) SetRejectPresent(present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reject.Present = present
}

// RecordPulse records the outcome of a reject pulse.
func (c *StatusCache) RecordPulse(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.reject.LastError = err.Error()
		return
	}
	c.reject.LastError = ""
	c.reject.LastPulse = c.now()
}

// Snapshot copies the cache. Printers are sorted by name.
func (c *StatusCache) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	printers := make([]PrinterStatus, 0, len(c.printers))
	for _, p := range c.printers {
		printers = append(printers, p)
	}
	sort.Slice(printers, func(i, j int) bool { return printers[i].Name < printers[j].Name })
	return Status{
		Scanner:        c.scanner,
		ScannerAddress: c.scannerAddress,
		Printers:       printers,
		Reject:         c.reject,
	}
}

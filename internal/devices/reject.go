package devices

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// MinPulse is the shortest DTR pulse the actuator reacts to.
const MinPulse = 50 * time.Millisecond

// Rejector drives the reject actuator.
type Rejector interface {
	Pulse(ctx context.Context, d time.Duration) error
}

// SerialRejector raises DTR on a serial device for the pulse length.
type SerialRejector struct {
	path string
	mu   sync.Mutex
}

// NewSerialRejector drives the device at path.
func NewSerialRejector(path string) *SerialRejector {
	return &SerialRejector{path: path}
}

// Path returns the serial device.
func (r *SerialRejector) Path() string { return r.path }

// Pulse raises DTR, waits d (at least MinPulse) and lowers it again.
// Overlapping pulses run one after another.
func (r *SerialRejector) Pulse(ctx context.Context, d time.Duration) error {
	d = max(d, MinPulse)
	r.mu.Lock()
	defer r.mu.Unlock()

	fd, err := unix.Open(r.path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open reject port %s: %w", r.path, err)
	}
	defer unix.Close(fd)

	if err := unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, unix.TIOCM_DTR); err != nil {
		return fmt.Errorf("raise DTR on %s: %w", r.path, err)
	}
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	timer.Stop()
	// Always drop DTR, even when cancelled mid-pulse.
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, unix.TIOCM_DTR); err != nil {
		return fmt.Errorf("lower DTR on %s: %w", r.path, err)
	}
	return nil
}

var serialPatterns = []string{"/dev/ttyS*", "/dev/ttyUSB*", "/dev/ttyACM*"}

// ListSerialPorts returns the serial device nodes present on the host.
func ListSerialPorts() []string {
	var ports []string
	for _, pattern := range serialPatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		ports = append(ports, matches...)
	}
	sort.Strings(ports)
	return ports
}

// PortPresent reports whether the device node at path exists.
func PortPresent(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"packline/internal/config"
	"packline/internal/devices"
	"packline/internal/jobs"
	"packline/internal/logging"
	"packline/internal/station"
)

// ErrNotRunning reports a station call while the daemon is stopped.
var ErrNotRunning = errors.New("daemon not running")

// Daemon owns the station and device goroutines and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobs.Store
	status  *devices.StatusCache
	logPath string

	printer  devices.Printer
	rejector devices.Rejector

	lockPath string
	lock     *flock.Flock

	mu         sync.Mutex
	running    atomic.Bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	station    *station.Station
	dispatcher *station.Dispatcher
	hotplug    *devices.HotplugWatcher
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithPrinter replaces the TCP label printer.
func WithPrinter(p devices.Printer) Option {
	return func(d *Daemon) { d.printer = p }
}

// WithRejector replaces the serial reject actuator.
func WithRejector(r devices.Rejector) Option {
	return func(d *Daemon) { d.rejector = r }
}

// WithLogPath records the log file reported by Status.
func WithLogPath(path string) Option {
	return func(d *Daemon) { d.logPath = path }
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Station      station.Status
	DatabasePath string
	LockFilePath string
	SocketPath   string
	LogPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and job store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		status:   devices.NewStatusCache(),
		logPath:  filepath.Join(cfg.Paths.LogDir, "packline.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.printer == nil && cfg.Printers.Enabled {
		d.printer = devices.NewTCPPrinter(cfg.Printers.Timeout())
	}
	if d.rejector == nil && cfg.Reject.Enabled && cfg.Reject.Port != "" {
		d.rejector = devices.NewSerialRejector(cfg.Reject.Port)
	}
	d.status.ConfigureReject(cfg.Reject.Enabled, cfg.Reject.Port)
	return d, nil
}

// Start acquires the daemon lock and launches the station and the device
// goroutines.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another packlined instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	dispatcher := station.NewDispatcher(d.cfg, d.printer, d.rejector, d.status, d.logger)
	st := station.New(d.cfg, d.store, dispatcher, d.status, d.logger)
	d.goRun(func() { st.Run(runCtx) })

	if d.cfg.Line.ResumeActiveJob {
		if err := st.Resume(runCtx); err != nil {
			logging.WarnWithContext(d.logger, "active job not resumed", "job_resume_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "load or activate a job with packline job load"),
				logging.String(logging.FieldImpact, "scans are rejected until a job is active"),
			)
		}
	}

	if d.cfg.Scanner.Enabled && d.cfg.Scanner.Address != "" {
		listener := devices.NewScannerListener(d.cfg.Scanner, st.Submit, d.status, d.logger)
		d.goRun(func() { listener.Run(runCtx) })
	} else {
		d.status.SetScanner(devices.ScannerDisabled, "")
	}

	poller := devices.NewHealthPoller(d.cfg, d.status, d.logger)
	d.goRun(func() { poller.Run(runCtx) })

	var hotplug *devices.HotplugWatcher
	if d.cfg.Health.WatchHotplug && d.cfg.Reject.Enabled {
		hotplug = devices.NewHotplugWatcher(d.cfg.Reject.Port, d.status, d.logger, func(string, bool) {
			go poller.Poll(runCtx)
		})
		if err := hotplug.Start(runCtx); err != nil {
			d.logger.Debug("hotplug watcher not started", logging.Error(err))
		}
	}

	d.cancel = cancel
	d.station = st
	d.dispatcher = dispatcher
	d.hotplug = hotplug
	d.running.Store(true)
	d.logger.Info("packline daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Bool("scanner", d.cfg.Scanner.Enabled),
		logging.Bool("printers", d.cfg.Printers.Enabled),
		logging.Bool("reject", d.cfg.Reject.Enabled),
	)
	return nil
}

func (d *Daemon) goRun(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Stop stops the station and device goroutines and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.hotplug.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if d.dispatcher != nil {
		d.dispatcher.Close()
	}
	d.station = nil
	d.dispatcher = nil
	d.hotplug = nil
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no packlined process is running"),
			logging.String(logging.FieldImpact, "the next start may report another instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("packline daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Station returns the running station.
func (d *Daemon) Station() (*station.Station, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.station == nil {
		return nil, ErrNotRunning
	}
	return d.station, nil
}

// Store returns the job store.
func (d *Daemon) Store() *jobs.Store { return d.store }

// Devices returns the device status cache.
func (d *Daemon) Devices() *devices.StatusCache { return d.status }

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string { return d.logPath }

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.Paths.SocketPath,
		LogPath:      d.logPath,
	}
	st, err := d.Station()
	if err != nil {
		status.Station = station.Status{Devices: d.status.Snapshot()}
		return status
	}
	summary, err := st.Status(ctx)
	if err != nil {
		d.logger.Debug("station status unavailable", logging.Error(err))
	}
	status.Station = summary
	return status
}

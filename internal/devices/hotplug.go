package devices

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"packline/internal/logging"
)

// HotplugWatcher follows udev tty events so the reject port status changes
// as soon as a USB serial adapter is plugged or pulled.
type HotplugWatcher struct {
	port     string
	status   *StatusCache
	logger   *slog.Logger
	onChange func(device string, present bool)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplugWatcher watches port. It returns nil when port is empty.
func NewHotplugWatcher(port string, status *StatusCache, logger *slog.Logger, onChange func(device string, present bool)) *HotplugWatcher {
	port = strings.TrimSpace(port)
	if port == "" {
		return nil
	}
	return &HotplugWatcher{
		port:     port,
		status:   status,
		logger:   logging.NewComponentLogger(logger, "hotplug"),
		onChange: onChange,
	}
}

// Start subscribes to udev events. A missing netlink permission is logged
// and leaves the poller as the only source of port status.
func (w *HotplugWatcher) Start(ctx context.Context) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(w.logger, "udev netlink unavailable", "hotplug_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "grant the daemon access to netlink sockets"),
			logging.String(logging.FieldImpact, "reject port changes are noticed on the next health poll"),
		)
		return nil
	}
	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true
	go w.loop(ctx, conn, w.quit)

	w.logger.Info("hotplug watcher started",
		logging.String(logging.FieldEventType, "hotplug_started"),
		logging.String("port", w.port),
	)
	return nil
}

// Stop closes the netlink socket.
func (w *HotplugWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	_ = w.conn.Close()
	w.conn = nil
	w.running = false
}

// Running reports whether the watcher is subscribed.
func (w *HotplugWatcher) Running() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *HotplugWatcher) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, w.matcher())
	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case event := <-queue:
			w.handleEvent(event)
		case err := <-errs:
			logging.WarnWithContext(w.logger, "udev monitor error", "hotplug_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "reject port changes may be missed"),
			)
		}
	}
}

func (w *HotplugWatcher) matcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"SUBSYSTEM": "tty"},
	})
	return rules
}

func (w *HotplugWatcher) handleEvent(event netlink.UEvent) {
	device := deviceName(event)
	if device == "" || device != w.port {
		return
	}
	present := event.Action == netlink.ADD
	if w.status != nil {
		w.status.SetRejectPresent(present)
	}
	w.logger.Info("reject port changed",
		logging.String(logging.FieldEventType, "reject_port_hotplug"),
		logging.String("device", device),
		logging.Bool("present", present),
	)
	if w.onChange != nil {
		w.onChange(device, present)
	}
}

func deviceName(event netlink.UEvent) string {
	if name := event.Env["DEVNAME"]; name != "" {
		if !strings.HasPrefix(name, "/") {
			name = "/dev/" + name
		}
		return name
	}
	devpath := event.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}

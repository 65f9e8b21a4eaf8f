package devices

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"

	"packline/internal/logging"
)

func TestNewHotplugWatcherNeedsPort(t *testing.T) {
	if w := NewHotplugWatcher("  ", nil, logging.NewNop(), nil); w != nil {
		t.Fatalf("expected nil watcher for empty port")
	}
	var w *HotplugWatcher
	w.Stop()
	if w.Running() {
		t.Fatalf("nil watcher should not report running")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil watcher: %v", err)
	}
}

func TestHotplugHandleEvent(t *testing.T) {
	status := NewStatusCache()
	var changes []bool
	w := NewHotplugWatcher("/dev/ttyUSB0", status, logging.NewNop(), func(_ string, present bool) {
		changes = append(changes, present)
	})

	w.handleEvent(netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "tty", "DEVNAME": "ttyUSB0"},
	})
	if !status.Snapshot().Reject.Present {
		t.Fatalf("add event should mark port present")
	}

	w.handleEvent(netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "tty", "DEVNAME": "/dev/ttyUSB1"},
	})
	if len(changes) != 1 {
		t.Fatalf("events for other ports must be ignored, got %d changes", len(changes))
	}

	w.handleEvent(netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "tty", "DEVPATH": "/devices/pci0000:00/usb1/1-1/ttyUSB0/tty/ttyUSB0"},
	})
	if status.Snapshot().Reject.Present {
		t.Fatalf("remove event should mark port missing")
	}
	if len(changes) != 2 || changes[1] {
		t.Fatalf("unexpected change callbacks: %v", changes)
	}
}

func TestHotplugMatcher(t *testing.T) {
	w := NewHotplugWatcher("/dev/ttyS1", nil, logging.NewNop(), nil)
	matcher := w.matcher()
	if !matcher.Evaluate(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "tty"}}) {
		t.Fatalf("tty add should match")
	}
	if matcher.Evaluate(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"SUBSYSTEM": "block"}}) {
		t.Fatalf("block events should not match")
	}
}

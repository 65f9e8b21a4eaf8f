// Package daemon coordinates the long-running packline process and its
// device integration points.
//
// It wires configuration, the job store, the station and the device
// watchers (scanner listener, health poller, udev hotplug watcher) into a
// single lifecycle with flock-based locking so only one instance drives the
// line. Matching and job logic live in the station and verify packages; the
// daemon only starts, stops and reports on them.
package daemon

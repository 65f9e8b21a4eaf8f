// Package devices talks to the line hardware: the TCP barcode scanner, the
// raw-socket ZPL printers, and the serial reject actuator. It also keeps a
// status cache fed by a reachability poller and udev hotplug events.
//
// Nothing here blocks the scan path. Callers run sends and pulses in their
// own goroutines and read failures back from the StatusCache.
package devices

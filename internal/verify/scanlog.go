package verify

import (
	"sync"
	"time"
)

// LogKind tags a scan log entry.
type LogKind string

const (
	KindOK     LogKind = "OK"
	KindDup    LogKind = "DUP"
	KindMiss   LogKind = "MISS"
	KindBad    LogKind = "BAD"
	KindDate   LogKind = "DATE"
	KindManual LogKind = "MANUAL"
)

const (
	scanLogCapacity = 3000
	scanLogKeep     = 2000
)

// LogEntry is one line of the operator scan report.
type LogEntry struct {
	At        time.Time `json:"at"`
	Kind      LogKind   `json:"kind"`
	Code      string    `json:"code"`
	DisplayID int       `json:"display_id,omitempty"`
	Box       int       `json:"box,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// ScanLog is a bounded report of recent scans. Once it grows past its
// capacity only the newest entries are kept.
type ScanLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewScanLog returns an empty log.
func NewScanLog() *ScanLog {
	return &ScanLog{}
}

// Append records entry.
func (l *ScanLog) Append(entry LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > scanLogCapacity {
		kept := make([]LogEntry, scanLogKeep)
		copy(kept, l.entries[len(l.entries)-scanLogKeep:])
		l.entries = kept
	}
}

// Tail returns up to n of the newest entries, oldest first. n <= 0 returns
// everything.
func (l *ScanLog) Tail(n int) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if n > 0 && len(l.entries) > n {
		start = len(l.entries) - n
	}
	out := make([]LogEntry, len(l.entries)-start)
	copy(out, l.entries[start:])
	return out
}

// Len returns the number of retained entries.
func (l *ScanLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

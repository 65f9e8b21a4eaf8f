// Package logging assembles structured slog loggers and formatting helpers used
// across packline services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so station code can tag log
// lines with the active job and item. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging

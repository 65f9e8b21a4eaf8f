// Package api defines wire-format types and converters for the IPC layer.
// It translates job, item and scan result models into transport-friendly
// DTOs the CLI can render without coupling to internal types.
//
// # Key Types
//
// JobHeader and Item: stored job records with timestamps rendered as
// RFC3339 strings and unset box fields omitted.
//
// ScanResult: the verdict of one scan or manual verify, including the
// classified code, the matched item and any box label print it triggered.
//
// StationStatus: active job counters, matching options and device state.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Enums (outcomes, reasons, item statuses) are
// exposed as their string values. A persistence failure after a verification
// travels as PersistError text because error values do not survive JSON.
package api

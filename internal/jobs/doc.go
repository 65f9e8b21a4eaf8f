// Package jobs persists packing jobs and their items in SQLite.
//
// A job is a header (name, source files, status, settings snapshot, current
// box) plus the ordered list of expected codes. The Store is the normalized
// repository; LegacyReader exposes the flat single-table layout written by
// older releases through the same Reader interface, and MigrateLegacy copies
// it across exactly once.
//
// At most one header is ACTIVE at a time. Every multi-row change runs in a
// single transaction so a crash never leaves a half-written job behind.
package jobs

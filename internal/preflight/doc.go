// Package preflight provides readiness checks for the station's working
// directories and the devices on the line.
//
// These checks run in two contexts:
//   - packlined runs RunAll at startup and logs every failed check as a
//     warning; the daemon still starts so scans can be handled once the
//     device comes back.
//   - The CLI "packline check" command prints every result.
//
// Each device check is gated by its config toggle; disabled devices are skipped.
package preflight

// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Job,
// item and scan payloads reuse the api package types so the CLI renders the
// same shapes the daemon produces. The client dials with a short timeout so
// commands fail fast when the daemon is offline.
package ipc

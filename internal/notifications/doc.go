// Package notifications pushes station events to an ntfy topic.
//
// The supervisor learns about a finished job or a failing device without
// watching the station screen. With no topic configured NewService returns
// a no-op, so callers never check whether notifications are enabled.
package notifications

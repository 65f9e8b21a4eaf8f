// Package config loads, normalizes, and validates packline station
// configuration.
//
// It supplies defaults for every section, expands user paths (including tilde
// shortcuts), reads TOML files, and can import the flat JSON settings file
// written by older station software. The Config type centralizes every knob
// the daemon and CLI need: storage directories, the scanner and printer
// endpoints, label geometry, and the reject actuator.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped label values, and clear validation errors.
package config

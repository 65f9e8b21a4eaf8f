// Package logs reads the daemon log files for the CLI.
//
// Last returns the final lines of a file with bounded memory. Follow polls
// for appended lines and restarts from the beginning when the current log
// pointer moves to a new run file or the file is truncated.
package logs

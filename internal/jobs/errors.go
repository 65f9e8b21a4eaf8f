package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a job id with no stored header.
	ErrNotFound = errors.New("job not found")
	// ErrNoFields reports a header update that names nothing to change.
	ErrNoFields = errors.New("no header fields to update")
)

// MalformedRowError describes a legacy row that could not be decoded.
type MalformedRowError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("legacy job %q: %s: %v", e.Filename, e.Reason, e.Err)
	}
	return fmt.Sprintf("legacy job %q: %s", e.Filename, e.Reason)
}

func (e *MalformedRowError) Unwrap() error { return e.Err }

package verify

import (
	"packline/internal/codes"
	"packline/internal/jobs"
)

// Outcome is the verdict for one scan.
type Outcome string

const (
	OutcomeVerified  Outcome = "verified"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeRejected  Outcome = "rejected"
)

// Reason qualifies a rejected scan.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonMissingPrecondition Reason = "missing_precondition"
	ReasonUnreadable          Reason = "unreadable"
)

// BoxPrint asks the dispatcher to print the label of a box that just filled.
type BoxPrint struct {
	BoxNumber int
	Label     string
}

// Result describes what a scan did. Item is a copy taken after the
// transition; it is nil for NotFound and Rejected.
type Result struct {
	Outcome    Outcome
	Reason     Reason
	Match      string
	Code       codes.Result
	Item       *jobs.Item
	BoxPrint   *BoxPrint
	PersistErr error
}

// ShouldReject reports whether the product in front of the scanner has to
// be pushed off the line.
func (r Result) ShouldReject() bool {
	return r.Outcome == OutcomeNotFound || r.Outcome == OutcomeRejected
}

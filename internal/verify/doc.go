// Package verify holds the in-memory working set of the active job and the
// scan-to-item matching rules.
//
// An Engine is not safe for concurrent use. The station package owns the
// single goroutine that calls it; every scan and administrative change runs
// there in arrival order.
package verify

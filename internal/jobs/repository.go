package jobs

import "context"

// Reader is the read side shared by the normalized store and the legacy
// single-table layout.
type Reader interface {
	ListJobs(ctx context.Context, filter ListFilter) ([]Header, error)
	LoadJob(ctx context.Context, id string) (*Job, error)
}

var (
	_ Reader = (*Store)(nil)
	_ Reader = (*LegacyReader)(nil)
)

package testsupport

import (
	"context"
	"testing"

	"packline/internal/config"
	"packline/internal/jobs"
	"packline/internal/logging"
)

// MustOpenStore opens the job store for cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()
	store, err := jobs.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Items builds pending items numbered from 1 for the given raw codes.
func Items(raws ...string) []jobs.Item {
	items := make([]jobs.Item, len(raws))
	for i, raw := range raws {
		items[i] = jobs.NewItem(i+1, raw)
	}
	return items
}

// SeedJob creates an active job holding raws and returns its id.
func SeedJob(t testing.TB, store *jobs.Store, settings jobs.Settings, raws ...string) string {
	t.Helper()
	ctx := context.Background()
	id, err := store.CreateJob(ctx, jobs.NewJob{
		Name:       "seed",
		SourceFile: "seed.csv",
		Settings:   settings,
		Items:      Items(raws...),
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := store.SetActive(ctx, id); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	return id
}

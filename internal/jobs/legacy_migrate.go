package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"packline/internal/logging"
)

// MigrateLegacy copies every decodable legacy row into the normalized tables.
// It runs only while the normalized header table is empty, so a second call
// is a no-op. Each row is written in its own transaction; malformed rows are
// logged and skipped. The number of migrated jobs is returned.
func MigrateLegacy(ctx context.Context, store *Store, legacy *LegacyReader, logger *slog.Logger) (int, error) {
	ctx = ensureContext(ctx)
	if logger == nil {
		logger = logging.NewNop()
	}

	var headers int
	if err := store.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM job_headers").Scan(&headers); err != nil {
		return 0, fmt.Errorf("count job headers: %w", err)
	}
	if headers > 0 {
		return 0, nil
	}
	available, err := legacy.Available(ctx)
	if err != nil || !available {
		return 0, err
	}

	rows, err := legacy.readRows(ctx, "")
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, row := range rows {
		if row.filename == "" {
			continue
		}
		job, err := decodeLegacyRow(row, store.now())
		if err != nil {
			var malformed *MalformedRowError
			if errors.As(err, &malformed) {
				logging.WarnWithContext(logger, "legacy job skipped", "legacy_row_malformed",
					logging.String("filename", malformed.Filename),
					logging.String("reason", malformed.Reason),
					logging.Error(malformed.Err),
					logging.String(logging.FieldErrorHint, "inspect the row in the legacy jobs table"),
					logging.String(logging.FieldImpact, "job not available in the job list"),
				)
				continue
			}
			return migrated, err
		}
		err = store.insertJob(ctx, job.ID, NewJob{
			Name:       job.Name,
			SourceFile: job.SourceFile,
			Settings:   job.Settings,
			CurrentBox: job.CurrentBox,
			Items:      job.Items,
			BoxLabels:  job.BoxLabels,
		}, StatusLegacy, job.CreatedAt, job.UpdatedAt)
		if err != nil {
			logging.WarnWithContext(logger, "legacy job not migrated", "legacy_row_insert_failed",
				logging.String("filename", row.filename),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check for duplicate filenames or disk errors"),
				logging.String(logging.FieldImpact, "job not available in the job list"),
			)
			continue
		}
		migrated++
	}

	if migrated > 0 || len(rows) > 0 {
		logger.Info("legacy jobs migrated",
			logging.Int("migrated", migrated),
			logging.Int("legacy_rows", len(rows)),
		)
	}
	return migrated, nil
}

package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateJob inserts a new PAUSED header, plus any items and box labels
// supplied, and returns the generated id.
func (s *Store) CreateJob(ctx context.Context, job NewJob) (string, error) {
	id := uuid.NewString()
	now := s.now()
	if err := s.insertJob(ctx, id, job, StatusPaused, now, now); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

func (s *Store) insertJob(ctx context.Context, id string, job NewJob, status HeaderStatus, created, updated time.Time) error {
	settings, err := encodeSettings(job.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO job_headers (job_id, job_name, source_file, box_file, status, created_at, updated_at, settings_json, current_box_no)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, job.Name, nullableString(job.SourceFile), nullableString(job.BoxFile), string(status), formatTime(created), formatTime(updated), settings,
			max(job.CurrentBox, 1),
		); err != nil {
			return fmt.Errorf("insert header: %w", err)
		}
		if err := insertItems(ctx, tx, id, job.Items); err != nil {
			return err
		}
		return replaceBoxLabels(ctx, tx, id, job.BoxLabels)
	})
}

// SetActive marks id ACTIVE and demotes any other ACTIVE header to PAUSED in
// one transaction. An unknown id leaves the previous active job untouched.
func (s *Store) SetActive(ctx context.Context, id string) error {
	now := formatTime(s.now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE job_headers SET status = ?, updated_at = ? WHERE status = ? AND job_id <> ?",
			string(StatusPaused), now, string(StatusActive), id,
		); err != nil {
			return fmt.Errorf("demote active jobs: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE job_headers SET status = ?, updated_at = ? WHERE job_id = ?",
			string(StatusActive), now, id,
		)
		if err != nil {
			return fmt.Errorf("promote job: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set active job %s: %w", id, err)
	}
	return nil
}

// ActiveJob returns the ACTIVE header, or ErrNotFound.
func (s *Store) ActiveJob(ctx context.Context) (*Header, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+headerColumns+" FROM job_headers WHERE status = ? ORDER BY updated_at DESC LIMIT 1",
		string(StatusActive),
	)
	header, err := scanHeader(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load active job: %w", err)
	}
	return header, nil
}

// ListJobs returns headers newest-updated first.
func (s *Store) ListJobs(ctx context.Context, filter ListFilter) ([]Header, error) {
	ctx = ensureContext(ctx)
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := "SELECT " + headerColumns + " FROM job_headers"
	args := make([]any, 0, len(filter.Statuses)+1)
	if len(filter.Statuses) > 0 {
		query += " WHERE status IN (" + makePlaceholders(len(filter.Statuses)) + ")"
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	query += " ORDER BY updated_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var headers []Header
	for rows.Next() {
		header, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job header: %w", err)
		}
		headers = append(headers, *header)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return headers, nil
}

// LoadJob returns the header, items ordered by display id, and box labels.
func (s *Store) LoadJob(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+headerColumns+" FROM job_headers WHERE job_id = ?", id)
	header, err := scanHeader(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}

	job := &Job{Header: *header}
	if job.Items, err = s.loadItems(ctx, id); err != nil {
		return nil, err
	}
	if job.BoxLabels, err = s.loadBoxLabels(ctx, id); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Store) loadItems(ctx context.Context, id string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM job_items WHERE job_id = ? ORDER BY display_id", id)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func (s *Store) loadBoxLabels(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT box_no, label FROM job_box_labels WHERE job_id = ? ORDER BY box_no", id)
	if err != nil {
		return nil, fmt.Errorf("load box labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var (
			boxNo int
			label string
		)
		if err := rows.Scan(&boxNo, &label); err != nil {
			return nil, fmt.Errorf("scan box label: %w", err)
		}
		// Box numbers are dense from 1; pad any gap so labels[k-1] stays box k.
		for len(labels) < boxNo-1 {
			labels = append(labels, "")
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate box labels: %w", err)
	}
	return labels, nil
}

// UpdateHeader changes the named header fields and bumps updated_at.
func (s *Store) UpdateHeader(ctx context.Context, id string, update HeaderUpdate) error {
	if update.empty() {
		return ErrNoFields
	}
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if update.Name != nil {
		sets = append(sets, "job_name = ?")
		args = append(args, *update.Name)
	}
	if update.BoxFile != nil {
		sets = append(sets, "box_file = ?")
		args = append(args, nullableString(*update.BoxFile))
	}
	if update.Settings != nil {
		encoded, err := encodeSettings(*update.Settings)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		sets = append(sets, "settings_json = ?")
		args = append(args, encoded)
	}
	if update.CurrentBox != nil {
		sets = append(sets, "current_box_no = ?")
		args = append(args, max(1, *update.CurrentBox))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(s.now()), id)

	res, err := s.execWithRetry(ctx, "UPDATE job_headers SET "+strings.Join(sets, ", ")+" WHERE job_id = ?", args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update job %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetBoxLabels replaces the stored box label list.
func (s *Store) SetBoxLabels(ctx context.Context, id string, labels []string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireHeader(ctx, tx, id); err != nil {
			return err
		}
		return replaceBoxLabels(ctx, tx, id, labels)
	})
	if err != nil {
		return fmt.Errorf("set box labels %s: %w", id, err)
	}
	return nil
}

// DeleteJob removes the header; items and labels cascade.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM job_headers WHERE job_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete job %s: %w", id, ErrNotFound)
	}
	return nil
}

// CopyJob creates a PAUSED copy of id named name, with every item back to
// PENDING and the box counter reset.
func (s *Store) CopyJob(ctx context.Context, id, name string) (string, error) {
	src, err := s.LoadJob(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		name = src.Name + " - Copy"
	}
	settings := src.Settings
	settings.Legacy = false
	settings.DoneCount = 0

	items := make([]Item, len(src.Items))
	for i, item := range src.Items {
		item.ResetToPending()
		items[i] = item
	}

	newID := uuid.NewString()
	now := s.now()
	err = s.insertJob(ctx, newID, NewJob{
		Name:       name,
		SourceFile: src.SourceFile,
		BoxFile:    src.BoxFile,
		Settings:   settings,
		Items:      items,
		BoxLabels:  src.BoxLabels,
	}, StatusPaused, now, now)
	if err != nil {
		return "", fmt.Errorf("copy job %s: %w", id, err)
	}
	return newID, nil
}

func requireHeader(ctx context.Context, tx *sql.Tx, id string) error {
	var exists int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM job_headers WHERE job_id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func replaceBoxLabels(ctx context.Context, tx *sql.Tx, id string, labels []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM job_box_labels WHERE job_id = ?", id); err != nil {
		return fmt.Errorf("clear box labels: %w", err)
	}
	if len(labels) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO job_box_labels (job_id, box_no, label) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare box label insert: %w", err)
	}
	defer stmt.Close()
	for i, label := range labels {
		if _, err := stmt.ExecContext(ctx, id, i+1, label); err != nil {
			return fmt.Errorf("insert box label %d: %w", i+1, err)
		}
	}
	return nil
}

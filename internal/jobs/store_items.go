package jobs

import (
	"context"
	"database/sql"
	"fmt"
)

// ReplaceItems overwrites the full item set of a job in one transaction.
func (s *Store) ReplaceItems(ctx context.Context, id string, items []Item) error {
	now := formatTime(s.now())
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireHeader(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM job_items WHERE job_id = ?", id); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}
		if err := insertItems(ctx, tx, id, items); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE job_headers SET updated_at = ? WHERE job_id = ?", now, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace items %s: %w", id, err)
	}
	return nil
}

// ResetItemsToPending returns verified items to PENDING. Nil or empty ids
// resets the whole job. The affected count is returned.
func (s *Store) ResetItemsToPending(ctx context.Context, id string, ids []int) (int64, error) {
	query := `UPDATE job_items
		SET status = ?, box_no = NULL, box_label = NULL, position_in_box = NULL, read_at = NULL, manual = 0, production_date = NULL
		WHERE job_id = ? AND status = ?`
	args := []any{string(ItemPending), id, string(ItemVerified)}
	if len(ids) > 0 {
		query += " AND display_id IN (" + makePlaceholders(len(ids)) + ")"
		args = append(args, intArgs(ids)...)
	}
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil || n == 0 {
			return err
		}
		if _, err := tx.ExecContext(ctx, "UPDATE job_headers SET updated_at = ? WHERE job_id = ?", formatTime(s.now()), id); err != nil {
			return fmt.Errorf("touch header: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reset items %s: %w", id, err)
	}
	return n, nil
}

// DeleteItems removes the given display ids and returns the deleted count.
func (s *Store) DeleteItems(ctx context.Context, id string, ids []int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{id}, intArgs(ids)...)
	res, err := s.execWithRetry(ctx,
		"DELETE FROM job_items WHERE job_id = ? AND display_id IN ("+makePlaceholders(len(ids))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("delete items %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, id string, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO job_items (job_id, "+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare item insert: %w", err)
	}
	defer stmt.Close()
	for _, item := range items {
		status := item.Status
		if status == "" {
			status = ItemPending
		}
		display := item.Display
		if display == "" {
			display = item.Raw
		}
		if _, err := stmt.ExecContext(ctx,
			id,
			item.DisplayID,
			item.Raw,
			display,
			string(status),
			nullablePositive(item.BoxNumber),
			nullableString(item.BoxLabel),
			nullablePositive(item.PositionInBox),
			nullableTime(item.ReadAt),
			boolToInt(item.Manual),
			nullableString(item.ProductionDate),
		); err != nil {
			return fmt.Errorf("insert item %d: %w", item.DisplayID, err)
		}
	}
	return nil
}

package report

import (
	"fmt"
	"time"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"packline/internal/jobs"
)

const (
	summarySheet   = "Summary"
	finishedSheet  = "Finished"
	remainingSheet = "Remaining"
)

func writeWorkbook(path string, job *jobs.Job, generated time.Time) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	for _, name := range []string{finishedSheet, remainingSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	verified := job.VerifiedCount()
	summary := [][]any{
		{"Job", job.Name},
		{"Source file", job.SourceFile},
		{"Box file", job.BoxFile},
		{"Status", string(job.Status)},
		{"Created", formatTime(job.CreatedAt)},
		{"Updated", formatTime(job.UpdatedAt)},
		{"Items per box", job.Settings.ItemsPerBox},
		{"Production date", job.Settings.ProductionDate},
		{"Code type", job.Settings.CodeType},
		{"Current box", job.CurrentBox},
		{"Total", len(job.Items)},
		{"Verified", verified},
		{"Remaining", len(job.Items) - verified},
		{"Generated", formatTime(generated)},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 18)
	_ = f.SetColWidth(summarySheet, "B", "B", 48)

	finished := [][]any{{"ID", "Box", "Position", "Box Label", "Read At", "Manual", "Production Date", "Code"}}
	for _, item := range verifiedByBox(job.Items) {
		readAt := ""
		if item.ReadAt != nil {
			readAt = formatTime(*item.ReadAt)
		}
		finished = append(finished, []any{
			item.DisplayID,
			boxText(item.BoxNumber),
			item.PositionInBox,
			labelText(item.BoxLabel),
			readAt,
			item.Manual,
			item.ProductionDate,
			item.Display,
		})
	}
	if err := writeRows(f, finishedSheet, finished); err != nil {
		return err
	}
	_ = f.SetColWidth(finishedSheet, "A", "C", 10)
	_ = f.SetColWidth(finishedSheet, "D", "D", 22)
	_ = f.SetColWidth(finishedSheet, "E", "E", 20)
	_ = f.SetColWidth(finishedSheet, "H", "H", 60)

	remaining := [][]any{{"ID", "Code"}}
	for _, item := range pendingByID(job.Items) {
		remaining = append(remaining, []any{item.DisplayID, item.Display})
	}
	if err := writeRows(f, remainingSheet, remaining); err != nil {
		return err
	}
	_ = f.SetColWidth(remainingSheet, "B", "B", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return atomic.WriteFile(path, buf)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

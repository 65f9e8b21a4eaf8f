// Package report writes the job exports operators hand to the warehouse:
// finished and remaining code lists, the automatic backup taken before a job
// is replaced, and an XLSX summary workbook.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"packline/internal/jobs"
	"packline/internal/logging"
)

// Kind selects an export.
type Kind string

const (
	KindFinished       Kind = "finished"
	KindFinishedSingle Kind = "finished_single"
	KindRemaining      Kind = "remaining"
	KindWorkbook       Kind = "xlsx"
	KindAll            Kind = "all"
)

// ParseKind validates a kind name.
func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindFinished, KindFinishedSingle, KindRemaining, KindWorkbook, KindAll:
		return kind, nil
	case "":
		return KindAll, nil
	default:
		return "", fmt.Errorf("unknown export kind %q", value)
	}
}

const backupStampLayout = "20060102_1504"

// Writer renders exports into a directory.
type Writer struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewWriter writes into dir.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "report"),
		now:    time.Now,
	}
}

// BaseName derives the export file prefix from the job's source file.
func BaseName(job *jobs.Job) string {
	name := filepath.Base(strings.TrimSpace(job.SourceFile))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = job.Name
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" {
		name = job.ID
	}
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
}

// Export writes the requested kind and returns the written paths. KindAll
// writes the three CSV exports.
func (w *Writer) Export(job *jobs.Job, kind Kind) ([]string, error) {
	kinds := []Kind{kind}
	if kind == KindAll {
		kinds = []Kind{KindFinished, KindFinishedSingle, KindRemaining}
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	base := filepath.Join(w.dir, BaseName(job))
	var written []string
	for _, k := range kinds {
		var (
			path string
			err  error
		)
		switch k {
		case KindFinished:
			path = base + "_finish.csv"
			err = writeFinished(path, job)
		case KindFinishedSingle:
			path = base + "_finished_single.csv"
			err = writeRawLines(path, verifiedByID(job.Items))
		case KindRemaining:
			path = base + "_remaining.csv"
			err = writeRawLines(path, pendingByID(job.Items))
		case KindWorkbook:
			path = base + "_report.xlsx"
			err = writeWorkbook(path, job, w.now())
		default:
			err = fmt.Errorf("unknown export kind %q", k)
		}
		if err != nil {
			return written, fmt.Errorf("export %s: %w", k, err)
		}
		written = append(written, path)
	}
	w.logger.Info("job exported",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("kind", string(kind)),
		logging.Int("files", len(written)),
	)
	return written, nil
}

// Backup writes the detail and remaining backups of job, stamped with the
// current minute. Parts with no items are skipped.
func (w *Writer) Backup(job *jobs.Job) ([]string, error) {
	if len(job.Items) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	stamp := w.now().Format(backupStampLayout)
	base := filepath.Join(w.dir, BaseName(job))

	var written []string
	if finished := verifiedByBox(job.Items); len(finished) > 0 {
		path := fmt.Sprintf("%s_backup_detail_%s.csv", base, stamp)
		rows := [][]string{{"ID", "Box", "BoxLabel", "Status", "Code"}}
		for _, item := range finished {
			rows = append(rows, []string{
				strconv.Itoa(item.DisplayID),
				boxText(item.BoxNumber),
				labelText(item.BoxLabel),
				string(item.Status),
				item.Raw,
			})
		}
		if err := writeCSV(path, rows); err != nil {
			return written, fmt.Errorf("backup detail: %w", err)
		}
		written = append(written, path)
	}
	if remaining := pendingByID(job.Items); len(remaining) > 0 {
		path := fmt.Sprintf("%s_backup_remaining_%s.csv", base, stamp)
		if err := writeRawLines(path, remaining); err != nil {
			return written, fmt.Errorf("backup remaining: %w", err)
		}
		written = append(written, path)
	}
	w.logger.Info("job backed up",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("files", len(written)),
	)
	return written, nil
}

func writeFinished(path string, job *jobs.Job) error {
	items := verifiedByBox(job.Items)
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{boxText(item.BoxNumber), labelText(item.BoxLabel), item.Raw})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = ';'
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}

func writeRawLines(path string, items []jobs.Item) error {
	var buf bytes.Buffer
	for _, item := range items {
		buf.WriteString(item.Raw)
		buf.WriteByte('\n')
	}
	return atomic.WriteFile(path, &buf)
}

// verifiedByBox orders verified items by box; unboxed items go last.
func verifiedByBox(items []jobs.Item) []jobs.Item {
	out := filter(items, jobs.ItemVerified)
	slices.SortStableFunc(out, func(a, b jobs.Item) int {
		return boxKey(a) - boxKey(b)
	})
	return out
}

func boxKey(item jobs.Item) int {
	if item.BoxNumber <= 0 {
		return 1 << 30
	}
	return item.BoxNumber
}

func verifiedByID(items []jobs.Item) []jobs.Item {
	out := filter(items, jobs.ItemVerified)
	slices.SortStableFunc(out, func(a, b jobs.Item) int { return a.DisplayID - b.DisplayID })
	return out
}

func pendingByID(items []jobs.Item) []jobs.Item {
	out := filter(items, jobs.ItemPending)
	slices.SortStableFunc(out, func(a, b jobs.Item) int { return a.DisplayID - b.DisplayID })
	return out
}

func filter(items []jobs.Item, status jobs.ItemStatus) []jobs.Item {
	out := make([]jobs.Item, 0, len(items))
	for _, item := range items {
		if item.Status == status {
			out = append(out, item)
		}
	}
	return out
}

func boxText(box int) string {
	if box <= 0 {
		return "-"
	}
	return strconv.Itoa(box)
}

func labelText(label string) string {
	if strings.TrimSpace(label) == "" {
		return "-"
	}
	return label
}

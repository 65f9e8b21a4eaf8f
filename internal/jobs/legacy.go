package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// workListSchema accepts both shapes older releases wrote: a bare array of
// item objects or an object wrapping it under "list".
const workListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "item": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": ["integer", "string"]},
        "raw": {"type": ["string", "null"]},
        "raw_disp": {"type": ["string", "null"]},
        "status": {"type": ["string", "null"]},
        "box": {"type": ["integer", "string", "null"]},
        "label": {"type": ["string", "null"]},
        "read_at": {"type": ["string", "null"]},
        "in_box": {"type": ["integer", "string", "null"]}
      }
    },
    "list": {"type": "array", "items": {"$ref": "#/definitions/item"}}
  },
  "oneOf": [
    {"$ref": "#/definitions/list"},
    {
      "type": "object",
      "required": ["list"],
      "properties": {"list": {"$ref": "#/definitions/list"}}
    }
  ]
}`

var (
	workListOnce     sync.Once
	workListCompiled *jsonschema.Schema
	workListErr      error
)

func compiledWorkListSchema() (*jsonschema.Schema, error) {
	workListOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("work_list.json", strings.NewReader(workListSchema)); err != nil {
			workListErr = fmt.Errorf("add work list schema: %w", err)
			return
		}
		workListCompiled, workListErr = compiler.Compile("work_list.json")
	})
	return workListCompiled, workListErr
}

// LegacyReader reads jobs from the flat `jobs` table written by older
// releases. It never writes.
type LegacyReader struct {
	db *sql.DB
}

// NewLegacyReader wraps db.
func NewLegacyReader(db *sql.DB) *LegacyReader {
	return &LegacyReader{db: db}
}

type legacyRow struct {
	filename    string
	workList    sql.NullString
	boxLabels   sql.NullString
	count       sql.NullInt64
	boxSize     sql.NullInt64
	lastUpdated sql.NullString
}

type legacyEntry struct {
	ID      json.RawMessage `json:"id"`
	Raw     *string         `json:"raw"`
	RawDisp *string         `json:"raw_disp"`
	Status  *string         `json:"status"`
	Box     json.RawMessage `json:"box"`
	Label   *string         `json:"label"`
	ReadAt  *string         `json:"read_at"`
	InBox   json.RawMessage `json:"in_box"`
}

// Available reports whether the legacy table exists.
func (r *LegacyReader) Available(ctx context.Context) (bool, error) {
	ctx = ensureContext(ctx)
	var name string
	err := r.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'jobs'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe legacy table: %w", err)
	}
	return true, nil
}

func (r *LegacyReader) readRows(ctx context.Context, filename string) ([]legacyRow, error) {
	query := "SELECT filename, work_list, box_labels, count, box_size, last_updated FROM jobs"
	var args []any
	if filename != "" {
		query += " WHERE filename = ?"
		args = append(args, filename)
	}
	rows, err := r.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query legacy jobs: %w", err)
	}
	defer rows.Close()

	var out []legacyRow
	for rows.Next() {
		var (
			row      legacyRow
			filename sql.NullString
		)
		if err := rows.Scan(&filename, &row.workList, &row.boxLabels, &row.count, &row.boxSize, &row.lastUpdated); err != nil {
			return nil, fmt.Errorf("scan legacy job: %w", err)
		}
		row.filename = strings.TrimSpace(filename.String)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListJobs returns one LEGACY header per decodable row, newest first.
// Malformed rows are left out.
func (r *LegacyReader) ListJobs(ctx context.Context, filter ListFilter) ([]Header, error) {
	if ok, err := r.Available(ctx); err != nil || !ok {
		return nil, err
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, StatusLegacy) {
		return nil, nil
	}
	rows, err := r.readRows(ctx, "")
	if err != nil {
		return nil, err
	}
	headers := make([]Header, 0, len(rows))
	for _, row := range rows {
		if row.filename == "" {
			continue
		}
		job, err := decodeLegacyRow(row, time.Now().UTC())
		if err != nil {
			continue
		}
		headers = append(headers, job.Header)
	}
	sort.SliceStable(headers, func(i, j int) bool {
		return headers[i].UpdatedAt.After(headers[j].UpdatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(headers) > limit {
		headers = headers[:limit]
	}
	return headers, nil
}

// LoadJob decodes the legacy row behind a "legacy::<filename>" id.
func (r *LegacyReader) LoadJob(ctx context.Context, id string) (*Job, error) {
	filename, ok := strings.CutPrefix(id, LegacyIDPrefix)
	if !ok || filename == "" {
		return nil, fmt.Errorf("load legacy job %s: %w", id, ErrNotFound)
	}
	if avail, err := r.Available(ctx); err != nil {
		return nil, err
	} else if !avail {
		return nil, fmt.Errorf("load legacy job %s: %w", id, ErrNotFound)
	}
	rows, err := r.readRows(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("load legacy job %s: %w", id, ErrNotFound)
	}
	return decodeLegacyRow(rows[0], time.Now().UTC())
}

func containsStatus(statuses []HeaderStatus, want HeaderStatus) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

func decodeLegacyRow(row legacyRow, fallback time.Time) (*Job, error) {
	malformed := func(reason string, err error) error {
		return &MalformedRowError{Filename: row.filename, Reason: reason, Err: err}
	}

	entries, err := decodeWorkList(row.workList.String)
	if err != nil {
		return nil, malformed("work_list", err)
	}

	items := make([]Item, 0, len(entries))
	seen := make(map[int]struct{}, len(entries))
	done := 0
	for i, entry := range entries {
		item, err := entry.toItem()
		if err != nil {
			return nil, malformed(fmt.Sprintf("work_list[%d]", i), err)
		}
		if _, dup := seen[item.DisplayID]; dup {
			return nil, malformed(fmt.Sprintf("work_list[%d]", i), fmt.Errorf("duplicate id %d", item.DisplayID))
		}
		seen[item.DisplayID] = struct{}{}
		if item.Verified() {
			done++
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].DisplayID < items[j].DisplayID })

	updated := parseLegacyEpoch(row.lastUpdated.String)
	if updated.IsZero() {
		updated = fallback
	}
	boxSize := int(row.boxSize.Int64)
	if boxSize < 0 {
		boxSize = 0
	}
	if row.count.Valid {
		done = int(row.count.Int64)
	}

	return &Job{
		Header: Header{
			ID:         LegacyIDPrefix + row.filename,
			Name:       row.filename,
			SourceFile: row.filename,
			Status:     StatusLegacy,
			CreatedAt:  updated,
			UpdatedAt:  updated,
			CurrentBox: BoxOf(done, boxSize),
			Settings: Settings{
				Legacy:      true,
				BoxSize:     boxSize,
				ItemsPerBox: boxSize,
				DoneCount:   done,
				TotalCount:  len(items),
			},
		},
		Items:     items,
		BoxLabels: decodeLegacyLabels(row.boxLabels.String),
	}, nil
}

func decodeWorkList(raw string) ([]legacyEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	schema, err := compiledWorkListSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	var entries []legacyEntry
	if strings.HasPrefix(raw, "[") {
		err = json.Unmarshal([]byte(raw), &entries)
	} else {
		var wrapped struct {
			List []legacyEntry `json:"list"`
		}
		err = json.Unmarshal([]byte(raw), &wrapped)
		entries = wrapped.List
	}
	if err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

func (e legacyEntry) toItem() (Item, error) {
	id, ok := looseInt(e.ID)
	if !ok || id <= 0 {
		return Item{}, fmt.Errorf("invalid id %s", string(e.ID))
	}
	raw := deref(e.Raw)
	item := Item{DisplayID: id, Raw: raw, Status: ItemPending}
	item.Display = deref(e.RawDisp)
	if item.Display == "" {
		item.Display = raw
	}
	if strings.EqualFold(strings.TrimSpace(deref(e.Status)), string(ItemVerified)) {
		item.Status = ItemVerified
	}
	if box, ok := looseInt(e.Box); ok && box > 0 {
		item.BoxNumber = box
	}
	if label := strings.TrimSpace(deref(e.Label)); label != "-" {
		item.BoxLabel = label
	}
	if pos, ok := looseInt(e.InBox); ok && pos > 0 {
		item.PositionInBox = pos
	}
	if readAt := parseLegacyTime(deref(e.ReadAt)); !readAt.IsZero() {
		item.ReadAt = &readAt
	}
	item.IndexKeys()
	return item, nil
}

// looseInt accepts JSON integers and numeric strings. "-" and "" are absent.
func looseInt(raw json.RawMessage) (int, bool) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, false
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	}
	if text == "" || text == "-" {
		return 0, false
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseLegacyEpoch(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs > 0 {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
	}
	return parseLegacyTime(value)
}

func parseLegacyTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := parseTimeString(value); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("02.01.2006 15:04:05", value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}

// decodeLegacyLabels accepts a JSON string array or newline separated text.
func decodeLegacyLabels(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err == nil {
		return labels
	}
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			labels = append(labels, line)
		}
	}
	return labels
}

package jobs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Fixed-width so lexical order in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const headerColumns = "job_id, job_name, source_file, box_file, status, created_at, updated_at, settings_json, current_box_no"

const itemColumns = "display_id, raw_value, display_value, status, box_no, box_label, position_in_box, read_at, manual, production_date"

type rowScanner interface{ Scan(dest ...any) error }

func scanHeader(scanner rowScanner) (*Header, error) {
	var (
		h            Header
		sourceFile   sql.NullString
		boxFile      sql.NullString
		status       string
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		settingsJSON sql.NullString
		currentBox   sql.NullInt64
	)
	if err := scanner.Scan(&h.ID, &h.Name, &sourceFile, &boxFile, &status, &createdRaw, &updatedRaw, &settingsJSON, &currentBox); err != nil {
		return nil, err
	}
	h.SourceFile = sourceFile.String
	h.BoxFile = boxFile.String
	h.Status = HeaderStatus(status)
	h.CurrentBox = 1
	if currentBox.Valid && currentBox.Int64 > 0 {
		h.CurrentBox = int(currentBox.Int64)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		h.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		h.UpdatedAt = updated
	}
	if settingsJSON.Valid && settingsJSON.String != "" {
		// A corrupt snapshot falls back to zero settings rather than hiding the job.
		_ = json.Unmarshal([]byte(settingsJSON.String), &h.Settings)
	}
	return &h, nil
}

func scanItem(scanner rowScanner) (Item, error) {
	var (
		item           Item
		display        sql.NullString
		status         string
		boxNo          sql.NullInt64
		boxLabel       sql.NullString
		position       sql.NullInt64
		readAtRaw      sql.NullString
		manual         sql.NullInt64
		productionDate sql.NullString
	)
	if err := scanner.Scan(&item.DisplayID, &item.Raw, &display, &status, &boxNo, &boxLabel, &position, &readAtRaw, &manual, &productionDate); err != nil {
		return Item{}, err
	}
	item.Display = display.String
	item.Status = ItemStatus(status)
	item.BoxNumber = int(boxNo.Int64)
	item.BoxLabel = boxLabel.String
	item.PositionInBox = int(position.Int64)
	item.Manual = manual.Int64 != 0
	item.ProductionDate = productionDate.String
	if readAtRaw.Valid {
		if readAt, err := parseTimeString(readAtRaw.String); err == nil {
			item.ReadAt = &readAt
		}
	}
	item.IndexKeys()
	return item, nil
}

func encodeSettings(s Settings) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullablePositive(value int) any {
	if value <= 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func intArgs(values []int) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

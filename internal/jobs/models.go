package jobs

import (
	"encoding/json"
	"strings"
	"time"

	"packline/internal/codes"
)

// HeaderStatus is the lifecycle state of a job header.
type HeaderStatus string

const (
	StatusActive HeaderStatus = "ACTIVE"
	StatusPaused HeaderStatus = "PAUSED"
	StatusLegacy HeaderStatus = "LEGACY"
)

// ParseHeaderStatus accepts a status name in any case.
func ParseHeaderStatus(value string) (HeaderStatus, bool) {
	switch status := HeaderStatus(strings.ToUpper(strings.TrimSpace(value))); status {
	case StatusActive, StatusPaused, StatusLegacy:
		return status, true
	}
	return "", false
}

// ItemStatus is the verification state of one expected code.
type ItemStatus string

const (
	ItemPending  ItemStatus = "PENDING"
	ItemVerified ItemStatus = "VERIFIED"
)

// LegacyIDPrefix marks job ids created from the legacy table.
const LegacyIDPrefix = "legacy::"

// Settings is the per-job snapshot of line settings taken when the job was
// created and updated as the operator changes them.
type Settings struct {
	ItemsPerBox    int    `json:"items_per_box"`
	DateRequired   bool   `json:"date_required,omitempty"`
	ProductionDate string `json:"production_date,omitempty"`
	ForceShortCode bool   `json:"force_short_code,omitempty"`
	CodeType       string `json:"code_type,omitempty"`
	WorkDir        string `json:"work_dir,omitempty"`

	Legacy     bool `json:"legacy,omitempty"`
	BoxSize    int  `json:"box_size,omitempty"`
	DoneCount  int  `json:"done_count,omitempty"`
	TotalCount int  `json:"total_count,omitempty"`
}

// UnmarshalJSON accepts snapshots that only carry the older box size keys.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	var decoded struct {
		plain
		KoliAdet int `json:"koli_adet"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*s = Settings(decoded.plain)
	if s.ItemsPerBox == 0 {
		switch {
		case s.BoxSize > 0:
			s.ItemsPerBox = s.BoxSize
		case decoded.KoliAdet > 0:
			s.ItemsPerBox = decoded.KoliAdet
		}
	}
	return nil
}

// Header is the job-level record.
type Header struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	SourceFile string       `json:"source_file"`
	BoxFile    string       `json:"box_file"`
	Status     HeaderStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Settings   Settings     `json:"settings"`
	CurrentBox int          `json:"current_box"`
}

// IsLegacy reports whether the header was migrated from the legacy table.
func (h Header) IsLegacy() bool {
	return h.Status == StatusLegacy || h.Settings.Legacy
}

// Item is one expected code inside a job. Zero BoxNumber and PositionInBox
// mean unassigned.
type Item struct {
	DisplayID      int        `json:"display_id"`
	Raw            string     `json:"raw"`
	Display        string     `json:"display"`
	Status         ItemStatus `json:"status"`
	BoxNumber      int        `json:"box_number,omitempty"`
	BoxLabel       string     `json:"box_label,omitempty"`
	PositionInBox  int        `json:"position_in_box,omitempty"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	Manual         bool       `json:"manual,omitempty"`
	ProductionDate string     `json:"production_date,omitempty"`

	SearchPrimary   string `json:"-"`
	SearchAlternate string `json:"-"`
}

// NewItem builds a pending item with its search keys populated.
func NewItem(displayID int, raw string) Item {
	item := Item{DisplayID: displayID, Raw: raw, Status: ItemPending}
	item.Display = codes.DisplayValue(raw)
	item.IndexKeys()
	return item
}

// IndexKeys recomputes the search keys from Raw.
func (i *Item) IndexKeys() {
	res := codes.Classify(i.Raw)
	i.SearchPrimary = res.KeepSeparator
	i.SearchAlternate = res.NoSeparator
	if i.Display == "" {
		i.Display = codes.DisplayValue(i.Raw)
	}
}

// Verified reports whether the item has been scanned or manually confirmed.
func (i Item) Verified() bool {
	return i.Status == ItemVerified
}

// ResetToPending clears every verification field.
func (i *Item) ResetToPending() {
	i.Status = ItemPending
	i.BoxNumber = 0
	i.BoxLabel = ""
	i.PositionInBox = 0
	i.ReadAt = nil
	i.Manual = false
	i.ProductionDate = ""
}

// Job is a header with its items ordered by display id and the box label
// list, where BoxLabels[k-1] labels box k.
type Job struct {
	Header
	Items     []Item   `json:"items"`
	BoxLabels []string `json:"box_labels,omitempty"`
}

// VerifiedCount returns the number of verified items.
func (j *Job) VerifiedCount() int {
	n := 0
	for _, item := range j.Items {
		if item.Verified() {
			n++
		}
	}
	return n
}

// NewJob describes a job to create. Items and BoxLabels are optional and are
// written in the same transaction as the header. A zero CurrentBox starts at
// box 1.
type NewJob struct {
	Name       string
	SourceFile string
	BoxFile    string
	Settings   Settings
	CurrentBox int
	Items      []Item
	BoxLabels  []string
}

// BoxOf returns the box that holds the n-th verified item, never below 1.
func BoxOf(n, perBox int) int {
	if perBox <= 0 || n <= 0 {
		return 1
	}
	return (n + perBox - 1) / perBox
}

// ListFilter narrows ListJobs. Zero Limit means the default page size.
type ListFilter struct {
	Statuses []HeaderStatus
	Limit    int
}

const defaultListLimit = 200

// HeaderUpdate names the header fields to change. Nil fields are left as is.
type HeaderUpdate struct {
	Name       *string
	BoxFile    *string
	Settings   *Settings
	CurrentBox *int
}

func (u HeaderUpdate) empty() bool {
	return u.Name == nil && u.BoxFile == nil && u.Settings == nil && u.CurrentBox == nil
}

package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobSettings mirrors the per-job settings snapshot.
type JobSettings struct {
	ItemsPerBox    int    `json:"itemsPerBox"`
	DateRequired   bool   `json:"dateRequired"`
	ProductionDate string `json:"productionDate,omitempty"`
	ForceShortCode bool   `json:"forceShortCode"`
	CodeType       string `json:"codeType,omitempty"`
	WorkDir        string `json:"workDir,omitempty"`
	Legacy         bool   `json:"legacy,omitempty"`
	DoneCount      int    `json:"doneCount,omitempty"`
	TotalCount     int    `json:"totalCount,omitempty"`
}

// JobHeader describes a stored job.
type JobHeader struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	SourceFile string      `json:"sourceFile"`
	BoxFile    string      `json:"boxFile,omitempty"`
	Status     string      `json:"status"`
	CreatedAt  string      `json:"createdAt,omitempty"`
	UpdatedAt  string      `json:"updatedAt,omitempty"`
	CurrentBox int         `json:"currentBox"`
	Settings   JobSettings `json:"settings"`
}

// Item describes one expected code of a job.
type Item struct {
	DisplayID      int    `json:"displayId"`
	Raw            string `json:"raw"`
	Display        string `json:"display"`
	Status         string `json:"status"`
	BoxNumber      int    `json:"boxNumber,omitempty"`
	BoxLabel       string `json:"boxLabel,omitempty"`
	PositionInBox  int    `json:"positionInBox,omitempty"`
	ReadAt         string `json:"readAt,omitempty"`
	Manual         bool   `json:"manual,omitempty"`
	ProductionDate string `json:"productionDate,omitempty"`
}

// Job is a header with its items and box labels.
type Job struct {
	Header    JobHeader `json:"header"`
	Items     []Item    `json:"items"`
	BoxLabels []string  `json:"boxLabels,omitempty"`
	Verified  int       `json:"verified"`
	Total     int       `json:"total"`
}

// CodeInfo is the classification of a scanned code.
type CodeInfo struct {
	Type          string            `json:"type"`
	KeepSeparator string            `json:"keepSeparator"`
	NoSeparator   string            `json:"noSeparator"`
	Display       string            `json:"display"`
	AIs           map[string]string `json:"ais,omitempty"`
}

// BoxPrint is a box label print triggered by a full box.
type BoxPrint struct {
	BoxNumber int    `json:"boxNumber"`
	Label     string `json:"label"`
}

// ScanResult is the verdict of one scan.
type ScanResult struct {
	Outcome      string    `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	Match        string    `json:"match"`
	Code         CodeInfo  `json:"code"`
	Item         *Item     `json:"item,omitempty"`
	BoxPrint     *BoxPrint `json:"boxPrint,omitempty"`
	Rejected     bool      `json:"rejected"`
	PersistError string    `json:"persistError,omitempty"`
}

// Options are the matching options of the active job.
type Options struct {
	ItemsPerBox    int    `json:"itemsPerBox"`
	DateRequired   bool   `json:"dateRequired"`
	ProductionDate string `json:"productionDate,omitempty"`
	ForceShortCode bool   `json:"forceShortCode"`
}

// PrinterStatus mirrors one printer's last known state.
type PrinterStatus struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Reachable bool   `json:"reachable"`
	LastError string `json:"lastError,omitempty"`
	CheckedAt string `json:"checkedAt,omitempty"`
}

// RejectStatus mirrors the reject actuator state.
type RejectStatus struct {
	Enabled   bool   `json:"enabled"`
	Port      string `json:"port"`
	Present   bool   `json:"present"`
	LastError string `json:"lastError,omitempty"`
	LastPulse string `json:"lastPulse,omitempty"`
}

// DeviceStatus aggregates the device status cache.
type DeviceStatus struct {
	Scanner        string          `json:"scanner"`
	ScannerAddress string          `json:"scannerAddress,omitempty"`
	Printers       []PrinterStatus `json:"printers"`
	Reject         RejectStatus    `json:"reject"`
}

// StationStatus summarizes the active job and the devices.
type StationStatus struct {
	JobID     string       `json:"jobId,omitempty"`
	JobName   string       `json:"jobName,omitempty"`
	Verified  int          `json:"verified"`
	Total     int          `json:"total"`
	Remaining int          `json:"remaining"`
	NextBox   int          `json:"nextBox,omitempty"`
	NextLabel string       `json:"nextLabel,omitempty"`
	Options   Options      `json:"options"`
	Devices   DeviceStatus `json:"devices"`
}

// LogEntry is one line of the scan report.
type LogEntry struct {
	At        string `json:"at"`
	Kind      string `json:"kind"`
	Code      string `json:"code"`
	DisplayID int    `json:"displayId,omitempty"`
	Box       int    `json:"box,omitempty"`
	Message   string `json:"message,omitempty"`
}

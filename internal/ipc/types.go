package ipc

import "packline/internal/api"

// JobHeader mirrors the API job header DTO.
type JobHeader = api.JobHeader

// Job mirrors the API job DTO.
type Job = api.Job

// ScanResult mirrors the API scan verdict DTO.
type ScanResult = api.ScanResult

// StationStatus mirrors the API station summary DTO.
type StationStatus = api.StationStatus

// LogEntry mirrors the API scan report line.
type LogEntry = api.LogEntry

// Options mirrors the API matching options DTO.
type Options = api.Options

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse combines daemon runtime and station information.
type StatusResponse struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	DatabasePath string        `json:"databasePath"`
	LockPath     string        `json:"lockPath"`
	SocketPath   string        `json:"socketPath"`
	LogPath      string        `json:"logPath"`
	Station      StationStatus `json:"station"`
}

// JobListRequest filters stored jobs by status.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
	Limit    int      `json:"limit"`
}

// JobListResponse contains job headers, newest first.
type JobListResponse struct {
	Jobs []JobHeader `json:"jobs"`
}

// JobShowRequest fetches one job. An empty ID means the active job.
type JobShowRequest struct {
	ID string `json:"id"`
}

// JobShowResponse contains the job with its items.
type JobShowResponse struct {
	Job Job `json:"job"`
}

// JobLoadRequest loads a product list as the new active job.
type JobLoadRequest struct {
	Path           string  `json:"path"`
	Name           string  `json:"name,omitempty"`
	BoxFile        string  `json:"boxFile,omitempty"`
	ItemsPerBox    *int    `json:"itemsPerBox,omitempty"`
	DateRequired   *bool   `json:"dateRequired,omitempty"`
	ProductionDate *string `json:"productionDate,omitempty"`
	ForceShortCode *bool   `json:"forceShortCode,omitempty"`
}

// JobResponse returns the active job header after a change.
type JobResponse struct {
	Job      JobHeader `json:"job"`
	Verified int       `json:"verified"`
	Total    int       `json:"total"`
}

// JobActivateRequest continues a stored job.
type JobActivateRequest struct {
	ID string `json:"id"`
}

// JobCopyRequest copies a stored job.
type JobCopyRequest struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// JobCopyResponse returns the id of the copy.
type JobCopyResponse struct {
	ID string `json:"id"`
}

// JobDeleteRequest removes a stored job.
type JobDeleteRequest struct {
	ID string `json:"id"`
}

// JobDeleteResponse reports the removal.
type JobDeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// BoxLabelsRequest assigns a box label list to the active job.
type BoxLabelsRequest struct {
	Path string `json:"path"`
}

// BoxLabelsResponse reports the number of labels loaded.
type BoxLabelsResponse struct {
	Labels int `json:"labels"`
}

// ScanRequest submits a code as if it came from the scanner.
type ScanRequest struct {
	Code string `json:"code"`
}

// VerifyRequest verifies an item by display id without a scan.
type VerifyRequest struct {
	DisplayID int `json:"displayId"`
}

// ScanResponse carries a scan verdict.
type ScanResponse struct {
	Result ScanResult `json:"result"`
}

// ResetRequest returns verified items to pending.
type ResetRequest struct {
	IDs []int `json:"ids"`
	All bool  `json:"all"`
}

// DeleteItemsRequest removes rows from the active job.
type DeleteItemsRequest struct {
	IDs []int `json:"ids"`
}

// CountResponse reports how many rows an operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// UpdateSettingsRequest changes matching options. Nil fields are kept.
type UpdateSettingsRequest struct {
	ItemsPerBox    *int    `json:"itemsPerBox,omitempty"`
	DateRequired   *bool   `json:"dateRequired,omitempty"`
	ProductionDate *string `json:"productionDate,omitempty"`
	ForceShortCode *bool   `json:"forceShortCode,omitempty"`
}

// UpdateSettingsResponse returns the resulting options.
type UpdateSettingsResponse struct {
	Options Options `json:"options"`
}

// ScanLogRequest fetches the newest scan report lines.
type ScanLogRequest struct {
	Limit int `json:"limit"`
}

// ScanLogResponse contains scan report lines, oldest first.
type ScanLogResponse struct {
	Entries []LogEntry `json:"entries"`
}

// ExportRequest writes exports of the active job.
type ExportRequest struct {
	Kind string `json:"kind"`
}

// ExportResponse lists the written files.
type ExportResponse struct {
	Files []string `json:"files"`
}

// PrintRequest prints an item label on a target printer.
type PrintRequest struct {
	DisplayID int    `json:"displayId"`
	Target    string `json:"target"`
}

// PrintResponse reports the print.
type PrintResponse struct {
	Printed bool `json:"printed"`
}

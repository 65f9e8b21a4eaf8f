package api

import (
	"time"

	"packline/internal/codes"
	"packline/internal/devices"
	"packline/internal/jobs"
	"packline/internal/station"
	"packline/internal/verify"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromHeader converts a stored job header.
func FromHeader(h jobs.Header) JobHeader {
	return JobHeader{
		ID:         h.ID,
		Name:       h.Name,
		SourceFile: h.SourceFile,
		BoxFile:    h.BoxFile,
		Status:     string(h.Status),
		CreatedAt:  formatTime(h.CreatedAt),
		UpdatedAt:  formatTime(h.UpdatedAt),
		CurrentBox: h.CurrentBox,
		Settings: JobSettings{
			ItemsPerBox:    h.Settings.ItemsPerBox,
			DateRequired:   h.Settings.DateRequired,
			ProductionDate: h.Settings.ProductionDate,
			ForceShortCode: h.Settings.ForceShortCode,
			CodeType:       h.Settings.CodeType,
			WorkDir:        h.Settings.WorkDir,
			Legacy:         h.Settings.Legacy,
			DoneCount:      h.Settings.DoneCount,
			TotalCount:     h.Settings.TotalCount,
		},
	}
}

// FromHeaders converts a slice of headers.
func FromHeaders(headers []jobs.Header) []JobHeader {
	out := make([]JobHeader, 0, len(headers))
	for _, h := range headers {
		out = append(out, FromHeader(h))
	}
	return out
}

// FromItem converts a job item.
func FromItem(item jobs.Item) Item {
	dto := Item{
		DisplayID:      item.DisplayID,
		Raw:            item.Raw,
		Display:        codes.DisplayValue(item.Display),
		Status:         string(item.Status),
		BoxNumber:      item.BoxNumber,
		BoxLabel:       item.BoxLabel,
		PositionInBox:  item.PositionInBox,
		Manual:         item.Manual,
		ProductionDate: item.ProductionDate,
	}
	if item.ReadAt != nil {
		dto.ReadAt = formatTime(*item.ReadAt)
	}
	return dto
}

// FromJob converts a job with its items.
func FromJob(job *jobs.Job) Job {
	if job == nil {
		return Job{}
	}
	dto := Job{
		Header:    FromHeader(job.Header),
		Items:     make([]Item, 0, len(job.Items)),
		BoxLabels: job.BoxLabels,
		Verified:  job.VerifiedCount(),
		Total:     len(job.Items),
	}
	for _, item := range job.Items {
		dto.Items = append(dto.Items, FromItem(item))
	}
	return dto
}

// FromSnapshot converts the in-memory state of the active job.
func FromSnapshot(snap verify.Snapshot) Job {
	job := FromJob(&jobs.Job{Header: snap.Header, Items: snap.Items, BoxLabels: snap.BoxLabels})
	job.Verified = snap.Verified
	return job
}

// FromCode converts a classified code.
func FromCode(info codes.Result) CodeInfo {
	dto := CodeInfo{
		Type:          string(info.Type),
		KeepSeparator: codes.DisplayValue(info.KeepSeparator),
		NoSeparator:   info.NoSeparator,
		Display:       codes.DisplayValue(info.KeepSeparator),
	}
	if ais := codes.ParseApplicationIdentifiers(info.KeepSeparator); len(ais) > 0 {
		dto.AIs = ais
	}
	return dto
}

// FromResult converts a scan verdict.
func FromResult(res verify.Result) ScanResult {
	dto := ScanResult{
		Outcome:  string(res.Outcome),
		Reason:   string(res.Reason),
		Match:    codes.DisplayValue(res.Match),
		Code:     FromCode(res.Code),
		Rejected: res.ShouldReject(),
	}
	if res.Item != nil {
		item := FromItem(*res.Item)
		dto.Item = &item
	}
	if res.BoxPrint != nil {
		dto.BoxPrint = &BoxPrint{BoxNumber: res.BoxPrint.BoxNumber, Label: res.BoxPrint.Label}
	}
	if res.PersistErr != nil {
		dto.PersistError = res.PersistErr.Error()
	}
	return dto
}

// FromOptions converts matching options.
func FromOptions(opts verify.Options) Options {
	return Options{
		ItemsPerBox:    opts.ItemsPerBox,
		DateRequired:   opts.DateRequired,
		ProductionDate: opts.ProductionDate,
		ForceShortCode: opts.ForceShortCode,
	}
}

// FromDevices converts the device status cache contents.
func FromDevices(st devices.Status) DeviceStatus {
	dto := DeviceStatus{
		Scanner:        string(st.Scanner),
		ScannerAddress: st.ScannerAddress,
		Printers:       make([]PrinterStatus, 0, len(st.Printers)),
		Reject: RejectStatus{
			Enabled:   st.Reject.Enabled,
			Port:      st.Reject.Port,
			Present:   st.Reject.Present,
			LastError: st.Reject.LastError,
			LastPulse: formatTime(st.Reject.LastPulse),
		},
	}
	for _, p := range st.Printers {
		dto.Printers = append(dto.Printers, PrinterStatus{
			Name:      p.Name,
			Address:   p.Address,
			Reachable: p.Reachable,
			LastError: p.LastError,
			CheckedAt: formatTime(p.CheckedAt),
		})
	}
	return dto
}

// FromStationStatus converts the station summary.
func FromStationStatus(st station.Status) StationStatus {
	return StationStatus{
		JobID:     st.JobID,
		JobName:   st.JobName,
		Verified:  st.Verified,
		Total:     st.Total,
		Remaining: st.Total - st.Verified,
		NextBox:   st.NextBox,
		NextLabel: st.NextLabel,
		Options:   FromOptions(st.Options),
		Devices:   FromDevices(st.Devices),
	}
}

// FromLogEntries converts scan report lines.
func FromLogEntries(entries []verify.LogEntry) []LogEntry {
	out := make([]LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntry{
			At:        formatTime(e.At),
			Kind:      string(e.Kind),
			Code:      codes.DisplayValue(e.Code),
			DisplayID: e.DisplayID,
			Box:       e.Box,
			Message:   e.Message,
		})
	}
	return out
}

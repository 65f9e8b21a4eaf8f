package station

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"packline/internal/config"
	"packline/internal/jobs"
	"packline/internal/logging"
	"packline/internal/productlist"
	"packline/internal/report"
	"packline/internal/verify"
)

const jobNameStampLayout = "20060102_150405"

var _ jobs.Reader = (*Station)(nil)

// LoadRequest describes a product list to load as the new active job. Nil
// settings fall back to the line configuration.
type LoadRequest struct {
	Path           string  `json:"path"`
	Name           string  `json:"name,omitempty"`
	BoxFile        string  `json:"box_file,omitempty"`
	ItemsPerBox    *int    `json:"items_per_box,omitempty"`
	DateRequired   *bool   `json:"date_required,omitempty"`
	ProductionDate *string `json:"production_date,omitempty"`
	ForceShortCode *bool   `json:"force_short_code,omitempty"`
}

func (r LoadRequest) settings(line config.Line) jobs.Settings {
	s := jobs.Settings{
		ItemsPerBox:    line.ItemsPerBox,
		DateRequired:   line.DateRequired,
		ProductionDate: line.ProductionDate,
		ForceShortCode: line.ForceShortCode,
	}
	if r.ItemsPerBox != nil {
		s.ItemsPerBox = *r.ItemsPerBox
	}
	if r.DateRequired != nil {
		s.DateRequired = *r.DateRequired
	}
	if r.ProductionDate != nil {
		s.ProductionDate = *r.ProductionDate
	}
	if r.ForceShortCode != nil {
		s.ForceShortCode = *r.ForceShortCode
	}
	return s
}

// LoadProductList reads a product list, backs up the current job and makes
// the list the new active job. On any failure the current job stays loaded.
func (s *Station) LoadProductList(ctx context.Context, req LoadRequest) (verify.Snapshot, error) {
	var snap verify.Snapshot
	err := s.call(ctx, func(runCtx context.Context) error {
		settings := req.settings(s.cfg.Line)
		if settings.ItemsPerBox < 0 {
			return fmt.Errorf("items per box must be >= 0, got %d", settings.ItemsPerBox)
		}
		if settings.ProductionDate != "" && !config.ValidProductionDate(settings.ProductionDate) {
			return fmt.Errorf("production date %q must use DD.MM.YYYY", settings.ProductionDate)
		}

		list, err := productlist.Read(req.Path)
		if err != nil {
			return err
		}
		var boxLabels []string
		if req.BoxFile != "" {
			labels, err := productlist.Read(req.BoxFile)
			if err != nil && !errors.Is(err, productlist.ErrNoRecords) {
				return err
			}
			if labels != nil {
				boxLabels = labels.Records
			}
		}

		boxFile := req.BoxFile
		if s.engine != nil {
			prev := s.engine.Snapshot()
			if req.BoxFile == "" {
				boxLabels = prev.BoxLabels
				boxFile = prev.Header.BoxFile
			}
			s.backup(&jobs.Job{Header: prev.Header, Items: prev.Items, BoxLabels: prev.BoxLabels})
		}

		settings.CodeType = string(list.CodeType)
		settings.WorkDir = filepath.Dir(req.Path)
		items := make([]jobs.Item, 0, len(list.Records))
		for i, raw := range list.Records {
			items = append(items, jobs.NewItem(i+1, raw))
		}
		name := req.Name
		if name == "" {
			name = fmt.Sprintf("%s (%s)", filepath.Base(req.Path), s.now().Format(jobNameStampLayout))
		}

		id, err := s.store.CreateJob(runCtx, jobs.NewJob{
			Name:       name,
			SourceFile: req.Path,
			BoxFile:    boxFile,
			Settings:   settings,
			Items:      items,
			BoxLabels:  boxLabels,
		})
		if err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		if _, err := s.activate(runCtx, id); err != nil {
			return err
		}
		s.logger.Info("product list loaded",
			logging.String(logging.FieldEventType, "job_loaded"),
			logging.String(logging.FieldJobID, id),
			logging.String("file", req.Path),
			logging.String("encoding", list.Encoding),
			logging.String("code_type", settings.CodeType),
			logging.Int("items", len(items)),
			logging.Int("box_labels", len(boxLabels)),
		)
		snap = s.engine.Snapshot()
		return nil
	})
	return snap, err
}

// backup writes the detail and remaining backups of job. Failures are
// logged and do not block the load.
func (s *Station) backup(job *jobs.Job) {
	paths, err := report.NewWriter(s.cfg.Paths.BackupDir, s.logger).Backup(job)
	if err != nil {
		logging.WarnWithContext(s.logger, "job backup failed", "job_backup_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the backup directory is writable"),
			logging.String(logging.FieldImpact, "previous job has no CSV backup; it is still in the database"),
		)
		return
	}
	if len(paths) > 0 {
		s.logger.Info("previous job backed up",
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("files", len(paths)),
		)
	}
}

// activate promotes id in the store and swaps in its engine. The current
// engine is kept when anything fails. Run goroutine only.
func (s *Station) activate(ctx context.Context, id string) (*jobs.Job, error) {
	job, err := s.store.LoadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetActive(ctx, id); err != nil {
		return nil, err
	}
	job.Status = jobs.StatusActive
	s.install(job)
	return job, nil
}

// Activate continues a stored job.
func (s *Station) Activate(ctx context.Context, id string) (verify.Snapshot, error) {
	var snap verify.Snapshot
	err := s.call(ctx, func(runCtx context.Context) error {
		if _, err := s.activate(runCtx, id); err != nil {
			return err
		}
		snap = s.engine.Snapshot()
		s.logger.Info("job activated",
			logging.String(logging.FieldEventType, "job_activated"),
			logging.String(logging.FieldJobID, id),
			logging.Int("verified", snap.Verified),
			logging.Int("total", snap.Total),
		)
		return nil
	})
	return snap, err
}

// Copy stores a pending copy of id and returns the new id. An empty name
// derives one from the source.
func (s *Station) Copy(ctx context.Context, id, name string) (string, error) {
	var newID string
	err := s.call(ctx, func(runCtx context.Context) error {
		var err error
		newID, err = s.store.CopyJob(runCtx, id, name)
		return err
	})
	return newID, err
}

// Delete removes a stored job. Deleting the active job unloads it.
func (s *Station) Delete(ctx context.Context, id string) error {
	return s.call(ctx, func(runCtx context.Context) error {
		if err := s.store.DeleteJob(runCtx, id); err != nil {
			return err
		}
		if s.engine != nil && s.engine.JobID() == id {
			s.engine = nil
		}
		s.logger.Info("job deleted",
			logging.String(logging.FieldEventType, "job_deleted"),
			logging.String(logging.FieldJobID, id),
		)
		return nil
	})
}

// ListJobs returns stored job headers.
func (s *Station) ListJobs(ctx context.Context, filter jobs.ListFilter) ([]jobs.Header, error) {
	return s.store.ListJobs(ctx, filter)
}

// LoadJob returns a stored job. The active job is served from memory so
// the working order is preserved.
func (s *Station) LoadJob(ctx context.Context, id string) (*jobs.Job, error) {
	var job *jobs.Job
	err := s.call(ctx, func(runCtx context.Context) error {
		if s.engine != nil && s.engine.JobID() == id {
			snap := s.engine.Snapshot()
			job = &jobs.Job{Header: snap.Header, Items: snap.Items, BoxLabels: snap.BoxLabels}
			return nil
		}
		var err error
		job, err = s.store.LoadJob(runCtx, id)
		return err
	})
	return job, err
}

// Snapshot returns the active job state.
func (s *Station) Snapshot(ctx context.Context) (verify.Snapshot, error) {
	var snap verify.Snapshot
	err := s.withEngine(ctx, func(_ context.Context, e *verify.Engine) error {
		snap = e.Snapshot()
		return nil
	})
	return snap, err
}

// withEngine runs fn against the active engine on the Run goroutine.
func (s *Station) withEngine(ctx context.Context, fn func(ctx context.Context, e *verify.Engine) error) error {
	return s.call(ctx, func(runCtx context.Context) error {
		if s.engine == nil {
			return ErrNoActiveJob
		}
		return fn(runCtx, s.engine)
	})
}

// ManualVerify marks displayID verified without a scan.
func (s *Station) ManualVerify(ctx context.Context, displayID int) (verify.Result, error) {
	var res verify.Result
	err := s.withEngine(ctx, func(runCtx context.Context, e *verify.Engine) error {
		var err error
		res, err = e.ManualVerify(runCtx, displayID)
		if err != nil {
			return err
		}
		s.dispatcher.Handle(res)
		s.announceCompletion(res)
		s.logger.Info("item verified manually",
			logging.String(logging.FieldEventType, "manual_verify"),
			logging.Int(logging.FieldDisplayID, displayID),
		)
		return nil
	})
	return res, err
}

// Reset returns verified items to pending. all resets the whole job.
func (s *Station) Reset(ctx context.Context, ids []int, all bool) (int, error) {
	var n int
	err := s.withEngine(ctx, func(runCtx context.Context, e *verify.Engine) error {
		var err error
		n, err = e.Reset(runCtx, ids, all)
		return err
	})
	return n, err
}

// DeleteItems removes rows from the active job.
func (s *Station) DeleteItems(ctx context.Context, ids []int) (int, error) {
	var n int
	err := s.withEngine(ctx, func(runCtx context.Context, e *verify.Engine) error {
		var err error
		n, err = e.DeleteItems(runCtx, ids)
		return err
	})
	return n, err
}

// SettingsUpdate changes matching options of the active job. Nil fields are
// kept.
type SettingsUpdate struct {
	ItemsPerBox    *int    `json:"items_per_box,omitempty"`
	DateRequired   *bool   `json:"date_required,omitempty"`
	ProductionDate *string `json:"production_date,omitempty"`
	ForceShortCode *bool   `json:"force_short_code,omitempty"`
}

// UpdateSettings applies update and returns the resulting options.
func (s *Station) UpdateSettings(ctx context.Context, update SettingsUpdate) (verify.Options, error) {
	var opts verify.Options
	err := s.withEngine(ctx, func(runCtx context.Context, e *verify.Engine) error {
		opts = e.Options()
		if update.ItemsPerBox != nil {
			opts.ItemsPerBox = *update.ItemsPerBox
		}
		if update.DateRequired != nil {
			opts.DateRequired = *update.DateRequired
		}
		if update.ProductionDate != nil {
			opts.ProductionDate = *update.ProductionDate
		}
		if update.ForceShortCode != nil {
			opts.ForceShortCode = *update.ForceShortCode
		}
		if err := e.SetOptions(runCtx, opts); err != nil {
			return err
		}
		s.logger.Info("settings updated",
			logging.String(logging.FieldEventType, "settings_updated"),
			logging.Int("items_per_box", opts.ItemsPerBox),
			logging.Bool("date_required", opts.DateRequired),
			logging.String("production_date", opts.ProductionDate),
			logging.Bool("force_short_code", opts.ForceShortCode),
		)
		return nil
	})
	return opts, err
}

// LoadBoxLabels reads a box label list and assigns it to the active job.
// Labels of already verified items are kept.
func (s *Station) LoadBoxLabels(ctx context.Context, path string) (int, error) {
	list, err := productlist.Read(path)
	if err != nil {
		return 0, err
	}
	labels := slices.Clone(list.Records)
	err = s.withEngine(ctx, func(runCtx context.Context, e *verify.Engine) error {
		return e.SetBoxLabels(runCtx, labels, path)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("box labels loaded",
		logging.String(logging.FieldEventType, "box_labels_loaded"),
		logging.String("file", path),
		logging.Int("labels", len(labels)),
	)
	return len(labels), nil
}

// Export writes the active job exports of kind and returns the file paths.
func (s *Station) Export(ctx context.Context, kind report.Kind) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	job := &jobs.Job{Header: snap.Header, Items: snap.Items, BoxLabels: snap.BoxLabels}
	return report.NewWriter(s.cfg.Paths.ExportDir, s.logger).Export(job, kind)
}

// Print sends the label of displayID to target and waits for the printer.
func (s *Station) Print(ctx context.Context, displayID int, target string) error {
	var code string
	err := s.withEngine(ctx, func(_ context.Context, e *verify.Engine) error {
		for _, item := range e.Snapshot().Items {
			if item.DisplayID == displayID {
				code = item.Raw
				return nil
			}
		}
		return fmt.Errorf("print %d: %w", displayID, verify.ErrUnknownItem)
	})
	if err != nil {
		return err
	}
	return s.dispatcher.PrintNow(ctx, target, code)
}

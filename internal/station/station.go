// Package station owns the active job of the packing line. A single
// goroutine started by Run executes every scan and every administrative
// change in arrival order; callers hand it closures and wait for the reply.
package station

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"packline/internal/config"
	"packline/internal/devices"
	"packline/internal/jobs"
	"packline/internal/logging"
	"packline/internal/verify"
)

var (
	// ErrNoActiveJob reports an operation that needs a loaded job.
	ErrNoActiveJob = errors.New("no active job")
	// ErrStopped reports a call made after Run returned.
	ErrStopped = errors.New("station stopped")
)

const commandBuffer = 256

// Station serializes all access to the verification engine.
type Station struct {
	cfg        *config.Config
	store      *jobs.Store
	dispatcher *Dispatcher
	status     *devices.StatusCache
	logger     *slog.Logger
	now        func() time.Time

	scanLog *verify.ScanLog
	cmds    chan func(ctx context.Context)
	done    chan struct{}

	// Owned by the Run goroutine.
	engine *verify.Engine
}

// New builds a station. Run must be started before any other method is
// called.
func New(cfg *config.Config, store *jobs.Store, dispatcher *Dispatcher, status *devices.StatusCache, logger *slog.Logger) *Station {
	if status == nil {
		status = devices.NewStatusCache()
	}
	if dispatcher == nil {
		dispatcher = NewDispatcher(cfg, nil, nil, status, logger)
	}
	return &Station{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		status:     status,
		logger:     logging.NewComponentLogger(logger, "station"),
		now:        time.Now,
		scanLog:    verify.NewScanLog(),
		cmds:       make(chan func(ctx context.Context), commandBuffer),
		done:       make(chan struct{}),
	}
}

// Run executes queued commands until ctx is cancelled.
func (s *Station) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			cmd(ctx)
		}
	}
}

// Done is closed once Run has returned.
func (s *Station) Done() <-chan struct{} { return s.done }

// call runs fn on the Run goroutine and waits for it.
func (s *Station) call(ctx context.Context, fn func(ctx context.Context) error) error {
	reply := make(chan error, 1)
	cmd := func(runCtx context.Context) {
		reply <- fn(runCtx)
	}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	}
}

// Submit queues a scan from the scanner feed without waiting for it.
func (s *Station) Submit(raw string) {
	select {
	case s.cmds <- func(ctx context.Context) { s.processScan(ctx, raw) }:
	case <-s.done:
	}
}

// Scan processes raw and returns the verdict.
func (s *Station) Scan(ctx context.Context, raw string) (verify.Result, error) {
	var res verify.Result
	err := s.call(ctx, func(runCtx context.Context) error {
		if s.engine == nil {
			return ErrNoActiveJob
		}
		res = s.processScan(runCtx, raw)
		return nil
	})
	return res, err
}

func (s *Station) processScan(ctx context.Context, raw string) verify.Result {
	if s.engine == nil {
		s.scanLog.Append(verify.LogEntry{At: s.now(), Kind: verify.KindMiss, Code: raw, Message: "no active job"})
		res := verify.Result{Outcome: verify.OutcomeNotFound, Match: raw}
		s.dispatcher.Handle(res)
		return res
	}
	res := s.engine.ProcessScan(ctx, raw)
	s.dispatcher.Handle(res)
	s.announceCompletion(res)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "scan_"+string(res.Outcome)),
		logging.String("code", res.Match),
	}
	if res.Item != nil {
		attrs = append(attrs,
			logging.Int(logging.FieldDisplayID, res.Item.DisplayID),
			logging.Int("box", res.Item.BoxNumber),
		)
	}
	if res.Reason != verify.ReasonNone {
		attrs = append(attrs, logging.String("reason", string(res.Reason)))
	}
	switch res.Outcome {
	case verify.OutcomeVerified:
		s.logger.Debug("scan verified", logging.Args(attrs...)...)
	default:
		s.logger.Info("scan not verified", logging.Args(attrs...)...)
	}
	return res
}

// announceCompletion fires once, on the verification that clears the last
// pending item. Run goroutine only.
func (s *Station) announceCompletion(res verify.Result) {
	if res.Outcome != verify.OutcomeVerified || s.engine == nil || s.engine.Remaining() != 0 {
		return
	}
	s.dispatcher.JobCompleted(s.engine.JobName(), s.engine.Total())
}

// Resume loads the job marked ACTIVE in the store, if any.
func (s *Station) Resume(ctx context.Context) error {
	return s.call(ctx, func(runCtx context.Context) error {
		header, err := s.store.ActiveJob(runCtx)
		if errors.Is(err, jobs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		job, err := s.store.LoadJob(runCtx, header.ID)
		if err != nil {
			return err
		}
		s.install(job)
		s.logger.Info("active job resumed",
			logging.String(logging.FieldEventType, "job_resumed"),
			logging.String(logging.FieldJobID, job.ID),
			logging.Int("verified", job.VerifiedCount()),
			logging.Int("total", len(job.Items)),
		)
		return nil
	})
}

// install swaps in a fresh engine for job. Run goroutine only.
func (s *Station) install(job *jobs.Job) {
	s.engine = verify.New(job, s.store, s.logger, verify.WithScanLog(s.scanLog))
}

// ScanLog returns up to n of the newest scan log entries.
func (s *Station) ScanLog(n int) []verify.LogEntry {
	return s.scanLog.Tail(n)
}

// Devices returns the device status cache.
func (s *Station) Devices() *devices.StatusCache { return s.status }

// Dispatcher returns the print and reject dispatcher.
func (s *Station) Dispatcher() *Dispatcher { return s.dispatcher }

// Status summarizes the line for status displays.
type Status struct {
	JobID     string         `json:"job_id,omitempty"`
	JobName   string         `json:"job_name,omitempty"`
	Verified  int            `json:"verified"`
	Total     int            `json:"total"`
	NextBox   int            `json:"next_box,omitempty"`
	NextLabel string         `json:"next_label,omitempty"`
	Options   verify.Options `json:"options"`
	Devices   devices.Status `json:"devices"`
}

// Status reports the active job counters and the device state. With no
// active job only the device state is filled in.
func (s *Station) Status(ctx context.Context) (Status, error) {
	st := Status{Devices: s.status.Snapshot()}
	snap, err := s.Snapshot(ctx)
	if errors.Is(err, ErrNoActiveJob) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.JobID = snap.Header.ID
	st.JobName = snap.Header.Name
	st.Verified = snap.Verified
	st.Total = snap.Total
	st.NextBox = snap.NextBox
	st.NextLabel = snap.NextLabel
	st.Options = snap.Options
	return st, nil
}

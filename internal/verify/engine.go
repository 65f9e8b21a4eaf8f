package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"packline/internal/codes"
	"packline/internal/config"
	"packline/internal/jobs"
	"packline/internal/logging"
)

// minReadableLength is the shortest canonical code accepted as a read.
const minReadableLength = 5

var (
	// ErrUnknownItem reports a display id that is not in the working set.
	ErrUnknownItem = errors.New("item not in job")
	// ErrAlreadyVerified reports a manual verify of a verified item.
	ErrAlreadyVerified = errors.New("item already verified")
)

// Persister is the write side of the job store used by the engine.
type Persister interface {
	ReplaceItems(ctx context.Context, id string, items []jobs.Item) error
	UpdateHeader(ctx context.Context, id string, update jobs.HeaderUpdate) error
	ResetItemsToPending(ctx context.Context, id string, ids []int) (int64, error)
	DeleteItems(ctx context.Context, id string, ids []int) (int64, error)
	SetBoxLabels(ctx context.Context, id string, labels []string) error
}

var _ Persister = (*jobs.Store)(nil)

// Options are the operator-controlled matching settings.
type Options struct {
	ItemsPerBox    int    `json:"items_per_box"`
	DateRequired   bool   `json:"date_required"`
	ProductionDate string `json:"production_date"`
	ForceShortCode bool   `json:"force_short_code"`
}

// OptionsFromSettings extracts the matching options from a job snapshot.
func OptionsFromSettings(s jobs.Settings) Options {
	return Options{
		ItemsPerBox:    s.ItemsPerBox,
		DateRequired:   s.DateRequired,
		ProductionDate: s.ProductionDate,
		ForceShortCode: s.ForceShortCode,
	}
}

func (o Options) apply(s jobs.Settings) jobs.Settings {
	s.ItemsPerBox = o.ItemsPerBox
	s.DateRequired = o.DateRequired
	s.ProductionDate = o.ProductionDate
	s.ForceShortCode = o.ForceShortCode
	return s
}

// Engine matches scans against the working set of one job and mirrors every
// accepted change to the store.
type Engine struct {
	header   jobs.Header
	items    []jobs.Item
	labels   []string
	opts     Options
	verified int

	store  Persister
	log    *ScanLog
	logger *slog.Logger
	now    func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source used for read timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithScanLog shares log with the engine instead of a private one.
func WithScanLog(log *ScanLog) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// New builds an engine over job. The working order starts as the stored
// display order.
func New(job *jobs.Job, store Persister, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	e := &Engine{
		header: job.Header,
		items:  slices.Clone(job.Items),
		labels: slices.Clone(job.BoxLabels),
		opts:   OptionsFromSettings(job.Settings),
		store:  store,
		log:    NewScanLog(),
		logger: logging.NewComponentLogger(logger, "verify").With(logging.String(logging.FieldJobID, job.ID)),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	for i := range e.items {
		if e.items[i].SearchPrimary == "" && e.items[i].SearchAlternate == "" {
			e.items[i].IndexKeys()
		}
		if e.items[i].Verified() {
			e.verified++
		}
	}
	return e
}

// JobID returns the id of the job the engine works on.
func (e *Engine) JobID() string { return e.header.ID }

// JobName returns the display name of the job.
func (e *Engine) JobName() string { return e.header.Name }

// Remaining returns the number of items still pending.
func (e *Engine) Remaining() int { return len(e.items) - e.verified }

// Total returns the number of items in the working set.
func (e *Engine) Total() int { return len(e.items) }

// Options returns the current matching options.
func (e *Engine) Options() Options { return e.opts }

// ScanLog returns the report the engine appends to.
func (e *Engine) ScanLog() *ScanLog { return e.log }

// ProcessScan classifies raw, matches it against the working set and applies
// the PENDING to VERIFIED transition on a match. Only a match mutates state.
func (e *Engine) ProcessScan(ctx context.Context, raw string) Result {
	if e.opts.ForceShortCode {
		raw = codes.ShortForm(raw)
	}
	info := codes.Classify(raw)
	primary, alternate := info.KeepSeparator, info.NoSeparator
	if e.opts.ForceShortCode || info.PrefersNoSeparator() {
		primary, alternate = alternate, primary
	}
	res := Result{Code: info, Match: primary}
	logCode := info.NoSeparator
	if logCode == "" {
		logCode = info.KeepSeparator
	}

	if e.opts.DateRequired && !config.ValidProductionDate(e.opts.ProductionDate) {
		res.Outcome = OutcomeRejected
		res.Reason = ReasonMissingPrecondition
		e.log.Append(LogEntry{At: e.now(), Kind: KindDate, Code: logCode, Message: "production date missing or invalid"})
		return res
	}
	if utf8.RuneCountInString(info.NoSeparator) < minReadableLength && utf8.RuneCountInString(info.KeepSeparator) < minReadableLength {
		res.Outcome = OutcomeRejected
		res.Reason = ReasonUnreadable
		e.log.Append(LogEntry{At: e.now(), Kind: KindBad, Code: logCode, Message: "unreadable data"})
		return res
	}

	if idx := e.find(jobs.ItemPending, primary, alternate); idx >= 0 {
		return e.verify(ctx, idx, false, res)
	}
	if idx := e.find(jobs.ItemVerified, primary, alternate); idx >= 0 {
		item := e.items[idx]
		res.Outcome = OutcomeDuplicate
		res.Item = &item
		e.log.Append(LogEntry{At: e.now(), Kind: KindDup, Code: primary, DisplayID: item.DisplayID, Box: item.BoxNumber, Message: "already verified"})
		return res
	}
	res.Outcome = OutcomeNotFound
	e.log.Append(LogEntry{At: e.now(), Kind: KindMiss, Code: primary, Message: "not in list"})
	return res
}

// ManualVerify applies the scan transition to the item with displayID
// without a scan.
func (e *Engine) ManualVerify(ctx context.Context, displayID int) (Result, error) {
	idx := e.indexOf(displayID)
	if idx < 0 {
		return Result{}, fmt.Errorf("manual verify %d: %w", displayID, ErrUnknownItem)
	}
	if e.items[idx].Verified() {
		return Result{}, fmt.Errorf("manual verify %d: %w", displayID, ErrAlreadyVerified)
	}
	info := codes.Classify(e.items[idx].Raw)
	return e.verify(ctx, idx, true, Result{Code: info, Match: e.items[idx].SearchPrimary}), nil
}

func (e *Engine) find(status jobs.ItemStatus, primary, alternate string) int {
	for i := range e.items {
		item := &e.items[i]
		if item.Status != status {
			continue
		}
		if matches(item, primary) || matches(item, alternate) {
			return i
		}
	}
	return -1
}

func matches(item *jobs.Item, key string) bool {
	if key == "" {
		return false
	}
	return item.SearchPrimary == key || item.SearchAlternate == key
}

func (e *Engine) indexOf(displayID int) int {
	for i := range e.items {
		if e.items[i].DisplayID == displayID {
			return i
		}
	}
	return -1
}

func (e *Engine) verify(ctx context.Context, idx int, manual bool, res Result) Result {
	e.verified++
	n := e.verified
	box, pos := boxPosition(n, e.opts.ItemsPerBox)
	now := e.now()

	item := e.items[idx]
	item.Status = jobs.ItemVerified
	item.BoxNumber = box
	item.PositionInBox = pos
	item.BoxLabel = e.labelFor(box)
	item.ReadAt = &now
	item.Manual = manual
	item.ProductionDate = e.opts.ProductionDate

	// Most recently verified first.
	copy(e.items[1:idx+1], e.items[:idx])
	e.items[0] = item

	res.Outcome = OutcomeVerified
	res.Item = &item
	if e.opts.ItemsPerBox > 0 && n%e.opts.ItemsPerBox == 0 && printableLabel(item.BoxLabel) {
		res.BoxPrint = &BoxPrint{BoxNumber: box, Label: item.BoxLabel}
	}
	res.PersistErr = e.persist(ctx, box)

	kind, msg := KindOK, "verified"
	if manual {
		kind, msg = KindManual, "verified manually"
	}
	e.log.Append(LogEntry{At: now, Kind: kind, Code: res.Match, DisplayID: item.DisplayID, Box: box, Message: msg})
	e.logger.Debug("item verified",
		logging.Int(logging.FieldDisplayID, item.DisplayID),
		logging.Int("box", box),
		logging.Int("position", pos),
		logging.Bool("manual", manual),
		logging.Int("verified", n),
	)
	return res
}

func (e *Engine) persist(ctx context.Context, box int) error {
	if e.store == nil {
		return nil
	}
	if err := e.store.ReplaceItems(ctx, e.header.ID, e.items); err != nil {
		e.persistFailed(err)
		return err
	}
	current := max(box, 1)
	if err := e.store.UpdateHeader(ctx, e.header.ID, jobs.HeaderUpdate{CurrentBox: &current}); err != nil {
		e.persistFailed(err)
		return err
	}
	e.header.CurrentBox = current
	return nil
}

func (e *Engine) persistFailed(err error) {
	logging.WarnWithContext(e.logger, "job state not persisted", "job_persist_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check disk space and database permissions"),
		logging.String(logging.FieldImpact, "verification kept in memory until the next successful write"),
	)
}

// boxPosition places the n-th verified item. Zero perBox leaves both unset.
func boxPosition(n, perBox int) (box, pos int) {
	if perBox <= 0 || n <= 0 {
		return 0, 0
	}
	return (n + perBox - 1) / perBox, (n-1)%perBox + 1
}

func (e *Engine) labelFor(box int) string {
	if box <= 0 || box > len(e.labels) {
		return ""
	}
	return e.labels[box-1]
}

func printableLabel(label string) bool {
	return label != "" && label != "-"
}

// Reset returns verified items to PENDING. all resets every item; otherwise
// only ids. The number of reset items is returned.
func (e *Engine) Reset(ctx context.Context, ids []int, all bool) (int, error) {
	if !all && len(ids) == 0 {
		return 0, nil
	}
	var storeIDs []int
	if !all {
		storeIDs = ids
	}
	if e.store != nil {
		if _, err := e.store.ResetItemsToPending(ctx, e.header.ID, storeIDs); err != nil {
			return 0, err
		}
	}
	want := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	reset := 0
	for i := range e.items {
		if !e.items[i].Verified() {
			continue
		}
		if _, ok := want[e.items[i].DisplayID]; !all && !ok {
			continue
		}
		e.items[i].ResetToPending()
		reset++
	}
	e.verified -= reset
	if e.verified < 0 {
		e.verified = 0
	}
	e.logger.Info("items reset", logging.Int("reset", reset), logging.Bool("all", all))
	if err := e.syncCurrentBox(ctx); err != nil {
		return reset, err
	}
	return reset, nil
}

// syncCurrentBox stores the box of the last verified item after the verified
// count went down. An empty job is back at box 1.
func (e *Engine) syncCurrentBox(ctx context.Context) error {
	box, _ := boxPosition(e.verified, e.opts.ItemsPerBox)
	current := max(box, 1)
	if current == e.header.CurrentBox {
		return nil
	}
	if e.store != nil {
		if err := e.store.UpdateHeader(ctx, e.header.ID, jobs.HeaderUpdate{CurrentBox: &current}); err != nil {
			return fmt.Errorf("update current box: %w", err)
		}
	}
	e.header.CurrentBox = current
	return nil
}

// DeleteItems removes ids from the working set and the store.
func (e *Engine) DeleteItems(ctx context.Context, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if e.store != nil {
		if _, err := e.store.DeleteItems(ctx, e.header.ID, ids); err != nil {
			return 0, err
		}
	}
	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	before := len(e.items)
	e.items = slices.DeleteFunc(e.items, func(item jobs.Item) bool {
		_, ok := drop[item.DisplayID]
		if ok && item.Verified() {
			e.verified--
		}
		return ok
	})
	removed := before - len(e.items)
	e.logger.Info("items deleted", logging.Int("deleted", removed))
	if err := e.syncCurrentBox(ctx); err != nil {
		return removed, err
	}
	return removed, nil
}

// SetOptions replaces the matching options and stores them in the job
// settings snapshot.
func (e *Engine) SetOptions(ctx context.Context, opts Options) error {
	if opts.ItemsPerBox < 0 {
		return fmt.Errorf("items per box must be >= 0, got %d", opts.ItemsPerBox)
	}
	if opts.ProductionDate != "" && !config.ValidProductionDate(opts.ProductionDate) {
		return fmt.Errorf("production date %q must use DD.MM.YYYY", opts.ProductionDate)
	}
	settings := opts.apply(e.header.Settings)
	if e.store != nil {
		if err := e.store.UpdateHeader(ctx, e.header.ID, jobs.HeaderUpdate{Settings: &settings}); err != nil {
			return err
		}
	}
	e.header.Settings = settings
	e.opts = opts
	return nil
}

// SetBoxLabels replaces the box label list. Already verified items keep the
// label they were given.
func (e *Engine) SetBoxLabels(ctx context.Context, labels []string, boxFile string) error {
	if e.store != nil {
		if err := e.store.SetBoxLabels(ctx, e.header.ID, labels); err != nil {
			return err
		}
		if err := e.store.UpdateHeader(ctx, e.header.ID, jobs.HeaderUpdate{BoxFile: &boxFile}); err != nil {
			return err
		}
	}
	e.labels = slices.Clone(labels)
	e.header.BoxFile = boxFile
	return nil
}

// Snapshot is a point-in-time copy of the working set.
type Snapshot struct {
	Header    jobs.Header `json:"header"`
	Items     []jobs.Item `json:"items"`
	BoxLabels []string    `json:"box_labels,omitempty"`
	Options   Options     `json:"options"`
	Verified  int         `json:"verified"`
	Total     int         `json:"total"`
	NextBox   int         `json:"next_box"`
	NextLabel string      `json:"next_label,omitempty"`
}

// Remaining returns the number of pending items.
func (s Snapshot) Remaining() int { return s.Total - s.Verified }

// Snapshot copies the current state. Items are in working order.
func (e *Engine) Snapshot() Snapshot {
	nextBox, _ := boxPosition(e.verified+1, e.opts.ItemsPerBox)
	header := e.header
	header.Settings = e.opts.apply(header.Settings)
	return Snapshot{
		Header:    header,
		Items:     slices.Clone(e.items),
		BoxLabels: slices.Clone(e.labels),
		Options:   e.opts,
		Verified:  e.verified,
		Total:     len(e.items),
		NextBox:   nextBox,
		NextLabel: e.labelFor(nextBox),
	}
}

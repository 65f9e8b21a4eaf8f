package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"packline/internal/config"
	"packline/internal/devices"
	"packline/internal/labels"
	"packline/internal/logging"
	"packline/internal/notifications"
	"packline/internal/verify"
)

const boxCopyGap = 150 * time.Millisecond

// Dispatcher runs printer and reject actions off the serialization point.
// Every action gets its own goroutine and is never awaited by the caller;
// failures update the device status cache and go to the notifier.
type Dispatcher struct {
	printer   devices.Printer
	rejector  devices.Rejector
	endpoints map[string]devices.Endpoint
	layouts   map[string]config.Label
	dpi       int
	copies    int
	reject    config.Reject
	status    *devices.StatusCache
	notifier  notifications.Service
	logger    *slog.Logger
	copyGap   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithNotifier replaces the notifier built from the config.
func WithNotifier(n notifications.Service) DispatcherOption {
	return func(d *Dispatcher) {
		if n != nil {
			d.notifier = n
		}
	}
}

// NewDispatcher wires the configured devices. A nil printer or rejector
// disables that action.
func NewDispatcher(cfg *config.Config, printer devices.Printer, rejector devices.Rejector, status *devices.StatusCache, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if status == nil {
		status = devices.NewStatusCache()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		printer:   printer,
		rejector:  rejector,
		endpoints: devices.Endpoints(cfg.Printers),
		layouts: map[string]config.Label{
			devices.TargetBox:      cfg.Labels.Box,
			devices.TargetProduct:  cfg.Labels.Product,
			devices.TargetProduct2: cfg.Labels.Product2,
		},
		dpi:      cfg.Printers.DPI,
		copies:   max(1, cfg.Printers.BoxCopies),
		reject:   cfg.Reject,
		status:   status,
		notifier: notifications.NewService(cfg.Notifications),
		logger:   logging.NewComponentLogger(logger, "dispatch"),
		copyGap:  boxCopyGap,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle starts whatever the scan result calls for and returns at once.
func (d *Dispatcher) Handle(res verify.Result) {
	if res.BoxPrint != nil {
		d.spawn(func(ctx context.Context) { d.printBox(ctx, *res.BoxPrint) })
	}
	if res.ShouldReject() {
		d.spawn(d.pulse)
	}
}

// JobCompleted announces that every item of a job is verified.
func (d *Dispatcher) JobCompleted(jobName string, total int) {
	d.logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("job", jobName),
		logging.Int("total", total),
	)
	d.spawn(func(ctx context.Context) {
		d.report(d.notifier.NotifyJobCompleted(ctx, jobName, total))
	})
}

// PrintNow renders code for target and sends it, waiting for the result.
func (d *Dispatcher) PrintNow(ctx context.Context, target, code string) error {
	if !labels.Printable(code) {
		return fmt.Errorf("nothing to print for %q", code)
	}
	endpoint, ok := d.endpoints[target]
	if !ok || d.printer == nil {
		return fmt.Errorf("print %s: %w", target, devices.ErrUnknownTarget)
	}
	payload := labels.DataMatrix(code, d.layouts[target], d.dpi)
	err := d.printer.Send(ctx, endpoint, []byte(payload))
	d.status.SetPrinter(target, endpoint.Address, err)
	return err
}

// Close cancels outstanding actions and waits for them to return.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

// Wait blocks until every spawned action has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) spawn(fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(d.ctx)
	}()
}

func (d *Dispatcher) printBox(ctx context.Context, bp verify.BoxPrint) {
	if _, ok := d.endpoints[devices.TargetBox]; !ok || d.printer == nil {
		return
	}
	for i := 0; i < d.copies; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.copyGap):
			}
		}
		if err := d.PrintNow(ctx, devices.TargetBox, bp.Label); err != nil {
			logging.WarnWithContext(d.logger, "box label not printed", "box_print_failed",
				logging.Int("box", bp.BoxNumber),
				logging.String("label", bp.Label),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the box printer power and network link"),
				logging.String(logging.FieldImpact, "the box needs a manual label"),
			)
			d.report(d.notifier.NotifyDeviceFault(ctx, "box printer", err))
			return
		}
	}
	d.logger.Info("box label printed",
		logging.String(logging.FieldEventType, "box_printed"),
		logging.Int("box", bp.BoxNumber),
		logging.String("label", bp.Label),
		logging.Int("copies", d.copies),
	)
}

func (d *Dispatcher) pulse(ctx context.Context) {
	if !d.reject.Enabled || d.rejector == nil {
		return
	}
	if delay := d.reject.Delay(); delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
	err := d.rejector.Pulse(ctx, d.reject.Duration())
	d.status.RecordPulse(err)
	if err != nil {
		logging.WarnWithContext(d.logger, "reject pulse failed", "reject_failed",
			logging.String("port", d.reject.Port),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the reject port setting and cable"),
			logging.String(logging.FieldImpact, "the failed product stays on the line"),
		)
		d.report(d.notifier.NotifyDeviceFault(ctx, "reject actuator", err))
	}
}

func (d *Dispatcher) report(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	logging.WarnWithContext(d.logger, "notification not delivered", "notify_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and the network"),
	)
}

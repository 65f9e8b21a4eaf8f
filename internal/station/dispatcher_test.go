package station_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"packline/internal/devices"
	"packline/internal/logging"
	"packline/internal/station"
	"packline/internal/testsupport"
	"packline/internal/verify"
)

func TestDispatcherPrintsBoxCopies(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBoxPrinter("127.0.0.1", 9100))
	cfg.Printers.BoxCopies = 2
	printer := &fakePrinter{}
	status := devices.NewStatusCache()
	d := station.NewDispatcher(cfg, printer, nil, status, logging.NewNop())
	t.Cleanup(d.Close)

	d.Handle(verify.Result{Outcome: verify.OutcomeVerified, BoxPrint: &verify.BoxPrint{BoxNumber: 1, Label: "K1"}})
	d.Wait()

	if got := printer.count(); got != 2 {
		t.Fatalf("sends = %d, want 2", got)
	}
	for _, send := range printer.sends {
		if !strings.HasPrefix(send, devices.TargetBox+":^XA") || !strings.Contains(send, "K1") {
			t.Fatalf("unexpected payload %q", send)
		}
	}
	snap := status.Snapshot()
	if len(snap.Printers) != 1 || !snap.Printers[0].Reachable {
		t.Fatalf("unexpected printer status: %+v", snap.Printers)
	}
}

func TestDispatcherRejectsErrorOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Reject.Enabled = true
	cfg.Reject.DurationSeconds = 0.05
	cfg.Reject.DelaySeconds = 0
	rejector := &fakeRejector{}
	status := devices.NewStatusCache()
	d := station.NewDispatcher(cfg, nil, rejector, status, logging.NewNop())
	t.Cleanup(d.Close)

	for _, res := range []verify.Result{
		{Outcome: verify.OutcomeVerified},
		{Outcome: verify.OutcomeDuplicate},
		{Outcome: verify.OutcomeNotFound},
		{Outcome: verify.OutcomeRejected, Reason: verify.ReasonUnreadable},
		{Outcome: verify.OutcomeRejected, Reason: verify.ReasonMissingPrecondition},
	} {
		d.Handle(res)
	}
	d.Wait()

	if got := rejector.count(); got != 3 {
		t.Fatalf("pulses = %d, want 3", got)
	}
	if status.Snapshot().Reject.LastPulse.IsZero() {
		t.Fatal("expected the last pulse to be recorded")
	}
}

func TestDispatcherRejectDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	rejector := &fakeRejector{}
	d := station.NewDispatcher(cfg, nil, rejector, nil, logging.NewNop())
	t.Cleanup(d.Close)

	d.Handle(verify.Result{Outcome: verify.OutcomeNotFound})
	d.Wait()
	if got := rejector.count(); got != 0 {
		t.Fatalf("pulses = %d, want 0", got)
	}
}

func TestPrintNowErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBoxPrinter("127.0.0.1", 9100))
	printer := &fakePrinter{err: errors.New("connection refused")}
	status := devices.NewStatusCache()
	d := station.NewDispatcher(cfg, printer, nil, status, logging.NewNop())
	t.Cleanup(d.Close)
	ctx := context.Background()

	if err := d.PrintNow(ctx, devices.TargetProduct2, "0104012345678901217A1B2"); !errors.Is(err, devices.ErrUnknownTarget) {
		t.Fatalf("expected ErrUnknownTarget, got %v", err)
	}
	if err := d.PrintNow(ctx, devices.TargetBox, "-"); err == nil {
		t.Fatal("expected error for an empty label")
	}
	if err := d.PrintNow(ctx, devices.TargetBox, "K1"); err == nil {
		t.Fatal("expected the printer error")
	}
	snap := status.Snapshot()
	if len(snap.Printers) != 1 || snap.Printers[0].Reachable || snap.Printers[0].LastError == "" {
		t.Fatalf("unexpected printer status: %+v", snap.Printers)
	}
}

func TestDispatcherNotifiesDeviceFaults(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBoxPrinter("127.0.0.1", 9100))
	printer := &fakePrinter{err: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	d := station.NewDispatcher(cfg, printer, nil, nil, logging.NewNop(), station.WithNotifier(notifier))
	t.Cleanup(d.Close)

	d.Handle(verify.Result{Outcome: verify.OutcomeVerified, BoxPrint: &verify.BoxPrint{BoxNumber: 3, Label: "K3"}})
	d.JobCompleted("Night", 12)
	d.Wait()

	completed, faults := notifier.snapshot()
	if len(faults) != 1 || faults[0] != "box printer" {
		t.Fatalf("unexpected faults: %v", faults)
	}
	if len(completed) != 1 || completed[0] != "Night:12" {
		t.Fatalf("unexpected completions: %v", completed)
	}
	if got := printer.count(); got != 1 {
		t.Fatalf("sends = %d, want 1 after the first failure", got)
	}
}

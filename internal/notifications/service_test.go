package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"packline/internal/config"
	"packline/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte("topic closed"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(config.Notifications{})
	if err := svc.NotifyJobCompleted(context.Background(), "Night", 10); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)
	svc := notifications.NewService(config.Notifications{NtfyTopic: srv.URL, StationName: "Line 2"})

	if err := svc.NotifyJobCompleted(context.Background(), "Night shift", 240); err != nil {
		t.Fatalf("NotifyJobCompleted: %v", err)
	}
	if err := svc.NotifyDeviceFault(context.Background(), "box printer", errors.New("dial tcp: refused")); err != nil {
		t.Fatalf("NotifyDeviceFault: %v", err)
	}

	if len(*got) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(*got))
	}
	done := (*got)[0]
	if done.title != "Packline Line 2 - Job complete" || done.body != "All 240 items of Night shift verified" {
		t.Fatalf("unexpected completion payload: %+v", done)
	}
	if done.tags != "packline,job,completed" || done.priority != "" {
		t.Fatalf("unexpected completion headers: %+v", done)
	}
	fault := (*got)[1]
	if fault.priority != "high" || !strings.Contains(fault.body, "box printer: dial tcp: refused") {
		t.Fatalf("unexpected fault payload: %+v", fault)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := notifications.NewService(config.Notifications{NtfyTopic: srv.URL})
	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403: topic closed") {
		t.Fatalf("expected HTTP error, got %v", err)
	}
}
